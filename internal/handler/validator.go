package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/availability"
)

// Validator adapts go-playground/validator to Echo's Validator
// interface and registers the domain's custom rules.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds the request validator.  "clocktime" accepts
// 12-hour "h:mm AM/PM" strings, the format bookings carry.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		_, ok := availability.ParseClock(fl.Field().String())
		return ok
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

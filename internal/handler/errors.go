package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/repository"
	"github.com/otomatiktech/consult-booking/internal/service"
)

// writeError maps service and repository errors onto HTTP statuses.
// Unknown errors become an opaque 500 so internals never leak.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.Is(err, service.ErrBadWebhookSignature):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, repository.ErrInsufficientFunds):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient funds"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrFreeSessionUsed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "free session already used"})
	case errors.Is(err, service.ErrTooLateToCancel):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cancellation window has closed"})
	case errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCommentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot already booked"})
	case errors.Is(err, repository.ErrAlreadyPaid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already paid"})
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrCommentExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "comment already exists"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// identityFrom reads the caller identity out of the context values set
// by the JWT middleware.  JSON numbers arrive as float64.
func identityFrom(c echo.Context) service.Identity {
	var ident service.Identity
	switch v := c.Get("user_id").(type) {
	case float64:
		ident.UserID = uint64(v)
	case uint64:
		ident.UserID = v
	}
	if e, ok := c.Get("email").(string); ok {
		ident.Email = e
	}
	if r, ok := c.Get("role").(string); ok {
		ident.Role = r
	}
	return ident
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/availability"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/repository"
	"github.com/otomatiktech/consult-booking/internal/service"
)

// BookingService is what the booking endpoints need from the service
// layer.
type BookingService interface {
	Availability(ctx context.Context) (*availability.Result, error)
	List(ctx context.Context, ident service.Identity) ([]model.Booking, error)
	Get(ctx context.Context, ident service.Identity, id uint64) (*model.Booking, error)
	Cancel(ctx context.Context, ident service.Identity, id uint64) (*service.CancelResult, error)
	AddComment(ctx context.Context, ident service.Identity, bookingID uint64, content string) (*model.Comment, error)
	UpdateComment(ctx context.Context, ident service.Identity, commentID uint64, content string) error
	ListComments(ctx context.Context, bookingID uint64) ([]repository.CommentDetail, error)
}

// BookingHandler exposes booking lifecycle endpoints.
type BookingHandler struct {
	Svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

// Availability is public: clients need the blocked intervals before
// signing in.
func (h *BookingHandler) Availability(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.Availability(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	bookings, err := h.Svc.List(ctx, identityFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Svc.Get(ctx, identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.Cancel(ctx, identityFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type commentReq struct {
	Content string `json:"content" validate:"required"`
}

func (h *BookingHandler) AddComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	comment, err := h.Svc.AddComment(ctx, identityFrom(c), id, req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *BookingHandler) UpdateComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.UpdateComment(ctx, identityFrom(c), id, req.Content); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) ListComments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	comments, err := h.Svc.ListComments(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

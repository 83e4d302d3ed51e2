package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/service"
)

// webhookSignatureHeader is the shared-secret header the gateway sends
// with every notification.
const webhookSignatureHeader = "verif-hash"

// PaymentService is what the payment endpoints need from the
// orchestrator.
type PaymentService interface {
	BookFree(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.BookingResult, error)
	BookWithWallet(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.BookingResult, error)
	InitiateCheckout(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.CheckoutResult, error)
	VerifyPayment(ctx context.Context, ident service.Identity, bookingID uint64, transactionID string) (*service.PaymentResult, error)
	HandleWebhook(ctx context.Context, signature string, payload service.WebhookPayload) error
}

// PaymentHandler exposes the settlement endpoints for the three payment
// methods plus the gateway webhook.
type PaymentHandler struct {
	Svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

// gwCtx allows for the gateway's own timeout on top of ours.
func gwCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 20*time.Second)
}

func (h *PaymentHandler) bindRequest(c echo.Context) (service.BookingRequest, error) {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}

// BookFree creates a free session, settled on creation.
func (h *PaymentHandler) BookFree(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.BookFree(ctx, identityFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// BookWithWallet settles from the caller's prepaid balance.
func (h *PaymentHandler) BookWithWallet(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.BookWithWallet(ctx, identityFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// InitiateCheckout inserts an unpaid booking and returns the hosted
// checkout link.
func (h *PaymentHandler) InitiateCheckout(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := gwCtx(c)
	defer cancel()
	res, err := h.Svc.InitiateCheckout(ctx, identityFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type verifyReq struct {
	BookingID     uint64 `json:"booking_id" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

// Verify checks a gateway transaction and settles the booking on
// success.  A failed verification is a 200 with settled=false; the
// unpaid booking rides along for retry.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := gwCtx(c)
	defer cancel()
	res, err := h.Svc.VerifyPayment(ctx, identityFrom(c), req.BookingID, req.TransactionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Webhook receives the gateway's asynchronous payment notifications.
// An unmatched or irrelevant notification still gets a 200 so the
// gateway stops retrying; only a bad signature is rejected.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var payload service.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sig := c.Request().Header.Get(webhookSignatureHeader)
	if err := h.Svc.HandleWebhook(ctx, sig, payload); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

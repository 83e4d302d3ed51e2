package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/service"
)

// WalletService is what the wallet endpoints need from the service
// layer.
type WalletService interface {
	Get(ctx context.Context, ident service.Identity) (*service.WalletView, error)
	TopUp(ctx context.Context, admin service.Identity, userID uint64, amount, description string) (*model.Wallet, error)
	Debit(ctx context.Context, admin service.Identity, userID uint64, amount, description string) (*model.Wallet, error)
}

// WalletHandler exposes the caller's wallet plus the administrative
// credit/debit endpoints.
type WalletHandler struct {
	Svc WalletService
}

func NewWalletHandler(svc WalletService) *WalletHandler {
	return &WalletHandler{Svc: svc}
}

// Get returns the caller's wallet and recent ledger rows, creating the
// wallet lazily on first access.
func (h *WalletHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	view, err := h.Svc.Get(ctx, identityFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

type walletMutationReq struct {
	UserID      uint64 `json:"user_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

// TopUp credits a user's wallet; admin-only, recorded with the admin's
// identity for audit.
func (h *WalletHandler) TopUp(c echo.Context) error {
	var req walletMutationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Svc.TopUp(ctx, identityFrom(c), req.UserID, req.Amount, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": w})
}

// Debit removes funds from a user's wallet; admin-only.
func (h *WalletHandler) Debit(c echo.Context) error {
	var req walletMutationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Svc.Debit(ctx, identityFrom(c), req.UserID, req.Amount, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"wallet": w})
}

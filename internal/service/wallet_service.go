package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// recentTransactionLimit caps the ledger rows returned by Get.
const recentTransactionLimit = 20

// WalletService exposes wallet queries and the administrative
// credit/debit paths.  Atomicity of balance+ledger updates is the
// store's responsibility; this layer adds authorization and amount
// validation.
type WalletService struct {
	wallets WalletStore
	users   UserStore
}

func NewWalletService(wallets WalletStore, users UserStore) *WalletService {
	return &WalletService{wallets: wallets, users: users}
}

// WalletView is a wallet with its recent ledger rows.
type WalletView struct {
	Wallet       *model.Wallet                  `json:"wallet"`
	Transactions []repository.TransactionDetail `json:"transactions"`
}

// Get returns the caller's wallet, creating a zero-balance one on
// first access.
func (s *WalletService) Get(ctx context.Context, ident Identity) (*WalletView, error) {
	w, err := s.wallets.GetOrCreate(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	txs, err := s.wallets.RecentTransactions(ctx, w.ID, recentTransactionLimit)
	if err != nil {
		return nil, err
	}
	return &WalletView{Wallet: w, Transactions: txs}, nil
}

// TopUp credits a user's wallet.  Admin-only; the admin's identity is
// recorded on the ledger row for audit.
func (s *WalletService) TopUp(ctx context.Context, admin Identity, userID uint64, amount, description string) (*model.Wallet, error) {
	if !admin.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	w, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = "admin top-up"
	}
	return s.wallets.Credit(ctx, w.ID, amt, description, admin.UserID)
}

// Debit removes funds from a user's wallet.  Admin-only; fails with
// ErrInsufficientFunds when the balance cannot cover the amount.
func (s *WalletService) Debit(ctx context.Context, admin Identity, userID uint64, amount, description string) (*model.Wallet, error) {
	if !admin.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	w, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = "admin debit"
	}
	return s.wallets.Debit(ctx, w.ID, amt, description, admin.UserID)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validationf("unparsable amount %q", s)
	}
	if !amt.IsPositive() {
		return decimal.Zero, validationf("amount must be positive")
	}
	return amt, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Wallet is the per-user prepaid balance.  One wallet exists per user
// and is created lazily on first access.  Balance is a cached running
// total; the wallet_transactions ledger remains the source of truth
// and the two must always agree (credits minus debits).
type Wallet struct {
	ID        uint64          `json:"id"`         // wallets.id
	UserID    uint64          `json:"user_id"`    // wallets.user_id
	Balance   decimal.Decimal `json:"balance"`    // wallets.balance (never negative)
	CreatedAt time.Time       `json:"created_at"` // wallets.created_at
	UpdatedAt time.Time       `json:"updated_at"` // wallets.updated_at
}

// WalletTransaction is one immutable entry of the append-only wallet
// ledger.  PerformedBy records who authorized the movement, which for
// admin top-ups differs from the wallet owner.  BookingID links refund
// credits to the cancelled booking so a retried cancellation cannot
// refund twice.
type WalletTransaction struct {
	ID          uint64          `json:"id"`                   // wallet_transactions.id
	WalletID    uint64          `json:"wallet_id"`            // wallet_transactions.wallet_id
	Amount      decimal.Decimal `json:"amount"`               // wallet_transactions.amount (positive magnitude)
	Type        TransactionType `json:"type"`                 // wallet_transactions.type
	Description string          `json:"description"`          // wallet_transactions.description
	PerformedBy uint64          `json:"performed_by"`         // wallet_transactions.performed_by (users.id)
	BookingID   *uint64         `json:"booking_id,omitempty"` // wallet_transactions.booking_id (nullable refund reference)
	CreatedAt   time.Time       `json:"created_at"`           // wallet_transactions.created_at
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/otomatiktech/consult-booking/internal/availability"
	"github.com/otomatiktech/consult-booking/internal/gateway"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// The service layer talks to storage and collaborators through these
// interfaces.  The repository types satisfy them directly; tests
// substitute mocks.

// BookingStore is the persistence surface for bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	HasFreeForEmail(ctx context.Context, email string) (bool, error)
	MarkPaid(ctx context.Context, id uint64) error
	SetMeetLink(ctx context.Context, id uint64, link string) error
	Cancel(ctx context.Context, id uint64, at time.Time) error
	ListAll(ctx context.Context) ([]model.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]model.Booking, error)
	ListActive(ctx context.Context) ([]model.Booking, error)
	LatestUnpaid(ctx context.Context, cost, email string) (*model.Booking, error)
}

// WalletStore is the persistence surface for wallets and their ledger.
type WalletStore interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Wallet, error)
	GetOrCreate(ctx context.Context, userID uint64) (*model.Wallet, error)
	Credit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error)
	Debit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error)
	RefundBooking(ctx context.Context, walletID, bookingID uint64, amount decimal.Decimal, description string, performedBy uint64) (bool, error)
	RecentTransactions(ctx context.Context, walletID uint64, limit int) ([]repository.TransactionDetail, error)
}

// SettingsStore reads the working-calendar configuration.
type SettingsStore interface {
	Current(ctx context.Context) (model.WorkSettings, error)
}

// UserStore resolves booking/wallet owners.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// CommentStore is the persistence surface for booking comments.
type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id uint64) (*model.Comment, error)
	UpdateContent(ctx context.Context, id uint64, content string) error
	ListByBooking(ctx context.Context, bookingID uint64) ([]repository.CommentDetail, error)
}

// SlotCache is the advisory slot lock plus the availability cache.
// Implementations may be no-ops when Redis is unavailable.
type SlotCache interface {
	AcquireSlotLock(ctx context.Context, date, startTime string, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, date, startTime string) error
	GetAvailability(ctx context.Context) (*availability.Result, error)
	SetAvailability(ctx context.Context, res *availability.Result) error
	InvalidateAvailability(ctx context.Context) error
}

// PaymentGateway is the external checkout/verification collaborator.
type PaymentGateway interface {
	InitiateCheckout(ctx context.Context, req gateway.CheckoutRequest) (string, error)
	VerifyTransaction(ctx context.Context, transactionID string) (*gateway.Verification, error)
}

// BookingMatcher locates the booking a webhook notification settles.
// The default implementation matches the newest unpaid booking by
// (amount, email); it lives behind an interface so a strong reference
// can replace the heuristic without touching the orchestrator.
type BookingMatcher interface {
	Match(ctx context.Context, amount, email string) (*model.Booking, error)
}

// EventPublisher emits booking lifecycle events to the broker.
// Publishing is best-effort; callers log and ignore failures.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error
}

// PublisherFunc adapts a function to the EventPublisher interface.
type PublisherFunc func(ctx context.Context, queueName string, ev queue.BookingEvent) error

func (f PublisherFunc) Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error {
	return f(ctx, queueName, ev)
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/otomatiktech/consult-booking/internal/availability"
	"github.com/otomatiktech/consult-booking/internal/gateway"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// Mock implementations of the service-layer interfaces.

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) Create(ctx context.Context, b *model.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingStore) HasFreeForEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingStore) MarkPaid(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingStore) SetMeetLink(ctx context.Context, id uint64, link string) error {
	args := m.Called(ctx, id, link)
	return args.Error(0)
}

func (m *MockBookingStore) Cancel(ctx context.Context, id uint64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockBookingStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingStore) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingStore) ListActive(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingStore) LatestUnpaid(ctx context.Context, cost, email string) (*model.Booking, error) {
	args := m.Called(ctx, cost, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type MockWalletStore struct {
	mock.Mock
}

func (m *MockWalletStore) GetByUserID(ctx context.Context, userID uint64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletStore) GetOrCreate(ctx context.Context, userID uint64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletStore) Credit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error) {
	args := m.Called(ctx, walletID, amount, description, performedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletStore) Debit(ctx context.Context, walletID uint64, amount decimal.Decimal, description string, performedBy uint64) (*model.Wallet, error) {
	args := m.Called(ctx, walletID, amount, description, performedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletStore) RefundBooking(ctx context.Context, walletID, bookingID uint64, amount decimal.Decimal, description string, performedBy uint64) (bool, error) {
	args := m.Called(ctx, walletID, bookingID, amount, description, performedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletStore) RecentTransactions(ctx context.Context, walletID uint64, limit int) ([]repository.TransactionDetail, error) {
	args := m.Called(ctx, walletID, limit)
	return args.Get(0).([]repository.TransactionDetail), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Current(ctx context.Context) (model.WorkSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.WorkSettings), args.Error(1)
}

type MockCommentStore struct {
	mock.Mock
}

func (m *MockCommentStore) Create(ctx context.Context, c *model.Comment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCommentStore) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentStore) UpdateContent(ctx context.Context, id uint64, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *MockCommentStore) ListByBooking(ctx context.Context, bookingID uint64) ([]repository.CommentDetail, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]repository.CommentDetail), args.Error(1)
}

type MockSlotCache struct {
	mock.Mock
}

func (m *MockSlotCache) AcquireSlotLock(ctx context.Context, date, startTime string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, date, startTime, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSlotCache) ReleaseSlotLock(ctx context.Context, date, startTime string) error {
	args := m.Called(ctx, date, startTime)
	return args.Error(0)
}

func (m *MockSlotCache) GetAvailability(ctx context.Context) (*availability.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Result), args.Error(1)
}

func (m *MockSlotCache) SetAvailability(ctx context.Context, res *availability.Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockSlotCache) InvalidateAvailability(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitiateCheckout(ctx context.Context, req gateway.CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, transactionID string) (*gateway.Verification, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Verification), args.Error(1)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) Match(ctx context.Context, amount, email string) (*model.Booking, error) {
	args := m.Called(ctx, amount, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error {
	args := m.Called(ctx, queueName, ev)
	return args.Error(0)
}

type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) CreateEvent(ctx context.Context, b *model.Booking) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

func (m *MockCalendar) DeleteEvent(ctx context.Context, eventRef string) error {
	args := m.Called(ctx, eventRef)
	return args.Error(0)
}

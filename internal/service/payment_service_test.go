package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/otomatiktech/consult-booking/internal/gateway"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

type paymentFixture struct {
	bookings *MockBookingStore
	wallets  *MockWalletStore
	users    *MockUserStore
	cal      *MockCalendar
	gw       *MockGateway
	matcher  *MockMatcher
	cache    *MockSlotCache
	events   *MockPublisher
	svc      *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		bookings: &MockBookingStore{},
		wallets:  &MockWalletStore{},
		users:    &MockUserStore{},
		cal:      &MockCalendar{},
		gw:       &MockGateway{},
		matcher:  &MockMatcher{},
		cache:    &MockSlotCache{},
		events:   &MockPublisher{},
	}
	f.svc = &PaymentService{
		bookings:    f.bookings,
		wallets:     f.wallets,
		users:       f.users,
		calendar:    f.cal,
		gw:          f.gw,
		matcher:     f.matcher,
		cache:       f.cache,
		events:      f.events,
		webhookHash: "shared-secret",
		redirectURL: "https://app.example.com/payment/done",
		now:         func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

func (f *paymentFixture) expectLockedCreate(ctx context.Context) {
	f.cache.On("AcquireSlotLock", ctx, mock.Anything, mock.Anything, slotLockTTL).Return(true, nil).Once()
	f.cache.On("ReleaseSlotLock", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	f.cache.On("InvalidateAvailability", ctx).Return(nil).Once()
}

var caller = Identity{UserID: 7, Email: "alice@example.com", Role: model.RoleUser}

func TestBookFreeSuccess(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	f.bookings.On("HasFreeForEmail", ctx, caller.Email).Return(false, nil).Once()
	f.expectLockedCreate(ctx)
	f.bookings.On("Create", ctx, mock.AnythingOfType("*model.Booking")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Booking).ID = 42
		}).Return(nil).Once()
	f.cal.On("CreateEvent", ctx, mock.AnythingOfType("*model.Booking")).
		Return("https://meet.example.com/abc", nil).Once()
	f.bookings.On("SetMeetLink", ctx, uint64(42), "https://meet.example.com/abc").Return(nil).Once()
	f.events.On("Publish", ctx, queue.QueueBookingConfirmed, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	res, err := f.svc.BookFree(ctx, caller, BookingRequest{Date: "2024-07-01", Time: "10:00 AM"})

	require.NoError(t, err)
	assert.True(t, res.Booking.Paid)
	assert.Equal(t, model.BookingTypeFree, res.Booking.Type)
	assert.Equal(t, "0", res.Booking.Cost)
	require.NotNil(t, res.Booking.MeetLink)
	assert.Empty(t, res.Warning)
	f.bookings.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestBookFreeRejectedAfterLifetimeUse(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	f.bookings.On("HasFreeForEmail", ctx, caller.Email).Return(true, nil).Once()

	_, err := f.svc.BookFree(ctx, caller, BookingRequest{Date: "2024-07-01", Time: "10:00 AM"})

	assert.ErrorIs(t, err, ErrFreeSessionUsed)
	f.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookFreeCalendarFailureIsSoft(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	f.bookings.On("HasFreeForEmail", ctx, caller.Email).Return(false, nil).Once()
	f.expectLockedCreate(ctx)
	f.bookings.On("Create", ctx, mock.AnythingOfType("*model.Booking")).Return(nil).Once()
	f.cal.On("CreateEvent", ctx, mock.AnythingOfType("*model.Booking")).
		Return("", assert.AnError).Once()
	f.events.On("Publish", ctx, queue.QueueBookingConfirmed, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	res, err := f.svc.BookFree(ctx, caller, BookingRequest{Date: "2024-07-01", Time: "10:00 AM"})

	require.NoError(t, err)
	assert.True(t, res.Booking.Paid)
	assert.NotEmpty(t, res.Warning)
	f.bookings.AssertNotCalled(t, "SetMeetLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookWithWalletSuccess(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	amount := decimal.RequireFromString("50.00")
	wallet := &model.Wallet{ID: 3, UserID: caller.UserID, Balance: decimal.RequireFromString("80.00")}

	f.wallets.On("GetOrCreate", ctx, caller.UserID).Return(wallet, nil).Once()
	f.wallets.On("Debit", ctx, uint64(3), amount, mock.AnythingOfType("string"), caller.UserID).
		Return(&model.Wallet{ID: 3, Balance: decimal.RequireFromString("30.00")}, nil).Once()
	f.expectLockedCreate(ctx)
	f.bookings.On("Create", ctx, mock.AnythingOfType("*model.Booking")).Return(nil).Once()
	f.cal.On("CreateEvent", ctx, mock.AnythingOfType("*model.Booking")).
		Return("https://meet.example.com/w", nil).Once()
	f.bookings.On("SetMeetLink", ctx, mock.Anything, "https://meet.example.com/w").Return(nil).Once()
	f.events.On("Publish", ctx, queue.QueuePaymentSettled, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	res, err := f.svc.BookWithWallet(ctx, caller, BookingRequest{
		Date: "2024-07-01", Time: "2:00 PM", Cost: "50.00",
	})

	require.NoError(t, err)
	assert.True(t, res.Booking.Paid)
	assert.Equal(t, model.BookingTypePaid, res.Booking.Type)
	f.wallets.AssertExpectations(t)
}

func TestBookWithWalletInsufficientFunds(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	wallet := &model.Wallet{ID: 3, UserID: caller.UserID, Balance: decimal.RequireFromString("20.00")}

	f.wallets.On("GetOrCreate", ctx, caller.UserID).Return(wallet, nil).Once()

	_, err := f.svc.BookWithWallet(ctx, caller, BookingRequest{
		Date: "2024-07-01", Time: "2:00 PM", Cost: "50.00",
	})

	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)
	f.wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookWithWalletSlotConflictCompensates(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	amount := decimal.RequireFromString("50.00")
	wallet := &model.Wallet{ID: 3, UserID: caller.UserID, Balance: decimal.RequireFromString("80.00")}

	f.wallets.On("GetOrCreate", ctx, caller.UserID).Return(wallet, nil).Once()
	f.wallets.On("Debit", ctx, uint64(3), amount, mock.AnythingOfType("string"), caller.UserID).
		Return(wallet, nil).Once()
	f.cache.On("AcquireSlotLock", ctx, mock.Anything, mock.Anything, slotLockTTL).Return(true, nil).Once()
	f.cache.On("ReleaseSlotLock", ctx, mock.Anything, mock.Anything).Return(nil).Once()
	f.bookings.On("Create", ctx, mock.AnythingOfType("*model.Booking")).
		Return(repository.ErrSlotTaken).Once()
	f.wallets.On("Credit", ctx, uint64(3), amount, "refund: slot conflict", caller.UserID).
		Return(wallet, nil).Once()

	_, err := f.svc.BookWithWallet(ctx, caller, BookingRequest{
		Date: "2024-07-01", Time: "2:00 PM", Cost: "50.00",
	})

	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	f.wallets.AssertExpectations(t)
}

func TestInitiateCheckoutSuccess(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	f.expectLockedCreate(ctx)
	f.bookings.On("Create", ctx, mock.AnythingOfType("*model.Booking")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Booking).ID = 9
		}).Return(nil).Once()
	f.users.On("GetByEmail", ctx, caller.Email).
		Return(&model.User{ID: caller.UserID, Email: caller.Email, Name: "Alice"}, nil).Once()
	f.gw.On("InitiateCheckout", ctx, mock.AnythingOfType("gateway.CheckoutRequest")).
		Return("https://checkout.flutterwave.com/pay/x", nil).Once()
	f.events.On("Publish", ctx, queue.QueueBookingConfirmed, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	res, err := f.svc.InitiateCheckout(ctx, caller, BookingRequest{
		Date: "2024-07-01", Time: "3:00 PM", Cost: "75.00",
	})

	require.NoError(t, err)
	assert.False(t, res.Booking.Paid) // stays unpaid until verified
	assert.Equal(t, "https://checkout.flutterwave.com/pay/x", res.CheckoutLink)
}

func TestVerifyPaymentSettles(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid,
		Date: "2024-07-01", Time: "3:00 PM", Status: model.BookingStatusConfirmed}

	f.bookings.On("GetByID", ctx, uint64(9)).Return(b, nil).Once()
	f.gw.On("VerifyTransaction", ctx, "tx-123").
		Return(&gateway.Verification{Verified: true, Amount: "75.00", Email: caller.Email}, nil).Once()
	f.bookings.On("MarkPaid", ctx, uint64(9)).Return(nil).Once()
	f.cal.On("CreateEvent", ctx, b).Return("https://meet.example.com/v", nil).Once()
	f.bookings.On("SetMeetLink", ctx, uint64(9), "https://meet.example.com/v").Return(nil).Once()
	f.events.On("Publish", ctx, queue.QueuePaymentSettled, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	res, err := f.svc.VerifyPayment(ctx, caller, 9, "tx-123")

	require.NoError(t, err)
	assert.True(t, res.Settled)
	assert.True(t, res.Booking.Paid)
}

func TestVerifyPaymentFailedVerificationKeepsBookingUnpaid(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid}

	f.bookings.On("GetByID", ctx, uint64(9)).Return(b, nil).Once()
	f.gw.On("VerifyTransaction", ctx, "tx-123").
		Return(&gateway.Verification{Verified: false}, nil).Once()

	res, err := f.svc.VerifyPayment(ctx, caller, 9, "tx-123")

	require.NoError(t, err)
	assert.False(t, res.Settled)
	f.bookings.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestVerifyPaymentAmountMismatchKeepsBookingUnpaid(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid}

	f.bookings.On("GetByID", ctx, uint64(9)).Return(b, nil).Once()
	f.gw.On("VerifyTransaction", ctx, "tx-123").
		Return(&gateway.Verification{Verified: true, Amount: "74.00"}, nil).Once()

	res, err := f.svc.VerifyPayment(ctx, caller, 9, "tx-123")

	require.NoError(t, err)
	assert.False(t, res.Settled)
	f.bookings.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestVerifyPaymentRejectsCancelledBooking(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid,
		Status: model.BookingStatusCancelled}

	f.bookings.On("GetByID", ctx, uint64(9)).Return(b, nil).Once()

	_, err := f.svc.VerifyPayment(ctx, caller, 9, "tx-123")

	assert.ErrorIs(t, err, repository.ErrAlreadyCancelled)
	f.gw.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestVerifyPaymentForbiddenForOtherUser(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: "someone@else.com", Cost: "75.00"}

	f.bookings.On("GetByID", ctx, uint64(9)).Return(b, nil).Once()

	_, err := f.svc.VerifyPayment(ctx, caller, 9, "tx-123")

	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func webhookPayload(t *testing.T, event, status, amount, email string) WebhookPayload {
	t.Helper()
	raw := []byte(`{"event":"` + event + `","data":{"status":"` + status + `","amount":` + amount +
		`,"currency":"USD","tx_ref":"booking-9-x","customer":{"email":"` + email + `"}}}`)
	var p WebhookPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestHandleWebhookBadSignature(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleWebhook(context.Background(), "wrong",
		webhookPayload(t, "charge.completed", "successful", "75", caller.Email))

	assert.ErrorIs(t, err, ErrBadWebhookSignature)
	f.matcher.AssertNotCalled(t, "Match", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhookSettlesMatchedBooking(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid}

	f.matcher.On("Match", ctx, "75", caller.Email).Return(b, nil).Once()
	f.bookings.On("MarkPaid", ctx, uint64(9)).Return(nil).Once()
	f.cal.On("CreateEvent", ctx, b).Return("https://meet.example.com/h", nil).Once()
	f.bookings.On("SetMeetLink", ctx, uint64(9), "https://meet.example.com/h").Return(nil).Once()
	f.events.On("Publish", ctx, queue.QueuePaymentSettled, mock.AnythingOfType("queue.BookingEvent")).Return(nil).Once()

	err := f.svc.HandleWebhook(ctx, "shared-secret",
		webhookPayload(t, "charge.completed", "successful", "75", caller.Email))

	require.NoError(t, err)
	f.bookings.AssertExpectations(t)
}

func TestHandleWebhookNoMatchIsAcknowledged(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	f.matcher.On("Match", ctx, "75", caller.Email).Return(nil, repository.ErrBookingNotFound).Once()

	err := f.svc.HandleWebhook(ctx, "shared-secret",
		webhookPayload(t, "charge.completed", "successful", "75", caller.Email))

	assert.NoError(t, err)
	f.bookings.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestHandleWebhookAcksBookingCancelledMeanwhile(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	b := &model.Booking{ID: 9, Email: caller.Email, Cost: "75.00", Type: model.BookingTypePaid}

	f.matcher.On("Match", ctx, "75", caller.Email).Return(b, nil).Once()
	f.bookings.On("MarkPaid", ctx, uint64(9)).Return(repository.ErrAlreadyCancelled).Once()

	err := f.svc.HandleWebhook(ctx, "shared-secret",
		webhookPayload(t, "charge.completed", "successful", "75", caller.Email))

	assert.NoError(t, err)
	f.cal.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleWebhook(context.Background(), "shared-secret",
		webhookPayload(t, "charge.failed", "failed", "75", caller.Email))

	assert.NoError(t, err)
	f.matcher.AssertNotCalled(t, "Match", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingRequestValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.BookWithWallet(ctx, caller, BookingRequest{Time: "2:00 PM", Cost: "10"})
	assert.True(t, IsValidation(err))

	_, err = f.svc.BookWithWallet(ctx, caller, BookingRequest{Date: "2024-07-01", Time: "2:00 PM", Cost: "nope"})
	assert.True(t, IsValidation(err))
}

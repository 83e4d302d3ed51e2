package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/otomatiktech/consult-booking/internal/availability"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/repository"
	"github.com/otomatiktech/consult-booking/internal/service"
)

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) BookFree(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.BookingResult, error) {
	args := m.Called(ctx, ident, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookingResult), args.Error(1)
}

func (m *MockPaymentService) BookWithWallet(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.BookingResult, error) {
	args := m.Called(ctx, ident, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookingResult), args.Error(1)
}

func (m *MockPaymentService) InitiateCheckout(ctx context.Context, ident service.Identity, req service.BookingRequest) (*service.CheckoutResult, error) {
	args := m.Called(ctx, ident, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CheckoutResult), args.Error(1)
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, ident service.Identity, bookingID uint64, transactionID string) (*service.PaymentResult, error) {
	args := m.Called(ctx, ident, bookingID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentResult), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, signature string, payload service.WebhookPayload) error {
	args := m.Called(ctx, signature, payload)
	return args.Error(0)
}

func newEchoCtx(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc := &MockPaymentService{}
	h := NewPaymentHandler(svc)

	c, rec := newEchoCtx(http.MethodPost, "/v1/payment/webhook",
		`{"event":"charge.completed","data":{"status":"successful","amount":50,"customer":{"email":"a@b.c"}}}`)
	c.Request().Header.Set(webhookSignatureHeader, "wrong")

	svc.On("HandleWebhook", mock.Anything, "wrong", mock.AnythingOfType("service.WebhookPayload")).
		Return(service.ErrBadWebhookSignature).Once()

	assert.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertExpectations(t)
}

func TestWebhookAcknowledges(t *testing.T) {
	svc := &MockPaymentService{}
	h := NewPaymentHandler(svc)

	c, rec := newEchoCtx(http.MethodPost, "/v1/payment/webhook",
		`{"event":"charge.completed","data":{"status":"successful","amount":50,"customer":{"email":"a@b.c"}}}`)
	c.Request().Header.Set(webhookSignatureHeader, "shared-secret")

	svc.On("HandleWebhook", mock.Anything, "shared-secret", mock.AnythingOfType("service.WebhookPayload")).
		Return(nil).Once()

	assert.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookWithWalletMapsInsufficientFunds(t *testing.T) {
	svc := &MockPaymentService{}
	h := NewPaymentHandler(svc)

	c, rec := newEchoCtx(http.MethodPost, "/v1/payment/wallet",
		`{"date":"2024-07-01","time":"2:00 PM","type":"paid","cost":"50.00"}`)

	svc.On("BookWithWallet", mock.Anything, mock.AnythingOfType("service.Identity"),
		mock.AnythingOfType("service.BookingRequest")).
		Return(nil, repository.ErrInsufficientFunds).Once()

	assert.NoError(t, h.BookWithWallet(c))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestBookFreeMapsPolicyViolation(t *testing.T) {
	svc := &MockPaymentService{}
	h := NewPaymentHandler(svc)

	c, rec := newEchoCtx(http.MethodPost, "/v1/payment/free",
		`{"date":"2024-07-01","time":"10:00 AM","type":"free"}`)

	svc.On("BookFree", mock.Anything, mock.AnythingOfType("service.Identity"),
		mock.AnythingOfType("service.BookingRequest")).
		Return(nil, service.ErrFreeSessionUsed).Once()

	assert.NoError(t, h.BookFree(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookFreeRejectsBadClockFormat(t *testing.T) {
	svc := &MockPaymentService{}
	h := NewPaymentHandler(svc)

	c, _ := newEchoCtx(http.MethodPost, "/v1/payment/free",
		`{"date":"2024-07-01","time":"25:99","type":"free"}`)

	err := h.BookFree(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	svc.AssertNotCalled(t, "BookFree", mock.Anything, mock.Anything, mock.Anything)
}

// MockBookingService covers just what the availability endpoint needs.
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Availability(ctx context.Context) (*availability.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Result), args.Error(1)
}

func (m *MockBookingService) List(ctx context.Context, ident service.Identity) ([]model.Booking, error) {
	args := m.Called(ctx, ident)
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, ident service.Identity, id uint64) (*model.Booking, error) {
	args := m.Called(ctx, ident, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, ident service.Identity, id uint64) (*service.CancelResult, error) {
	args := m.Called(ctx, ident, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CancelResult), args.Error(1)
}

func (m *MockBookingService) AddComment(ctx context.Context, ident service.Identity, bookingID uint64, content string) (*model.Comment, error) {
	args := m.Called(ctx, ident, bookingID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockBookingService) UpdateComment(ctx context.Context, ident service.Identity, commentID uint64, content string) error {
	args := m.Called(ctx, ident, commentID, content)
	return args.Error(0)
}

func (m *MockBookingService) ListComments(ctx context.Context, bookingID uint64) ([]repository.CommentDetail, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]repository.CommentDetail), args.Error(1)
}

func TestAvailabilityIsPublic(t *testing.T) {
	svc := &MockBookingService{}
	h := NewBookingHandler(svc)

	c, rec := newEchoCtx(http.MethodGet, "/v1/availability", "")

	svc.On("Availability", mock.Anything).
		Return(&availability.Result{WorkStart: 9, WorkEnd: 17}, nil).Once()

	assert.NoError(t, h.Availability(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"work_start":9`)
}

func TestCancelMapsSlotAndStateErrors(t *testing.T) {
	svc := &MockBookingService{}
	h := NewBookingHandler(svc)

	c, rec := newEchoCtx(http.MethodDelete, "/v1/bookings/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")

	svc.On("Cancel", mock.Anything, mock.AnythingOfType("service.Identity"), uint64(5)).
		Return(nil, repository.ErrAlreadyCancelled).Once()

	assert.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otomatiktech/consult-booking/internal/calendar"
	"github.com/otomatiktech/consult-booking/internal/gateway"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// slotLockTTL bounds how long an advisory slot lock can outlive a
// crashed request.
const slotLockTTL = 30 * time.Second

// PaymentService sequences booking creation with settlement across the
// three payment methods.  Free and wallet bookings settle inline;
// gateway bookings are inserted unpaid and settled by verification or
// by the webhook reconciliation path.  Ledger mutations always complete
// before the calendar collaborator is called, so a slow external call
// never holds a ledger lock.
type PaymentService struct {
	bookings    BookingStore
	wallets     WalletStore
	users       UserStore
	calendar    calendar.EventService
	gw          PaymentGateway
	matcher     BookingMatcher
	cache       SlotCache
	events      EventPublisher
	webhookHash string
	redirectURL string
	now         func() time.Time
}

func NewPaymentService(
	bookings BookingStore,
	wallets WalletStore,
	users UserStore,
	cal calendar.EventService,
	gw PaymentGateway,
	matcher BookingMatcher,
	cache SlotCache,
	events EventPublisher,
	webhookHash, redirectURL string,
) *PaymentService {
	return &PaymentService{
		bookings:    bookings,
		wallets:     wallets,
		users:       users,
		calendar:    cal,
		gw:          gw,
		matcher:     matcher,
		cache:       cache,
		events:      events,
		webhookHash: webhookHash,
		redirectURL: redirectURL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// BookingRequest is a booking intent from the client.
type BookingRequest struct {
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string  `json:"time" validate:"required,clocktime"`
	EndTime *string `json:"end_time,omitempty" validate:"omitempty,clocktime"`
	Type    string  `json:"type" validate:"required,oneof=free paid"`
	Cost    string  `json:"cost,omitempty"`
}

// BookingResult carries the booking plus a soft warning when a
// best-effort step (calendar) failed without affecting settlement.
type BookingResult struct {
	Booking *model.Booking `json:"booking"`
	Warning string         `json:"warning,omitempty"`
}

func (s *PaymentService) validate(req *BookingRequest) error {
	if req.Date == "" || req.Time == "" || req.Type == "" {
		return validationf("date, time and type are required")
	}
	if req.Type != string(model.BookingTypeFree) && req.Type != string(model.BookingTypePaid) {
		return validationf("type must be free or paid")
	}
	return nil
}

// BookFree creates a free session, settled on creation.  Rejected when
// the caller's email already consumed its lifetime free session, even
// by a booking that was later cancelled.
func (s *PaymentService) BookFree(ctx context.Context, ident Identity, req BookingRequest) (*BookingResult, error) {
	req.Type = string(model.BookingTypeFree)
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	used, err := s.bookings.HasFreeForEmail(ctx, ident.Email)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrFreeSessionUsed
	}

	b := &model.Booking{
		Date:    req.Date,
		Time:    req.Time,
		EndTime: req.EndTime,
		Type:    model.BookingTypeFree,
		Cost:    "0",
		Email:   ident.Email,
		Paid:    true, // free sessions auto-settle
	}
	if err := s.createLocked(ctx, b); err != nil {
		return nil, err
	}
	res := &BookingResult{Booking: b}
	s.attachCalendar(ctx, b, res)
	s.publish(ctx, queue.QueueBookingConfirmed, b)
	return res, nil
}

// BookWithWallet debits the caller's wallet for the full cost and
// creates the booking settled.  The balance is checked before anything
// is written, so an unpayable booking is never committed; if the slot
// turns out to be taken after the debit, the debit is compensated with
// an equal credit and the conflict is returned.
func (s *PaymentService) BookWithWallet(ctx context.Context, ident Identity, req BookingRequest) (*BookingResult, error) {
	req.Type = string(model.BookingTypePaid)
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Cost)
	if err != nil {
		return nil, err
	}

	w, err := s.wallets.GetOrCreate(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if w.Balance.LessThan(amount) {
		return nil, repository.ErrInsufficientFunds
	}

	if _, err := s.wallets.Debit(ctx, w.ID, amount,
		fmt.Sprintf("booking payment for %s %s", req.Date, req.Time), ident.UserID); err != nil {
		return nil, err
	}

	b := &model.Booking{
		Date:    req.Date,
		Time:    req.Time,
		EndTime: req.EndTime,
		Type:    model.BookingTypePaid,
		Cost:    amount.String(),
		Email:   ident.Email,
		Paid:    true,
	}
	if err := s.createLocked(ctx, b); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// Compensate the debit; the saga fails as a whole.
			if _, cerr := s.wallets.Credit(ctx, w.ID, amount, "refund: slot conflict", ident.UserID); cerr != nil {
				log.Printf("payment: compensating credit failed for wallet %d: %v", w.ID, cerr)
			}
		}
		return nil, err
	}
	res := &BookingResult{Booking: b}
	s.attachCalendar(ctx, b, res)
	s.publish(ctx, queue.QueuePaymentSettled, b)
	return res, nil
}

// CheckoutResult is the gateway initiation response: the persisted
// unpaid booking and the hosted checkout link the client completes
// payment on.
type CheckoutResult struct {
	Booking      *model.Booking `json:"booking"`
	CheckoutLink string         `json:"checkout_link"`
}

// InitiateCheckout inserts the booking unpaid, then asks the gateway
// for a hosted checkout link.  If the gateway call fails the booking
// remains persisted as a retryable artifact.
func (s *PaymentService) InitiateCheckout(ctx context.Context, ident Identity, req BookingRequest) (*CheckoutResult, error) {
	req.Type = string(model.BookingTypePaid)
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Cost)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		Date:    req.Date,
		Time:    req.Time,
		EndTime: req.EndTime,
		Type:    model.BookingTypePaid,
		Cost:    amount.String(),
		Email:   ident.Email,
		Paid:    false,
	}
	if err := s.createLocked(ctx, b); err != nil {
		return nil, err
	}

	checkout := gateway.CheckoutRequest{
		Amount:      b.Cost,
		TxRef:       fmt.Sprintf("booking-%d-%s", b.ID, uuid.NewString()),
		RedirectURL: s.redirectURL,
	}
	checkout.Customer.Email = ident.Email
	if u, err := s.users.GetByEmail(ctx, ident.Email); err == nil {
		checkout.Customer.Name = u.Name
	}
	link, err := s.gw.InitiateCheckout(ctx, checkout)
	if err != nil {
		// The unpaid booking stays; the client may retry initiation
		// or verification against it.
		return nil, fmt.Errorf("checkout initiation failed for booking %d: %w", b.ID, err)
	}
	s.publish(ctx, queue.QueueBookingConfirmed, b)
	return &CheckoutResult{Booking: b, CheckoutLink: link}, nil
}

// PaymentResult reports a verification attempt.  Settled=false with a
// nil error is a failed payment: the booking persists unpaid for retry.
type PaymentResult struct {
	Booking *model.Booking `json:"booking"`
	Settled bool           `json:"settled"`
	Warning string         `json:"warning,omitempty"`
}

// VerifyPayment checks a gateway transaction against the verifier and
// settles the booking on success.  The amount must match the booking's
// cost exactly.
func (s *PaymentService) VerifyPayment(ctx context.Context, ident Identity, bookingID uint64, transactionID string) (*PaymentResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && b.Email != ident.Email {
		return nil, repository.ErrForbidden
	}
	// Cancelled is terminal; money arriving afterwards must not revive
	// the booking, it has no refund path.
	if b.Cancelled() {
		return nil, repository.ErrAlreadyCancelled
	}
	if b.Paid {
		return nil, repository.ErrAlreadyPaid
	}

	v, err := s.gw.VerifyTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !v.Verified || !amountsEqual(v.Amount, b.Cost) {
		return &PaymentResult{Booking: b, Settled: false}, nil
	}

	if err := s.bookings.MarkPaid(ctx, b.ID); err != nil {
		return nil, err
	}
	b.Paid = true

	res := &PaymentResult{Booking: b, Settled: true}
	s.attachCalendarPayment(ctx, b, res)
	s.publish(ctx, queue.QueuePaymentSettled, b)
	return res, nil
}

// WebhookPayload is the gateway's asynchronous payment notification.
type WebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Status   string      `json:"status"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
		TxRef    string      `json:"tx_ref"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// HandleWebhook authenticates a payment notification by exact shared
// secret comparison and, for completed charges, settles the matching
// booking.  Matching is delegated to the BookingMatcher; when nothing
// matches the notification is acknowledged and dropped, since the
// webhook path is best-effort reconciliation.
func (s *PaymentService) HandleWebhook(ctx context.Context, signature string, payload WebhookPayload) error {
	if s.webhookHash == "" || subtle.ConstantTimeCompare([]byte(signature), []byte(s.webhookHash)) != 1 {
		return ErrBadWebhookSignature
	}
	if payload.Event != "charge.completed" || payload.Data.Status != "successful" {
		return nil
	}

	b, err := s.matcher.Match(ctx, payload.Data.Amount.String(), payload.Data.Customer.Email)
	if errors.Is(err, repository.ErrBookingNotFound) {
		log.Printf("payment: webhook matched no unpaid booking (amount=%s email=%s)",
			payload.Data.Amount, payload.Data.Customer.Email)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.bookings.MarkPaid(ctx, b.ID); err != nil {
		// Lost races against a concurrent settlement or cancellation
		// are still acknowledged; the notification did its job.
		if errors.Is(err, repository.ErrAlreadyPaid) || errors.Is(err, repository.ErrAlreadyCancelled) {
			return nil
		}
		return err
	}
	b.Paid = true

	if link, err := s.calendar.CreateEvent(ctx, b); err != nil {
		log.Printf("payment: calendar link failed for booking %d: %v", b.ID, err)
	} else if err := s.bookings.SetMeetLink(ctx, b.ID, link); err != nil {
		log.Printf("payment: storing meet link failed for booking %d: %v", b.ID, err)
	} else {
		b.MeetLink = &link
	}
	s.publish(ctx, queue.QueuePaymentSettled, b)
	return nil
}

// createLocked takes the advisory slot lock around the transactional
// insert.  The database check remains authoritative; a held lock just
// fails the double-submit fast.
func (s *PaymentService) createLocked(ctx context.Context, b *model.Booking) error {
	ok, err := s.cache.AcquireSlotLock(ctx, b.Date, b.Time, slotLockTTL)
	if err != nil {
		log.Printf("payment: slot lock errored, relying on database check: %v", err)
	} else if !ok {
		return repository.ErrSlotTaken
	}
	defer func() {
		if err := s.cache.ReleaseSlotLock(ctx, b.Date, b.Time); err != nil {
			log.Printf("payment: slot unlock failed: %v", err)
		}
	}()

	if err := s.bookings.Create(ctx, b); err != nil {
		return err
	}
	if err := s.cache.InvalidateAvailability(ctx); err != nil {
		log.Printf("payment: availability invalidate failed: %v", err)
	}
	return nil
}

// attachCalendar requests a meeting link after settlement; failure is a
// soft warning, never a rollback.
func (s *PaymentService) attachCalendar(ctx context.Context, b *model.Booking, res *BookingResult) {
	link, err := s.calendar.CreateEvent(ctx, b)
	if err != nil {
		log.Printf("payment: calendar link failed for booking %d: %v", b.ID, err)
		res.Warning = "calendar link could not be created"
		return
	}
	if err := s.bookings.SetMeetLink(ctx, b.ID, link); err != nil {
		log.Printf("payment: storing meet link failed for booking %d: %v", b.ID, err)
		res.Warning = "calendar link could not be stored"
		return
	}
	b.MeetLink = &link
}

func (s *PaymentService) attachCalendarPayment(ctx context.Context, b *model.Booking, res *PaymentResult) {
	link, err := s.calendar.CreateEvent(ctx, b)
	if err != nil {
		log.Printf("payment: calendar link failed for booking %d: %v", b.ID, err)
		res.Warning = "calendar link could not be created"
		return
	}
	if err := s.bookings.SetMeetLink(ctx, b.ID, link); err != nil {
		log.Printf("payment: storing meet link failed for booking %d: %v", b.ID, err)
		res.Warning = "calendar link could not be stored"
		return
	}
	b.MeetLink = &link
}

func (s *PaymentService) publish(ctx context.Context, queueName string, b *model.Booking) {
	link := ""
	if b.MeetLink != nil {
		link = *b.MeetLink
	}
	ev := queue.BookingEvent{
		BookingID:  b.ID,
		Email:      b.Email,
		Date:       b.Date,
		Time:       b.Time,
		Type:       string(b.Type),
		Cost:       b.Cost,
		Paid:       b.Paid,
		MeetLink:   link,
		OccurredAt: s.now().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, queueName, ev); err != nil {
		log.Printf("payment: publish %s failed: %v", queueName, err)
	}
}

func amountsEqual(a, b string) bool {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}

// LatestUnpaidMatcher is the default BookingMatcher: the most recently
// created unpaid, non-cancelled booking with the notified cost and
// payer email.
type LatestUnpaidMatcher struct {
	bookings BookingStore
}

func NewLatestUnpaidMatcher(bookings BookingStore) *LatestUnpaidMatcher {
	return &LatestUnpaidMatcher{bookings: bookings}
}

func (m *LatestUnpaidMatcher) Match(ctx context.Context, amount, email string) (*model.Booking, error) {
	return m.bookings.LatestUnpaid(ctx, amount, email)
}

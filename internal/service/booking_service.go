package service

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/otomatiktech/consult-booking/internal/availability"
	"github.com/otomatiktech/consult-booking/internal/calendar"
	"github.com/otomatiktech/consult-booking/internal/model"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
)

// cancelWindow is the minimum lead the caller must have before the
// session's effective end for a cancellation to be accepted.
const cancelWindow = 7 * 24 * time.Hour

// BookingService owns the booking lifecycle outside settlement:
// availability queries, listings, cancellation with refund, and the
// comment sub-ledger.  Settlement flows live on PaymentService.
type BookingService struct {
	bookings BookingStore
	wallets  WalletStore
	users    UserStore
	settings SettingsStore
	comments CommentStore
	calendar calendar.EventService
	cache    SlotCache
	events   EventPublisher
	now      func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	wallets WalletStore,
	users UserStore,
	settings SettingsStore,
	comments CommentStore,
	cal calendar.EventService,
	cache SlotCache,
	events EventPublisher,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		wallets:  wallets,
		users:    users,
		settings: settings,
		comments: comments,
		calendar: cal,
		cache:    cache,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Availability returns blocked intervals per date plus the raw
// settings.  The result is served from cache when present; a miss
// recomputes from all non-cancelled bookings and repopulates it.
func (s *BookingService) Availability(ctx context.Context) (*availability.Result, error) {
	if cached, err := s.cache.GetAvailability(ctx); err == nil && cached != nil {
		return cached, nil
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.bookings.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	res := availability.Compute(active, settings)
	if err := s.cache.SetAvailability(ctx, &res); err != nil {
		log.Printf("booking: availability cache set failed: %v", err)
	}
	return &res, nil
}

// List returns all bookings for admins and only the caller's own for
// regular users, newest date and time first.
func (s *BookingService) List(ctx context.Context, ident Identity) ([]model.Booking, error) {
	if ident.IsAdmin() {
		return s.bookings.ListAll(ctx)
	}
	return s.bookings.ListByEmail(ctx, ident.Email)
}

// Get returns one booking, enforcing ownership for non-admins.
func (s *BookingService) Get(ctx context.Context, ident Identity, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && b.Email != ident.Email {
		return nil, repository.ErrForbidden
	}
	return b, nil
}

// CancelResult reports what a cancellation did.
type CancelResult struct {
	Refunded bool   `json:"refunded"`
	Warning  string `json:"warning,omitempty"`
}

// Cancel transitions a booking to cancelled.  Ownership (or admin) is
// required; the effective end of the session must be more than seven
// whole days away.  A settled paid booking is refunded to the owner's
// wallet before the status flips, and the refund is deduplicated by
// booking id so a retried cancellation cannot credit twice.  The
// calendar delete afterwards is best-effort.
func (s *BookingService) Cancel(ctx context.Context, ident Identity, id uint64) (*CancelResult, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin() && b.Email != ident.Email {
		return nil, repository.ErrForbidden
	}
	if b.Cancelled() {
		return nil, repository.ErrAlreadyCancelled
	}

	end, err := effectiveEnd(b)
	if err != nil {
		return nil, err
	}
	if end.Sub(s.now()) <= cancelWindow {
		return nil, ErrTooLateToCancel
	}

	res := &CancelResult{}
	if b.Paid && b.Type == model.BookingTypePaid {
		refunded, err := s.refundOwner(ctx, ident, b)
		if err != nil {
			return nil, err
		}
		res.Refunded = refunded
	}

	if err := s.bookings.Cancel(ctx, id, s.now()); err != nil {
		return nil, err
	}

	if b.MeetLink != nil {
		if err := s.calendar.DeleteEvent(ctx, *b.MeetLink); err != nil {
			log.Printf("booking: calendar delete failed for booking %d: %v", id, err)
			res.Warning = "calendar event could not be removed"
		}
	}

	if err := s.cache.InvalidateAvailability(ctx); err != nil {
		log.Printf("booking: availability invalidate failed: %v", err)
	}
	s.publish(ctx, queue.QueueBookingCancelled, b)
	return res, nil
}

// refundOwner credits the booking's cost back to the owner's wallet.
// The credit is recorded against the booking id, so a second attempt
// for the same booking applies nothing and reports false.
func (s *BookingService) refundOwner(ctx context.Context, ident Identity, b *model.Booking) (bool, error) {
	owner, err := s.users.GetByEmail(ctx, b.Email)
	if err != nil {
		return false, err
	}
	w, err := s.wallets.GetOrCreate(ctx, owner.ID)
	if err != nil {
		return false, err
	}
	amount, err := decimal.NewFromString(b.Cost)
	if err != nil {
		return false, validationf("booking %d carries unparsable cost %q", b.ID, b.Cost)
	}
	return s.wallets.RefundBooking(ctx, w.ID, b.ID, amount, "refund: booking cancelled", ident.UserID)
}

// AddComment records the caller's comment on a booking; one per
// (booking, user) pair.
func (s *BookingService) AddComment(ctx context.Context, ident Identity, bookingID uint64, content string) (*model.Comment, error) {
	if content == "" {
		return nil, validationf("comment content is required")
	}
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	c := &model.Comment{BookingID: bookingID, UserID: ident.UserID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComment edits a comment; only its author or an admin may.
func (s *BookingService) UpdateComment(ctx context.Context, ident Identity, commentID uint64, content string) error {
	if content == "" {
		return validationf("comment content is required")
	}
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if !ident.IsAdmin() && c.UserID != ident.UserID {
		return repository.ErrForbidden
	}
	return s.comments.UpdateContent(ctx, commentID, content)
}

// ListComments returns a booking's comments with author names.
func (s *BookingService) ListComments(ctx context.Context, bookingID uint64) ([]repository.CommentDetail, error) {
	return s.comments.ListByBooking(ctx, bookingID)
}

func (s *BookingService) publish(ctx context.Context, queueName string, b *model.Booking) {
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
		log.Printf("booking: publish %s failed: %v", queueName, err)
	}
}

// effectiveEnd combines the booking's date with its end time, or its
// start time when no end exists, into a UTC instant.
func effectiveEnd(b *model.Booking) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", b.Date, time.UTC)
	if err != nil {
		return time.Time{}, validationf("booking %d carries unparsable date %q", b.ID, b.Date)
	}
	clock := b.Time
	if b.EndTime != nil && *b.EndTime != "" {
		clock = *b.EndTime
	}
	h, ok := availability.ParseClock(clock)
	if !ok {
		return time.Time{}, validationf("booking %d carries unparsable time %q", b.ID, clock)
	}
	return day.Add(time.Duration(h * float64(time.Hour))), nil
}

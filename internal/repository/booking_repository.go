package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  All timestamp
// columns are stored in UTC.  The slot-exclusivity invariant lives
// here: Create performs the conflict check and the insert inside one
// transaction so that two concurrent requests for the same (date,
// time) pair cannot both commit.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, date, time, end_time, type, cost, email, paid, meet_link, status, created_at, cancelled_at`

func scanBooking(row interface {
	Scan(dest ...any) error
}) (*model.Booking, error) {
	var b model.Booking
	var endTime, meetLink sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(&b.ID, &b.Date, &b.Time, &endTime, &b.Type, &b.Cost,
		&b.Email, &b.Paid, &meetLink, &b.Status, &b.CreatedAt, &cancelledAt)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		v := endTime.String
		b.EndTime = &v
	}
	if meetLink.Valid {
		v := meetLink.String
		b.MeetLink = &v
	}
	if cancelledAt.Valid {
		v := cancelledAt.Time
		b.CancelledAt = &v
	}
	return &b, nil
}

// Create inserts a new booking after verifying that its (date, time)
// slot is not held by another non-cancelled booking.  The check and
// the insert run in a single transaction; the SELECT takes row locks
// (FOR UPDATE) so a concurrent insert for the same slot serializes
// behind it and then fails the same check.  Cancelled rows release
// the slot.  On success the generated ID and creation timestamp are
// populated on the provided record.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const checkQ = `SELECT id FROM bookings WHERE date = ? AND time = ? AND status <> 'cancelled' FOR UPDATE`
	rows, err := tx.QueryContext(ctx, checkQ, b.Date, b.Time)
	if err != nil {
		return err
	}
	occupied := rows.Next()
	// A failed iteration must not read as a free slot.
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if occupied {
		return ErrSlotTaken
	}

	b.Status = model.BookingStatusConfirmed
	b.CreatedAt = time.Now().UTC()
	const insQ = `INSERT INTO bookings (date, time, end_time, type, cost, email, paid, status, created_at)
	              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insQ, b.Date, b.Time, b.EndTime, b.Type,
		b.Cost, b.Email, b.Paid, b.Status, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a booking by its identifier or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// HasFreeForEmail reports whether the given email has ever created a
// free booking, regardless of its status.  Cancelling a free session
// does not restore the free-session right.
func (r *BookingRepo) HasFreeForEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT 1 FROM bookings WHERE email = ? AND type = 'free' LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkPaid flips the settlement flag.  The update is conditional on
// paid=0 and status='confirmed': a repeated call reports
// ErrAlreadyPaid and a cancelled booking can never be settled.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64) error {
	const q = `UPDATE bookings SET paid = 1 WHERE id = ? AND paid = 0 AND status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing, cancelled and already-settled rows.
		b, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Cancelled() {
			return ErrAlreadyCancelled
		}
		return ErrAlreadyPaid
	}
	return nil
}

// SetMeetLink attaches a meeting link once the calendar collaborator
// returns one.  Best-effort callers ignore failures here.
func (r *BookingRepo) SetMeetLink(ctx context.Context, id uint64, link string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bookings SET meet_link = ? WHERE id = ?`, link, id)
	return err
}

// Cancel transitions a booking to its terminal state.  The update is
// conditional on status='confirmed', so a concurrent or repeated
// cancellation observes ErrAlreadyCancelled and the caller performs no
// second refund.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE bookings SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, q, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyCancelled
	}
	return nil
}

// ListAll returns every booking ordered newest date and time first.
// Intended for admin listings.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY date DESC, time DESC`
	return r.list(ctx, q)
}

// ListByEmail returns the bookings owned by the given email, same
// ordering as ListAll.
func (r *BookingRepo) ListByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE email = ? ORDER BY date DESC, time DESC`
	return r.list(ctx, q, email)
}

// ListActive returns all non-cancelled bookings.  The availability
// calculator derives blocked intervals from this set; cancelled rows
// no longer block their slot.
func (r *BookingRepo) ListActive(ctx context.Context) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE status <> 'cancelled'`
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// LatestUnpaid finds the most recently created unpaid, non-cancelled
// booking matching the given cost and owner email.  This backs the
// webhook reconciliation heuristic; costs are compared numerically so
// "50" and "50.00" match.
func (r *BookingRepo) LatestUnpaid(ctx context.Context, cost, email string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE CAST(cost AS DECIMAL(12,2)) = CAST(? AS DECIMAL(12,2))
	             AND email = ? AND paid = 0 AND status = 'confirmed'
	           ORDER BY created_at DESC LIMIT 1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, cost, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

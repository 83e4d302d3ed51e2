package repository

import (
	"context"
	"database/sql"

	"github.com/otomatiktech/consult-booking/internal/model"
)

// StatsRepo aggregates read-only figures for the admin dashboard.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo returns a new StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// Overview is the dashboard summary: counts, revenue and the short
// recent/upcoming booking lists.
type Overview struct {
	TotalBookings  int64             `json:"total_bookings"`
	PaidBookings   int64             `json:"paid_bookings"`
	FreeBookings   int64             `json:"free_bookings"`
	TotalUsers     int64             `json:"total_users"`
	Revenue        string            `json:"revenue"`
	BookingsByType map[string]int64  `json:"bookings_by_type"`
	Recent         []BookingOverview `json:"recent"`
	Upcoming       []BookingOverview `json:"upcoming"`
}

// BookingOverview is a booking row decorated with the owner's profile
// for the dashboard lists.
type BookingOverview struct {
	model.Booking
	UserName    string `json:"user_name"`
	UserPicture string `json:"user_picture"`
}

// Overview runs the dashboard aggregation queries.  Cancelled bookings
// count toward totals but not revenue; revenue sums the cost of paid
// bookings only.
func (r *StatsRepo) Overview(ctx context.Context) (*Overview, error) {
	var o Overview

	const countQ = `SELECT
	        COUNT(*),
	        COALESCE(SUM(type = 'paid'), 0),
	        COALESCE(SUM(type = 'free'), 0)
	    FROM bookings`
	if err := r.db.QueryRowContext(ctx, countQ).Scan(&o.TotalBookings, &o.PaidBookings, &o.FreeBookings); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&o.TotalUsers); err != nil {
		return nil, err
	}

	const revQ = `SELECT COALESCE(SUM(CAST(cost AS DECIMAL(12,2))), 0)
	              FROM bookings WHERE paid = 1 AND status <> 'cancelled'`
	if err := r.db.QueryRowContext(ctx, revQ).Scan(&o.Revenue); err != nil {
		return nil, err
	}

	byType, err := r.bookingsByType(ctx)
	if err != nil {
		return nil, err
	}
	o.BookingsByType = byType

	o.Recent, err = r.bookingList(ctx, `ORDER BY b.created_at DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	o.Upcoming, err = r.bookingList(ctx,
		`WHERE b.status <> 'cancelled' AND b.date >= CURDATE() ORDER BY b.date, b.time LIMIT 5`)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *StatsRepo) bookingsByType(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM bookings GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func (r *StatsRepo) bookingList(ctx context.Context, tail string) ([]BookingOverview, error) {
	q := `SELECT b.id, b.date, b.time, b.end_time, b.type, b.cost, b.email, b.paid,
	             b.meet_link, b.status, b.created_at, b.cancelled_at,
	             COALESCE(u.name, ''), COALESCE(u.picture, '')
	      FROM bookings b
	      LEFT JOIN users u ON u.email = b.email ` + tail
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingOverview, 0, 5)
	for rows.Next() {
		var bo BookingOverview
		var endTime, meetLink sql.NullString
		var cancelledAt sql.NullTime
		if err := rows.Scan(&bo.ID, &bo.Date, &bo.Time, &endTime, &bo.Type, &bo.Cost,
			&bo.Email, &bo.Paid, &meetLink, &bo.Status, &bo.CreatedAt, &cancelledAt,
			&bo.UserName, &bo.UserPicture); err != nil {
			return nil, err
		}
		if endTime.Valid {
			v := endTime.String
			bo.EndTime = &v
		}
		if meetLink.Valid {
			v := meetLink.String
			bo.MeetLink = &v
		}
		if cancelledAt.Valid {
			v := cancelledAt.Time
			bo.CancelledAt = &v
		}
		out = append(out, bo)
	}
	return out, rows.Err()
}

package model

import "time"

// BookingType distinguishes the two session kinds offered by the
// platform.  Free sessions are shorter (30 minutes by default) and a
// user may ever book only one; paid sessions carry a cost settled via
// the wallet or the payment gateway.
type BookingType string

const (
	BookingTypeFree BookingType = "free"
	BookingTypePaid BookingType = "paid"
)

// BookingStatus is the explicit lifecycle state of a booking.  It is
// always set at insert time; there is no implicit "confirmed by
// absence" state.  Cancelled is terminal.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking mirrors a row of the `bookings` table.  Dates are stored as
// ISO "YYYY-MM-DD" strings and times in the 12-hour "h:mm AM" form the
// booking UI submits; the availability calculator and the cancellation
// window derive 24-hour values from them on demand.
//
// Cost is a decimal-as-string ("0" for free sessions).  Paid is the
// settlement flag and is orthogonal to Status: a booking may be
// confirmed-and-unpaid (awaiting gateway verification) or
// cancelled-and-paid (refunded).
type Booking struct {
	ID          uint64        `json:"id"`                     // bookings.id
	Date        string        `json:"date"`                   // bookings.date ("2006-01-02")
	Time        string        `json:"time"`                   // bookings.time ("10:00 AM")
	EndTime     *string       `json:"end_time,omitempty"`     // bookings.end_time (nullable)
	Type        BookingType   `json:"type"`                   // bookings.type
	Cost        string        `json:"cost"`                   // bookings.cost (DECIMAL as string)
	Email       string        `json:"email"`                  // bookings.email (owner)
	Paid        bool          `json:"paid"`                   // bookings.paid
	MeetLink    *string       `json:"meet_link,omitempty"`    // bookings.meet_link (nullable)
	Status      BookingStatus `json:"status"`                 // bookings.status
	CreatedAt   time.Time     `json:"created_at"`             // bookings.created_at
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"` // bookings.cancelled_at (nullable)
}

// Cancelled reports whether the booking has reached its terminal state.
func (b *Booking) Cancelled() bool {
	return b.Status == BookingStatusCancelled
}

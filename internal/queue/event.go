// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingEvent is published when a booking is created, settled, or
// cancelled. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type BookingEvent struct {
	BookingID  uint64 `json:"booking_id"`
	Email      string `json:"email"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Type       string `json:"type"`
	Cost       string `json:"cost"`
	Paid       bool   `json:"paid"`
	MeetLink   string `json:"meet_link,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Queue names. Routing key equals the queue name on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueuePaymentSettled   = "payment.settled"
)

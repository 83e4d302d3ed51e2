package model

import "time"

// Comment is a note attached to a booking by a user.  The schema
// enforces at most one comment per (booking, user) pair; editing is
// restricted to the author or an admin.
type Comment struct {
	ID        uint64    `json:"id"`         // booking_comments.id
	BookingID uint64    `json:"booking_id"` // booking_comments.booking_id
	UserID    uint64    `json:"user_id"`    // booking_comments.user_id
	Content   string    `json:"content"`    // booking_comments.content
	CreatedAt time.Time `json:"created_at"` // booking_comments.created_at
	UpdatedAt time.Time `json:"updated_at"` // booking_comments.updated_at
}

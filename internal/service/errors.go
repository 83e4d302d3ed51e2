package service

import (
	"errors"
	"fmt"
)

// Policy errors surfaced by the booking and payment flows.  Handlers
// map them onto HTTP statuses; repository sentinels pass through
// unchanged.
var (
	// ErrFreeSessionUsed rejects a second lifetime free booking for an
	// email, regardless of what happened to the first one.
	ErrFreeSessionUsed = errors.New("free session already used")

	// ErrTooLateToCancel rejects cancellations within the 7-day window
	// before the session's effective end.
	ErrTooLateToCancel = errors.New("too late to cancel")

	// ErrBadWebhookSignature rejects webhook deliveries whose shared
	// secret header does not match.
	ErrBadWebhookSignature = errors.New("bad webhook signature")
)

// ValidationError reports malformed or missing input.  It carries a
// caller-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

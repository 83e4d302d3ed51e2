// Package repository defines error values shared across the stores.
// These sentinels let handlers and services distinguish failure modes
// with errors.Is and translate them into HTTP responses without
// inspecting SQL details.
package repository

import "errors"

// ErrSlotTaken is returned when a booking insert loses the race for a
// (date, time) slot or the slot is already occupied by a confirmed
// booking. Handlers translate this into HTTP 409.
var ErrSlotTaken = errors.New("slot already taken")

// ErrInsufficientFunds is returned by wallet debits when the amount
// exceeds the current balance. No ledger row is written in that case.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrAlreadyPaid is returned when marking a booking paid that has
// already been settled.
var ErrAlreadyPaid = errors.New("booking already paid")

// ErrAlreadyCancelled is returned when cancelling a booking that has
// already reached its terminal state.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrBookingNotFound is returned when no booking exists for an id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrWalletNotFound is returned when a wallet lookup finds no row and
// lazy creation was not requested.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrUserNotFound is returned when no user exists for an id or email.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrCommentExists is returned when a user tries to add a second
// comment to the same booking.
var ErrCommentExists = errors.New("comment already exists for this booking")

// ErrCommentNotFound is returned when no comment exists for an id.
var ErrCommentNotFound = errors.New("comment not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

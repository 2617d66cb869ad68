package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateSeat     = errors.New("seat listed more than once")
	ErrBusNotFound       = errors.New("bus not found")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrSeatBusMismatch   = errors.New("seat does not belong to bus")
	ErrSeatAlreadyBooked = errors.New("seat already booked")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("booking status change not allowed")
	ErrConflict          = errors.New("concurrent update, retry")
	ErrReceiptExhausted  = errors.New("could not allocate a unique receipt id")
)

// SeatError names the seat that failed validation. It unwraps to Kind.
type SeatError struct {
	Kind       error
	SeatID     int64
	SeatNumber string
}

func (e *SeatError) Error() string {
	if e.SeatNumber != "" {
		return fmt.Sprintf("seat %s (id %d): %v", e.SeatNumber, e.SeatID, e.Kind)
	}
	return fmt.Sprintf("seat %d: %v", e.SeatID, e.Kind)
}

func (e *SeatError) Unwrap() error {
	return e.Kind
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

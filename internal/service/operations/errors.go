package operations

import "errors"

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrBusNotFound       = errors.New("bus not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("booking status change not allowed")
	ErrSeatAlreadyBooked = errors.New("seat already booked")
	ErrConflict          = errors.New("concurrent update, retry")
)

package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/dirabus/internal/service/booking"
	"github.com/kirinyoku/dirabus/internal/service/catalog"
	"github.com/kirinyoku/dirabus/internal/service/operations"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: msg, Code: "VALIDATION_ERROR"})
}

// respondErr writes the status and error code for a service error.
// Unknown errors are logged by the request logger and reported as 500.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl *booking.RateLimitedError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate_limited", Message: rl.Error(), Code: "RATE_LIMITED"})
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal", Message: "internal server error", Code: code})
		return
	}

	c.JSON(status, ErrorResponse{Error: http.StatusText(status), Message: messageOf(err), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrUnauthenticated), errors.Is(err, operations.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, booking.ErrForbidden), errors.Is(err, operations.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"

	case errors.Is(err, booking.ErrBusNotFound),
		errors.Is(err, catalog.ErrBusNotFound),
		errors.Is(err, operations.ErrBusNotFound):
		return http.StatusNotFound, "BUS_NOT_FOUND"
	case errors.Is(err, catalog.ErrRouteNotFound):
		return http.StatusNotFound, "ROUTE_NOT_FOUND"
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, operations.ErrBookingNotFound):
		return http.StatusNotFound, "BOOKING_NOT_FOUND"

	case errors.Is(err, booking.ErrSeatNotFound):
		return http.StatusNotFound, "SEAT_NOT_FOUND"
	case errors.Is(err, booking.ErrSeatBusMismatch):
		return http.StatusBadRequest, "SEAT_BUS_MISMATCH"
	case errors.Is(err, booking.ErrDuplicateSeat):
		return http.StatusBadRequest, "DUPLICATE_SEAT"
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, operations.ErrInvalidInput),
		errors.Is(err, catalog.ErrDateRequired):
		return http.StatusBadRequest, "VALIDATION_ERROR"

	case errors.Is(err, booking.ErrSeatAlreadyBooked), errors.Is(err, operations.ErrSeatAlreadyBooked):
		return http.StatusConflict, "SEAT_ALREADY_BOOKED"
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, operations.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_STATUS_TRANSITION"
	case errors.Is(err, booking.ErrConflict), errors.Is(err, operations.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}

	return http.StatusInternalServerError, "INTERNAL"
}

// messageOf drops the service operation prefixes from err.
func messageOf(err error) string {
	msg := err.Error()
	for strings.HasPrefix(msg, "service.") {
		_, rest, ok := strings.Cut(msg, ": ")
		if !ok {
			break
		}
		msg = rest
	}
	return msg
}

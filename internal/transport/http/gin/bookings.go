package httpgin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/dirabus/internal/receipt"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/service"
	"github.com/sirupsen/logrus"
)

const idempotencyLockTTL = 60 * time.Second

// @Summary  Book seats (idempotent)
// @Tags     bookings
// @Security BearerAuth
// @Param    Idempotency-Key  header  string                false  "client request key"
// @Param    req              body    CreateBookingRequest  true   "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seat already booked / key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger logrus.FieldLogger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFrom(c)

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, err := req.toInput()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey string
		if idem != nil && idemKey != "" && p != nil {
			storageKey = redisrepo.KeyIdemBooking(p.UserID, idemKey)

			if replayed := replayIdempotent(c, idem, storageKey, idemKey); replayed {
				return
			}

			locked, err := idem.AcquireLock(ctx, storageKey, idempotencyLockTTL)
			switch {
			case err != nil:
				logger.WithError(err).Warn("idempotency store unavailable, booking without it")
				storageKey = ""
			case !locked:
				if replayIdempotent(c, idem, storageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{
					Error:   "conflict",
					Message: "a request with this idempotency key is in progress",
					Code:    "IDEMPOTENCY_KEY_IN_PROGRESS",
				})
				return
			}
		}

		b, err := svcs.Booking.CreateBooking(ctx, p, in)
		if err != nil {
			if storageKey != "" {
				_ = idem.Release(ctx, storageKey)
			}
			respondErr(c, err)
			return
		}

		body, err := json.Marshal(b)
		if err != nil {
			respondErr(c, err)
			return
		}

		if storageKey != "" {
			if err := idem.SaveResult(ctx, storageKey, body); err != nil {
				logger.WithError(err).WithField("receipt_id", b.ReceiptID).Warn("save idempotent result")
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
	}
}

func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(http.StatusCreated, "application/json; charset=utf-8", payload)
	return true
}

// @Summary  Get own booking by receipt
// @Tags     bookings
// @Security BearerAuth
// @Param    receipt  path  string  true  "Receipt ID"
// @Success  200 {object} domain.Booking
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{receipt} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Booking.GetBookingByReceipt(c.Request.Context(), principalFrom(c), c.Param("receipt"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Download own booking as a PDF receipt
// @Tags     bookings
// @Security BearerAuth
// @Produce  application/pdf
// @Param    receipt  path  string  true  "Receipt ID"
// @Success  200 {file} binary
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{receipt}/receipt.pdf [get]
func handleBookingReceiptPDF(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		b, err := svcs.Booking.GetBookingByReceipt(ctx, principalFrom(c), c.Param("receipt"))
		if err != nil {
			respondErr(c, err)
			return
		}

		bus, err := svcs.Catalog.GetBus(ctx, b.BusID)
		if err != nil {
			respondErr(c, err)
			return
		}

		doc, filename, err := receipt.Render(b, bus)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
		c.Data(http.StatusOK, "application/pdf", doc)
	}
}

// @Summary  Cancel own booking
// @Tags     bookings
// @Security BearerAuth
// @Param    receipt  path  string  true  "Receipt ID"
// @Success  200 {object} domain.Booking
// @Failure  409 {object} ErrorResponse "already cancelled or completed"
// @Router   /bookings/{receipt}/cancel [put]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Booking.CancelBooking(c.Request.Context(), principalFrom(c), c.Param("receipt"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List own bookings, newest first
// @Tags     bookings
// @Security BearerAuth
// @Success  200 {array} domain.Booking
// @Router   /user/bookings [get]
func handleUserBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Booking.ListUserBookings(c.Request.Context(), principalFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

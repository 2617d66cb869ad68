package httpgin

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/dirabus/internal/domain"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/service"
	"github.com/kirinyoku/dirabus/internal/service/operations"
	"github.com/sirupsen/logrus"
)

const streamHeartbeat = 25 * time.Second

// @Summary  List buses the caller works on (admins: all buses)
// @Tags     operations
// @Security BearerAuth
// @Success  200 {array} domain.Bus
// @Failure  403 {object} ErrorResponse
// @Router   /conductor/buses [get]
func handleConductorBuses(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		buses, err := svcs.Operations.Buses(c.Request.Context(), principalFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, buses)
	}
}

// @Summary  List bookings on the caller's buses
// @Tags     operations
// @Security BearerAuth
// @Param    bus   query  int     false  "Bus ID"
// @Param    date  query  string  false  "Travel date (YYYY-MM-DD)"
// @Success  200 {array} domain.Booking
// @Router   /conductor/bookings [get]
func handleConductorBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseOptionalInt64Query(c, "bus")
		if !ok {
			return
		}
		date, ok := parseDateQuery(c, false)
		if !ok {
			return
		}

		out, err := svcs.Operations.BusBookings(c.Request.Context(), principalFrom(c), operations.BookingQuery{
			BusID:      busID,
			TravelDate: date,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Report the current position of a bus
// @Tags     operations
// @Security BearerAuth
// @Param    id   path  int                    true  "Bus ID"
// @Param    req  body  UpdateLocationRequest  true  "payload"
// @Success  200 {object} domain.LocationUpdate
// @Failure  403 {object} ErrorResponse "not assigned to the bus"
// @Failure  404 {object} ErrorResponse
// @Router   /buses/{id}/location [put]
func handleUpdateLocation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req UpdateLocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := svcs.Operations.UpdateBusLocation(c.Request.Context(), principalFrom(c), busID, domain.Location{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// @Summary  Change a booking's status
// @Tags     operations
// @Security BearerAuth
// @Param    receipt  path  string               true  "Receipt ID"
// @Param    req      body  UpdateStatusRequest  true  "payload"
// @Success  200 {object} domain.Booking
// @Failure  409 {object} ErrorResponse "transition not allowed or seat taken"
// @Router   /bookings/{receipt}/status [put]
func handleUpdateBookingStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Operations.UpdateBookingStatus(c.Request.Context(), principalFrom(c), c.Param("receipt"), req.Status)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Stream live positions of a bus (server-sent events)
// @Tags     catalog
// @Produce  text/event-stream
// @Param    id  path  int  true  "Bus ID"
// @Success  200 {object} domain.LocationUpdate "event: location"
// @Failure  404 {object} ErrorResponse
// @Router   /buses/{id}/location/stream [get]
func handleLocationStream(svcs *service.Services, events *redisrepo.EventsPubSub, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if events == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Code: "STREAM_UNAVAILABLE"})
			return
		}

		bus, err := svcs.Catalog.GetBus(c.Request.Context(), busID)
		if err != nil {
			respondErr(c, err)
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		updates := make(chan domain.LocationUpdate, 16)
		done := make(chan error, 1)

		go func() {
			done <- events.SubscribeBusLocation(ctx, busID, func(ctx context.Context, u domain.LocationUpdate) {
				select {
				case updates <- u:
				default:
					// slow client, drop
				}
			})
		}()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		if bus.CurrentLocation != nil {
			c.SSEvent("location", domain.LocationUpdate{BusID: bus.ID, Location: *bus.CurrentLocation})
		}

		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case err := <-done:
				if err != nil && ctx.Err() == nil {
					logger.WithError(err).WithField("bus_id", busID).Warn("location stream ended")
				}
				return false
			case u := <-updates:
				c.SSEvent("location", u)
				return true
			case <-heartbeat.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			}
		})
	}
}

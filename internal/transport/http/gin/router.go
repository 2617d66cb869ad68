package httpgin

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/dirabus/internal/domain"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/service"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Deps struct {
	Services       *service.Services
	Tokens         TokenValidator
	Idempotency    *redisrepo.IdempotencyStore
	Events         *redisrepo.EventsPubSub
	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if d.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Logger = l
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS(d.AllowedOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	svcs := d.Services
	authn := AuthMiddleware(d.Tokens)
	staff := RequireRole(domain.RoleConductor, domain.RoleAdmin)

	// Catalog
	r.GET("/routes", handleListRoutes(svcs))
	r.GET("/routes/:id/stations", handleRouteStations(svcs))
	r.GET("/buses/route/:route_id", handleBusesByRoute(svcs))
	r.GET("/buses/:id/seats", handleBusSeats(svcs))
	r.GET("/buses/:id/availability", handleAvailability(svcs))
	r.GET("/buses/:id/location/stream", handleLocationStream(svcs, d.Events, d.Logger))

	// Passenger bookings
	r.POST("/bookings", authn, handleCreateBooking(svcs, d.Idempotency, d.Logger))
	r.GET("/bookings/:receipt", authn, handleGetBooking(svcs))
	r.GET("/bookings/:receipt/receipt.pdf", authn, handleBookingReceiptPDF(svcs))
	r.PUT("/bookings/:receipt/cancel", authn, handleCancelBooking(svcs))
	r.GET("/user/bookings", authn, handleUserBookings(svcs))

	// Conductor and admin
	r.GET("/conductor/buses", authn, staff, handleConductorBuses(svcs))
	r.GET("/conductor/bookings", authn, staff, handleConductorBookings(svcs))
	r.PUT("/buses/:id/location", authn, staff, handleUpdateLocation(svcs))
	r.PUT("/bookings/:receipt/status", authn, staff, handleUpdateBookingStatus(svcs))

	return r
}

// @Summary  List routes with their stations
// @Tags     catalog
// @Success  200  {array}  domain.Route
// @Router   /routes [get]
func handleListRoutes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes, err := svcs.Catalog.ListRoutes(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, routes, "public, max-age=60")
	}
}

// @Summary  List stations of a route in travel order
// @Tags     catalog
// @Param    id  path  int  true  "Route ID"
// @Success  200  {array}   domain.Station
// @Failure  404  {object}  ErrorResponse
// @Router   /routes/{id}/stations [get]
func handleRouteStations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		stations, err := svcs.Catalog.StationsByRoute(c.Request.Context(), routeID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, stations, "public, max-age=60")
	}
}

// @Summary  List active buses of a route with free seats for a date
// @Tags     catalog
// @Param    route_id  path   int     true  "Route ID"
// @Param    date      query  string  true  "Travel date (YYYY-MM-DD)"
// @Success  200  {array}   domain.BusWithAvailability
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /buses/route/{route_id} [get]
func handleBusesByRoute(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		routeID, ok := parseInt64Param(c, "route_id")
		if !ok {
			return
		}
		date, ok := parseDateQuery(c, true)
		if !ok {
			return
		}
		buses, err := svcs.Catalog.ActiveBusesByRoute(c.Request.Context(), routeID, *date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, buses)
	}
}

// @Summary  List seats of a bus, optionally with booked flags for a date
// @Tags     catalog
// @Param    id    path   int     true   "Bus ID"
// @Param    date  query  string  false  "Travel date (YYYY-MM-DD)"
// @Success  200  {array}   domain.SeatWithBooking
// @Failure  404  {object}  ErrorResponse
// @Router   /buses/{id}/seats [get]
func handleBusSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		date, ok := parseDateQuery(c, false)
		if !ok {
			return
		}
		seats, err := svcs.Catalog.SeatsByBus(c.Request.Context(), busID, date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, seats)
	}
}

// @Summary  Count free seats of a bus
// @Tags     catalog
// @Param    id    path   int     true   "Bus ID"
// @Param    date  query  string  false  "Travel date (YYYY-MM-DD); capacity when omitted"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /buses/{id}/availability [get]
func handleAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		busID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		date, ok := parseDateQuery(c, false)
		if !ok {
			return
		}
		n, err := svcs.Booking.AvailableSeatCount(c.Request.Context(), busID, date)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := AvailabilityResponse{BusID: busID, AvailableSeats: n}
		if date != nil {
			resp.TravelDate = date.Format(domain.DateLayout)
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, resp)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseOptionalInt64Query(c *gin.Context, name string) (*int64, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

// parseDateQuery reads the date query parameter. A missing date yields nil
// unless required.
func parseDateQuery(c *gin.Context, required bool) (*time.Time, bool) {
	s := c.Query("date")
	if s == "" {
		if required {
			badRequest(c, "date query parameter is required (YYYY-MM-DD)")
			return nil, false
		}
		return nil, true
	}

	d, err := domain.ParseDate(s)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

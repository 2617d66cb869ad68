package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type BusStatus string

const (
	BusActive   BusStatus = "active"
	BusInactive BusStatus = "inactive"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type PassengerType string

const (
	PassengerAdult   PassengerType = "adult"
	PassengerStudent PassengerType = "student"
)

type Route struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	StartLocation     string    `json:"start_location"`
	EndLocation       string    `json:"end_location"`
	DistanceKM        float64   `json:"distance"`
	EstimatedDuration int       `json:"estimated_duration"`
	Stations          []Station `json:"stations"`
}

type Station struct {
	ID        int64   `json:"id"`
	RouteID   int64   `json:"route"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Order     int     `json:"order"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Bus struct {
	ID              int64           `json:"id"`
	PlateNumber     string          `json:"plate_number"`
	RouteID         int64           `json:"route"`
	Capacity        int             `json:"capacity"`
	PricePerSeat    decimal.Decimal `json:"price_per_seat"`
	StudentDiscount int             `json:"student_discount"`
	DepartureTime   string          `json:"departure_time"`
	ArrivalTime     string          `json:"arrival_time"`
	Status          BusStatus       `json:"status"`
	CurrentLocation *Location       `json:"current_location,omitempty"`
}

// BusWithAvailability is a bus as listed for a given travel date.
type BusWithAvailability struct {
	Bus
	AvailableSeats int64 `json:"available_seats"`
}

// Seat flags are a denormalized hint only. Availability for a date is
// derived from confirmed bookings.
type Seat struct {
	ID          int64  `json:"id"`
	BusID       int64  `json:"bus"`
	SeatNumber  string `json:"seat_number"`
	IsAvailable bool   `json:"is_available"`
	IsReserved  bool   `json:"is_reserved"`
}

type SeatWithBooking struct {
	Seat
	Booked bool `json:"booked"`
}

type PassengerInfo struct {
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	PassengerType PassengerType `json:"passengerType"`
	SeatID        *int64        `json:"seatId,omitempty"`
	SeatNumber    string        `json:"seatNumber,omitempty"`
}

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	UserID        int64           `json:"user"`
	BusID         int64           `json:"bus"`
	TravelDate    time.Time       `json:"travel_date"`
	SeatIDs       []int64         `json:"seats"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PassengerInfo []PassengerInfo `json:"passenger_info"`
	Status        BookingStatus   `json:"status"`
	BookingDate   time.Time       `json:"booking_date"`
	ReceiptID     string          `json:"receipt_id"`
}

type bookingJSON Booking

// MarshalJSON renders TravelDate as a YYYY-MM-DD calendar date.
func (b Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		bookingJSON
		TravelDate string `json:"travel_date"`
	}{
		bookingJSON: bookingJSON(b),
		TravelDate:  b.TravelDate.Format(DateLayout),
	})
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var aux struct {
		*bookingJSON
		TravelDate string `json:"travel_date"`
	}
	aux.bookingJSON = (*bookingJSON)(b)

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TravelDate == "" {
		b.TravelDate = time.Time{}
		return nil
	}

	d, err := ParseDate(aux.TravelDate)
	if err != nil {
		return err
	}
	b.TravelDate = d

	return nil
}

type LocationUpdate struct {
	BusID       int64     `json:"bus_id"`
	ConductorID int64     `json:"conductor_id"`
	Location    Location  `json:"location"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ParseDate parses a YYYY-MM-DD travel date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

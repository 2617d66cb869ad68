package httpgin

import (
	"errors"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/service/booking"
)

// CreateBookingRequest accepts either explicit seat/passenger pairs in
// Seats or the positional SeatIDs and PassengerInfo lists.
type CreateBookingRequest struct {
	BusID         int64                  `json:"bus" binding:"required,gt=0"`
	TravelDate    string                 `json:"travel_date" binding:"required"`
	Seats         []SeatPassenger        `json:"seats"`
	SeatIDs       []int64                `json:"seat_ids"`
	PassengerInfo []domain.PassengerInfo `json:"passenger_info"`
}

type SeatPassenger struct {
	SeatID    int64                 `json:"seat_id" binding:"required"`
	Passenger *domain.PassengerInfo `json:"passenger"`
}

func (r CreateBookingRequest) toInput() (booking.CreateBookingInput, error) {
	date, err := domain.ParseDate(r.TravelDate)
	if err != nil {
		return booking.CreateBookingInput{}, errors.New("travel_date must be YYYY-MM-DD")
	}

	in := booking.CreateBookingInput{BusID: r.BusID, TravelDate: date}

	switch {
	case len(r.Seats) > 0 && len(r.SeatIDs) > 0:
		return booking.CreateBookingInput{}, errors.New("use either seats or seat_ids, not both")
	case len(r.Seats) > 0:
		in.Seats = make([]booking.SeatRequest, len(r.Seats))
		for i, s := range r.Seats {
			in.Seats[i] = booking.SeatRequest{SeatID: s.SeatID, Passenger: s.Passenger}
		}
		in.Unassigned = r.PassengerInfo
	default:
		in.Seats, in.Unassigned = booking.PairPassengers(r.SeatIDs, r.PassengerInfo)
	}

	return in, nil
}

type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type UpdateStatusRequest struct {
	Status domain.BookingStatus `json:"status" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type AvailabilityResponse struct {
	BusID          int64  `json:"bus"`
	TravelDate     string `json:"travel_date,omitempty"`
	AvailableSeats int64  `json:"available_seats"`
}

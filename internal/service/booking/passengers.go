package booking

import "github.com/kirinyoku/dirabus/internal/domain"

// SeatRequest is one seat of a booking request with the passenger who
// will occupy it, if any.
type SeatRequest struct {
	SeatID    int64
	Passenger *domain.PassengerInfo
}

// PairPassengers converts the positional request form into seat requests.
// Passenger i goes with seat i. Passengers beyond the last seat are
// returned unchanged as unassigned; seats beyond the last passenger carry
// no passenger.
func PairPassengers(seatIDs []int64, passengers []domain.PassengerInfo) ([]SeatRequest, []domain.PassengerInfo) {
	seats := make([]SeatRequest, len(seatIDs))
	for i, id := range seatIDs {
		seats[i].SeatID = id
		if i < len(passengers) {
			p := passengers[i]
			seats[i].Passenger = &p
		}
	}

	var unassigned []domain.PassengerInfo
	if len(passengers) > len(seatIDs) {
		unassigned = append(unassigned, passengers[len(seatIDs):]...)
	}

	return seats, unassigned
}

// enrichPassengers stamps each assigned passenger with its seat and appends
// the unassigned entries as given.
func enrichPassengers(
	seats []SeatRequest,
	byID map[int64]domain.Seat,
	unassigned []domain.PassengerInfo,
) []domain.PassengerInfo {
	out := make([]domain.PassengerInfo, 0, len(seats)+len(unassigned))

	for _, s := range seats {
		if s.Passenger == nil {
			continue
		}

		p := *s.Passenger
		id := s.SeatID
		p.SeatID = &id
		p.SeatNumber = byID[s.SeatID].SeatNumber
		out = append(out, p)
	}

	return append(out, unassigned...)
}

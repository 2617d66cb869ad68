package booking

import (
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SeatPrice is the price of one seat on bus for a passenger of type t.
// Students get the bus's percentage discount; everyone else, including a
// seat with no passenger, pays the full price. The result is rounded to cents.
func SeatPrice(bus domain.Bus, t domain.PassengerType) decimal.Decimal {
	if t != domain.PassengerStudent || bus.StudentDiscount <= 0 {
		return bus.PricePerSeat
	}

	pct := decimal.NewFromInt(int64(100 - bus.StudentDiscount))
	return bus.PricePerSeat.Mul(pct).Div(hundred).Round(2)
}

// TotalPrice sums the seat prices of a booking request.
func TotalPrice(bus domain.Bus, seats []SeatRequest) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seats {
		var t domain.PassengerType
		if s.Passenger != nil {
			t = s.Passenger.PassengerType
		}
		total = total.Add(SeatPrice(bus, t))
	}
	return total
}

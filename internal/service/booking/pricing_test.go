package booking

import (
	"strings"
	"testing"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSeatPrice(t *testing.T) {
	bus := func(price string, discount int) domain.Bus {
		return domain.Bus{PricePerSeat: decimal.RequireFromString(price), StudentDiscount: discount}
	}

	tests := []struct {
		name string
		bus  domain.Bus
		typ  domain.PassengerType
		want string
	}{
		{"adult pays full", bus("100.00", 20), domain.PassengerAdult, "100.00"},
		{"student discounted", bus("100.00", 20), domain.PassengerStudent, "80.00"},
		{"no passenger pays full", bus("100.00", 20), "", "100.00"},
		{"no discount", bus("45.50", 0), domain.PassengerStudent, "45.50"},
		{"rounded to cents", bus("33.33", 15), domain.PassengerStudent, "28.33"},
		{"free for students", bus("12.00", 100), domain.PassengerStudent, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SeatPrice(tt.bus, tt.typ)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestTotalPrice_IsExactSum(t *testing.T) {
	bus := domain.Bus{PricePerSeat: decimal.RequireFromString("0.10"), StudentDiscount: 0}

	seats := make([]SeatRequest, 3)
	got := TotalPrice(bus, seats)

	assert.Equal(t, "0.30", got.StringFixed(2))
	assert.True(t, decimal.RequireFromString("0.3").Equal(got))
}

func TestPairPassengers(t *testing.T) {
	a := domain.PassengerInfo{Name: "A"}
	b := domain.PassengerInfo{Name: "B", PassengerType: domain.PassengerStudent}
	c := domain.PassengerInfo{Name: "C"}

	seats, extra := PairPassengers([]int64{10, 11}, []domain.PassengerInfo{a, b, c})
	assert.Len(t, seats, 2)
	assert.Equal(t, "A", seats[0].Passenger.Name)
	assert.Equal(t, domain.PassengerStudent, seats[1].Passenger.PassengerType)
	assert.Equal(t, []domain.PassengerInfo{c}, extra)

	seats, extra = PairPassengers([]int64{10, 11, 12}, []domain.PassengerInfo{a})
	assert.Nil(t, extra)
	assert.NotNil(t, seats[0].Passenger)
	assert.Nil(t, seats[1].Passenger)
	assert.Nil(t, seats[2].Passenger)
}

func TestNewReceiptID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewReceiptID()
		assert.Len(t, id, 14)
		assert.True(t, strings.HasPrefix(id, "RCP-"))
		assert.Equal(t, strings.ToUpper(id), id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

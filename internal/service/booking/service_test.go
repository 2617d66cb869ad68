package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatsFor(ids []int64, passengers ...domain.PassengerInfo) []SeatRequest {
	seats, _ := PairPassengers(ids, passengers)
	return seats
}

func TestCreateBooking_PricesAndEnrichesPassengers(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1", "A2")
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)

	b, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID:      1,
		TravelDate: travelDay,
		Seats: seatsFor(ids,
			domain.PassengerInfo{Name: "Abebe", PassengerType: domain.PassengerAdult},
			domain.PassengerInfo{Name: "Sara", PassengerType: domain.PassengerStudent},
		),
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("180.00").Equal(b.TotalPrice), "got %s", b.TotalPrice)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, int64(3), b.UserID)
	assert.Equal(t, ids, b.SeatIDs)
	assert.True(t, strings.HasPrefix(b.ReceiptID, "RCP-"))
	assert.Len(t, b.ReceiptID, 14)

	require.Len(t, b.PassengerInfo, 2)
	assert.Equal(t, ids[0], *b.PassengerInfo[0].SeatID)
	assert.Equal(t, "A1", b.PassengerInfo[0].SeatNumber)
	assert.Equal(t, "A2", b.PassengerInfo[1].SeatNumber)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, notifier.len())
}

func TestCreateBooking_SurplusEntries(t *testing.T) {
	t.Run("extra passengers are kept as given", func(t *testing.T) {
		store := newMemStore()
		ids := store.addBus(testBus(1, 40), "A1")
		svc := newTestService(store, nil, nil)

		seats, unassigned := PairPassengers(ids, []domain.PassengerInfo{
			{Name: "Abebe", PassengerType: domain.PassengerAdult},
			{Name: "Extra", Phone: "0911", PassengerType: domain.PassengerStudent},
		})

		b, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
			BusID: 1, TravelDate: travelDay, Seats: seats, Unassigned: unassigned,
		})
		require.NoError(t, err)

		require.Len(t, b.PassengerInfo, 2)
		assert.Equal(t, domain.PassengerInfo{Name: "Extra", Phone: "0911", PassengerType: domain.PassengerStudent}, b.PassengerInfo[1])
		assert.True(t, decimal.RequireFromString("100.00").Equal(b.TotalPrice), "unseated student is not priced")
	})

	t.Run("extra seats pay full price", func(t *testing.T) {
		store := newMemStore()
		ids := store.addBus(testBus(1, 40), "A1", "A2")
		svc := newTestService(store, nil, nil)

		b, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
			BusID: 1, TravelDate: travelDay,
			Seats: seatsFor(ids, domain.PassengerInfo{Name: "Sara", PassengerType: domain.PassengerStudent}),
		})
		require.NoError(t, err)

		assert.True(t, decimal.RequireFromString("180.00").Equal(b.TotalPrice))
		assert.Len(t, b.PassengerInfo, 1)
	})
}

func TestCreateBooking_ValidationOrder(t *testing.T) {
	setup := func() (*memStore, []int64, []int64) {
		store := newMemStore()
		own := store.addBus(testBus(1, 40), "A1", "A2")
		foreign := store.addBus(testBus(2, 40), "B1")
		store.addBooking(domain.Booking{
			ID: uuid.New(), UserID: 9, BusID: 1, TravelDate: travelDay,
			SeatIDs: []int64{own[1]}, Status: domain.BookingConfirmed, ReceiptID: "RCP-EXISTING01",
		})
		return store, own, foreign
	}

	tests := []struct {
		name   string
		seats  func(own, foreign []int64) []int64
		failAt int
		want   error
	}{
		{"foreign seat first", func(own, foreign []int64) []int64 { return []int64{foreign[0], own[1]} }, 0, ErrSeatBusMismatch},
		{"booked seat first", func(own, foreign []int64) []int64 { return []int64{own[1], foreign[0]} }, 0, ErrSeatAlreadyBooked},
		{"unknown seat", func(own, foreign []int64) []int64 { return []int64{own[0], 999} }, 1, ErrSeatNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, own, foreign := setup()
			svc := newTestService(store, nil, nil)
			seatIDs := tt.seats(own, foreign)

			_, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
				BusID: 1, TravelDate: travelDay, Seats: seatsFor(seatIDs),
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var seatErr *SeatError
			require.True(t, errors.As(err, &seatErr))
			assert.Equal(t, seatIDs[tt.failAt], seatErr.SeatID)

			assert.Equal(t, 1, store.count(), "nothing persisted")
		})
	}
}

func TestCreateBooking_OtherDateOrCancelledDoesNotBlock(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")
	store.addBooking(domain.Booking{
		ID: uuid.New(), BusID: 1, TravelDate: travelDay, SeatIDs: ids,
		Status: domain.BookingCancelled, ReceiptID: "RCP-CANCELLED1",
	})
	store.addBooking(domain.Booking{
		ID: uuid.New(), BusID: 1, TravelDate: travelDay.AddDate(0, 0, 1), SeatIDs: ids,
		Status: domain.BookingConfirmed, ReceiptID: "RCP-NEXTDAY001",
	})
	svc := newTestService(store, nil, nil)

	_, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids),
	})
	assert.NoError(t, err)
}

func TestCreateBooking_RejectsBadRequests(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, nil, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids)})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, Seats: seatsFor(ids)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBooking(ctx, passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor([]int64{ids[0], ids[0]}),
	})
	assert.ErrorIs(t, err, ErrDuplicateSeat)

	_, err = svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 77, TravelDate: travelDay, Seats: seatsFor(ids)})
	assert.ErrorIs(t, err, ErrBusNotFound)

	assert.Equal(t, 0, store.count())
}

func TestCreateBooking_ReceiptCollisionRetries(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1", "A2")
	store.addBooking(domain.Booking{ID: uuid.New(), BusID: 1, TravelDate: travelDay, ReceiptID: "RCP-AAAAAAAAAA", Status: domain.BookingCancelled})

	svc := newTestService(store, nil, nil)
	codes := []string{"RCP-AAAAAAAAAA", "RCP-BBBBBBBBBB"}
	svc.newReceipt = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	b, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids[:1]),
	})
	require.NoError(t, err)
	assert.Equal(t, "RCP-BBBBBBBBBB", b.ReceiptID)

	svc.newReceipt = func() string { return "RCP-BBBBBBBBBB" }
	_, err = svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids[1:]),
	})
	assert.ErrorIs(t, err, ErrReceiptExhausted)
}

func TestCreateBooking_CommitConflictIsSeatAlreadyBooked(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")
	store.commitErr = repository.ErrConflict
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)

	_, err := svc.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids),
	})
	assert.ErrorIs(t, err, ErrSeatAlreadyBooked)
	assert.Equal(t, 0, notifier.len(), "nothing published without a commit")
}

func TestCreateBooking_RateLimited(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")

	limited := newTestService(store, nil, stubLimiter{decision: redisrepo.Decision{Allowed: false, RetryAfter: 20 * time.Second}})
	_, err := limited.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids),
	})

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 20*time.Second, rl.RetryAfter)

	broken := newTestService(store, nil, stubLimiter{err: errors.New("redis down")})
	_, err = broken.CreateBooking(context.Background(), passenger, CreateBookingInput{
		BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids),
	})
	assert.NoError(t, err, "limiter outage does not block bookings")
}

func TestCreateBooking_ConcurrentSameSeat(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")
	svc := newTestService(store, nil, nil)

	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			<-start

			_, err := svc.CreateBooking(context.Background(), &domain.Principal{UserID: user, Role: domain.RolePassenger}, CreateBookingInput{
				BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids),
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSeatAlreadyBooked):
				conflicts++
			}
		}(int64(i + 1))
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, store.count())
}

func TestAvailableSeatCount(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 3), "A1", "A2", "A3")
	svc := newTestService(store, nil, nil)
	ctx := context.Background()
	day := travelDay

	n, err := svc.AvailableSeatCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = svc.AvailableSeatCount(ctx, 1, &day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids[:2])})
	require.NoError(t, err)

	n, err = svc.AvailableSeatCount(ctx, 1, &day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.AvailableSeatCount(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "no date means raw capacity")

	_, err = svc.AvailableSeatCount(ctx, 99, &day)
	assert.ErrorIs(t, err, ErrBusNotFound)
}

func TestAvailableSeatCount_NeverNegative(t *testing.T) {
	store := newMemStore()
	store.addBus(testBus(1, 1))
	store.addBooking(domain.Booking{
		ID: uuid.New(), BusID: 1, TravelDate: travelDay, SeatIDs: []int64{7, 8},
		Status: domain.BookingConfirmed, ReceiptID: "RCP-OVERSOLD01",
	})
	svc := newTestService(store, nil, nil)

	day := travelDay.Add(13 * time.Hour)
	n, err := svc.AvailableSeatCount(context.Background(), 1, &day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGetBookingByReceipt(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1")
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids)})
	require.NoError(t, err)

	got, err := svc.GetBookingByReceipt(ctx, passenger, created.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetBookingByReceipt(ctx, otherUser, created.ReceiptID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetBookingByReceipt(ctx, nil, created.ReceiptID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.GetBookingByReceipt(ctx, passenger, "RCP-NOPE000000")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListUserBookings(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 40), "A1", "A2")
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids[:1])})
	require.NoError(t, err)
	second, err := svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids[1:])})
	require.NoError(t, err)

	list, err := svc.ListUserBookings(ctx, passenger)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ReceiptID, list[0].ReceiptID)
	assert.Equal(t, first.ReceiptID, list[1].ReceiptID)

	list, err = svc.ListUserBookings(ctx, otherUser)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ListUserBookings(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCancelBooking(t *testing.T) {
	store := newMemStore()
	ids := store.addBus(testBus(1, 2), "A1", "A2")
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, nil)
	ctx := context.Background()
	day := travelDay

	b, err := svc.CreateBooking(ctx, passenger, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids)})
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, otherUser, b.ReceiptID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := svc.CancelBooking(ctx, passenger, b.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, 2, notifier.len())

	n, err := svc.AvailableSeatCount(ctx, 1, &day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "cancelled seats are free again")

	_, err = svc.CancelBooking(ctx, passenger, b.ReceiptID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CreateBooking(ctx, otherUser, CreateBookingInput{BusID: 1, TravelDate: travelDay, Seats: seatsFor(ids)})
	assert.NoError(t, err)
}

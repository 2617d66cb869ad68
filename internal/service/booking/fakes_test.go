package booking

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/uow"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Repository. Transactions run one at a time,
// which is the observable behaviour of serializable isolation.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	buses    map[int64]domain.Bus
	seats    map[int64]domain.Seat
	bookings []domain.Booking

	commitErr error
}

func newMemStore() *memStore {
	return &memStore{
		buses: make(map[int64]domain.Bus),
		seats: make(map[int64]domain.Seat),
	}
}

func (m *memStore) addBus(b domain.Bus, seatNumbers ...string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buses[b.ID] = b

	ids := make([]int64, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		id := int64(len(m.seats) + 1)
		m.seats[id] = domain.Seat{ID: id, BusID: b.ID, SeatNumber: n, IsAvailable: true}
		ids = append(ids, id)
	}

	return ids
}

func (m *memStore) addBooking(b domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, b)
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) GetBus(_ context.Context, busID int64) (domain.Bus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buses[busID]
	if !ok {
		return domain.Bus{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memStore) SeatsByID(_ context.Context, seatIDs []int64) (map[int64]domain.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]domain.Seat)
	for _, id := range seatIDs {
		if s, ok := m.seats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (m *memStore) TakenSeats(_ context.Context, busID int64, date time.Time, seatIDs []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[int64]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}

	taken := make(map[int64]bool)
	for _, b := range m.bookings {
		if b.BusID != busID || !b.TravelDate.Equal(date) || !b.Status.HoldsSeats() {
			continue
		}
		for _, id := range b.SeatIDs {
			if want[id] {
				taken[id] = true
			}
		}
	}
	return taken, nil
}

func (m *memStore) ReceiptExists(_ context.Context, receiptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ReceiptID == receiptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountConfirmedSeats(_ context.Context, busID int64, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, b := range m.bookings {
		if b.BusID == busID && b.TravelDate.Equal(date) && b.Status.HoldsSeats() {
			n += int64(len(b.SeatIDs))
		}
	}
	return n, nil
}

func (m *memStore) CreateBooking(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.bookings {
		if existing.ReceiptID == b.ReceiptID {
			return repository.ErrReceiptTaken
		}
	}

	m.bookings = append(m.bookings, b)
	return nil
}

func (m *memStore) GetByReceipt(_ context.Context, receiptID string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ReceiptID == receiptID {
			return b, nil
		}
	}
	return domain.Booking{}, repository.ErrNotFound
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Booking{}
	for i := len(m.bookings) - 1; i >= 0; i-- {
		if m.bookings[i].UserID == userID {
			out = append(out, m.bookings[i])
		}
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.bookings {
		if m.bookings[i].ID == bookingID {
			m.bookings[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

// Do runs fn under the transaction lock. Writes made by a failed fn are
// not rolled back; the service only writes as its last step.
func (m *memStore) Do(ctx context.Context, fn func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	var hooks []uow.AfterCommit
	if err := fn(ctx, m, func(h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}

	if m.commitErr != nil {
		return m.commitErr
	}

	for _, h := range hooks {
		h(ctx)
	}
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Booking
}

func (n *recordingNotifier) PublishBookingChanged(_ context.Context, b domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, b)
	return nil
}

func (n *recordingNotifier) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type stubLimiter struct {
	decision redisrepo.Decision
	err      error
}

func (l stubLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return l.decision, l.err
}

var (
	travelDay = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	passenger = &domain.Principal{UserID: 3, Role: domain.RolePassenger}
	otherUser = &domain.Principal{UserID: 4, Role: domain.RolePassenger}
)

func testBus(id int64, capacity int) domain.Bus {
	return domain.Bus{
		ID:              id,
		PlateNumber:     "AA-" + strconv.FormatInt(id, 10),
		RouteID:         1,
		Capacity:        capacity,
		PricePerSeat:    decimal.RequireFromString("100.00"),
		StudentDiscount: 20,
		Status:          domain.BusActive,
	}
}

func newTestService(store *memStore, n Notifier, l Limiter) *Service {
	return newService(store, store, n, l, nil, Config{ReceiptAttempts: 3})
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	"github.com/kirinyoku/dirabus/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/uow"
	"github.com/sirupsen/logrus"
)

// Repository is the store surface the booking flow needs.
type Repository interface {
	GetBus(ctx context.Context, busID int64) (domain.Bus, error)
	SeatsByID(ctx context.Context, seatIDs []int64) (map[int64]domain.Seat, error)
	TakenSeats(ctx context.Context, busID int64, date time.Time, seatIDs []int64) (map[int64]bool, error)
	ReceiptExists(ctx context.Context, receiptID string) (bool, error)
	CountConfirmedSeats(ctx context.Context, busID int64, date time.Time) (int64, error)
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetByReceipt(ctx context.Context, receiptID string) (domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	SetStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error
}

// Transactor runs fn in one serializable transaction with a Repository
// bound to it.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error) error
}

// Notifier announces committed booking changes to other instances.
type Notifier interface {
	PublishBookingChanged(ctx context.Context, b domain.Booking) error
}

// Limiter throttles booking attempts per user.
type Limiter interface {
	Allow(ctx context.Context, subject string) (redisrepo.Decision, error)
}

// Config tunes the booking service. Zero values fall back to defaults.
type Config struct {
	// ReceiptAttempts bounds how many receipt codes are tried before giving up.
	ReceiptAttempts int
}

// Service creates, reads and cancels passenger bookings.
type Service struct {
	repo     Repository
	tx       Transactor
	notifier Notifier
	limiter  Limiter
	log      logrus.FieldLogger
	cfg      Config

	newReceipt func() string
	now        func() time.Time
}

// New wires the service to the postgres store. A nil pubsub disables change
// notifications and a nil limiter disables rate limiting.
func New(
	store *postgres.Store,
	pubsub *redisrepo.EventsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	log logrus.FieldLogger,
	cfg Config,
) *Service {
	tx := uow.NewRunner(uow.NewUoW(store), func(db postgres.DB) Repository {
		return store.Bookings().With(db)
	})

	var (
		n Notifier
		l Limiter
	)
	if pubsub != nil {
		n = pubsub
	}
	if limiter != nil {
		l = limiter
	}

	return newService(store.Bookings(), tx, n, l, log, cfg)
}

func newService(
	repo Repository,
	tx Transactor,
	notifier Notifier,
	limiter Limiter,
	log logrus.FieldLogger,
	cfg Config,
) *Service {
	if cfg.ReceiptAttempts <= 0 {
		cfg.ReceiptAttempts = 5
	}

	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Service{
		repo:       repo,
		tx:         tx,
		notifier:   notifier,
		limiter:    limiter,
		log:        log.WithField("component", "booking"),
		cfg:        cfg,
		newReceipt: NewReceiptID,
		now:        time.Now,
	}
}

type CreateBookingInput struct {
	BusID      int64
	TravelDate time.Time
	Seats      []SeatRequest
	// Unassigned passenger entries are stored after the seated ones as given.
	Unassigned []domain.PassengerInfo
}

// CreateBooking books the requested seats on a bus for the travel date.
//
// Seats are checked one by one in request order. The first seat that does
// not exist, belongs to another bus, or is held by a confirmed booking for
// the same bus and date fails the whole request with a *SeatError and
// nothing is stored.
//
// Returns:
//   - domain.Booking: the confirmed booking.
//   - error: ErrUnauthenticated, ErrForbidden, ErrInvalidInput, ErrDuplicateSeat.
//   - error: ErrBusNotFound if the bus does not exist.
//   - error: *SeatError wrapping ErrSeatNotFound, ErrSeatBusMismatch or ErrSeatAlreadyBooked.
//   - error: ErrSeatAlreadyBooked when a concurrent booking won the seat.
//   - error: *RateLimitedError when the caller is booking too often.
func (s *Service) CreateBooking(ctx context.Context, p *domain.Principal, in CreateBookingInput) (domain.Booking, error) {
	const op = "service.booking.CreateBooking"

	if !p.Authenticated() {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	if !p.Can(domain.CapBook) {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	seatIDs, err := validateInput(in)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.checkRate(ctx, p.UserID); err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	travelDate := domain.DateOnly(in.TravelDate)

	var created domain.Booking

	err = s.tx.Do(ctx, func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error {
		bus, err := repo.GetBus(ctx, in.BusID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBusNotFound
			}
			return err
		}

		seats, err := repo.SeatsByID(ctx, seatIDs)
		if err != nil {
			return err
		}

		taken, err := repo.TakenSeats(ctx, bus.ID, travelDate, seatIDs)
		if err != nil {
			return err
		}

		for _, id := range seatIDs {
			seat, ok := seats[id]
			switch {
			case !ok:
				return &SeatError{Kind: ErrSeatNotFound, SeatID: id}
			case seat.BusID != bus.ID:
				return &SeatError{Kind: ErrSeatBusMismatch, SeatID: id, SeatNumber: seat.SeatNumber}
			case taken[id]:
				return &SeatError{Kind: ErrSeatAlreadyBooked, SeatID: id, SeatNumber: seat.SeatNumber}
			}
		}

		receipt, err := s.allocateReceipt(ctx, repo)
		if err != nil {
			return err
		}

		b := domain.Booking{
			ID:            uuid.New(),
			UserID:        p.UserID,
			BusID:         bus.ID,
			TravelDate:    travelDate,
			SeatIDs:       seatIDs,
			TotalPrice:    TotalPrice(bus, in.Seats),
			PassengerInfo: enrichPassengers(in.Seats, seats, in.Unassigned),
			Status:        domain.BookingConfirmed,
			BookingDate:   s.now().UTC(),
			ReceiptID:     receipt,
		}

		if err := repo.CreateBooking(ctx, b); err != nil {
			return err
		}

		created = b

		after(func(ctx context.Context) {
			s.publish(ctx, b)
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	s.log.WithFields(logrus.Fields{
		"receipt_id":  created.ReceiptID,
		"user_id":     created.UserID,
		"bus_id":      created.BusID,
		"travel_date": created.TravelDate.Format(domain.DateLayout),
		"seats":       len(created.SeatIDs),
		"total_price": created.TotalPrice.StringFixed(2),
	}).Info("booking created")

	return created, nil
}

func validateInput(in CreateBookingInput) ([]int64, error) {
	if in.BusID <= 0 {
		return nil, fmt.Errorf("%w: bus id is required", ErrInvalidInput)
	}
	if in.TravelDate.IsZero() {
		return nil, fmt.Errorf("%w: travel date is required", ErrInvalidInput)
	}
	if len(in.Seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidInput)
	}

	ids := make([]int64, 0, len(in.Seats))
	seen := make(map[int64]struct{}, len(in.Seats))

	for _, s := range in.Seats {
		if s.SeatID <= 0 {
			return nil, fmt.Errorf("%w: invalid seat id %d", ErrInvalidInput, s.SeatID)
		}
		if _, dup := seen[s.SeatID]; dup {
			return nil, &SeatError{Kind: ErrDuplicateSeat, SeatID: s.SeatID}
		}
		seen[s.SeatID] = struct{}{}
		ids = append(ids, s.SeatID)
	}

	return ids, nil
}

func (s *Service) checkRate(ctx context.Context, userID int64) error {
	if s.limiter == nil {
		return nil
	}

	d, err := s.limiter.Allow(ctx, "user:"+strconv.FormatInt(userID, 10))
	if err != nil {
		s.log.WithError(err).Warn("rate limiter unavailable, allowing request")
		return nil
	}

	if !d.Allowed {
		return &RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}

func (s *Service) allocateReceipt(ctx context.Context, repo Repository) (string, error) {
	for i := 0; i < s.cfg.ReceiptAttempts; i++ {
		code := s.newReceipt()

		exists, err := repo.ReceiptExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}

		s.log.WithField("receipt_id", code).Debug("receipt id collision")
	}

	return "", ErrReceiptExhausted
}

// mapWriteErr turns store conflicts into booking errors. Lost serialization
// races and seat uniqueness violations both mean another booking took a seat.
func mapWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatTaken), errors.Is(err, repository.ErrConflict):
		return ErrSeatAlreadyBooked
	case errors.Is(err, repository.ErrReceiptTaken):
		return ErrConflict
	}
	return err
}

func (s *Service) publish(ctx context.Context, b domain.Booking) {
	if s.notifier == nil {
		return
	}

	if err := s.notifier.PublishBookingChanged(ctx, b); err != nil {
		s.log.WithError(err).WithField("receipt_id", b.ReceiptID).Warn("publish booking change")
	}
}

// AvailableSeatCount returns how many seats of the bus are still free on
// date. Without a date the bus capacity is returned. The count never drops
// below zero.
func (s *Service) AvailableSeatCount(ctx context.Context, busID int64, date *time.Time) (int64, error) {
	const op = "service.booking.AvailableSeatCount"

	bus, err := s.repo.GetBus(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrBusNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	capacity := int64(bus.Capacity)
	if date == nil {
		return capacity, nil
	}

	booked, err := s.repo.CountConfirmedSeats(ctx, bus.ID, domain.DateOnly(*date))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return max(0, capacity-booked), nil
}

// GetBookingByReceipt returns the caller's booking with the receipt code.
//
// Returns:
//   - error: ErrUnauthenticated when no caller is known.
//   - error: ErrBookingNotFound if no booking carries the receipt.
//   - error: ErrForbidden if the booking belongs to someone else.
func (s *Service) GetBookingByReceipt(ctx context.Context, p *domain.Principal, receiptID string) (domain.Booking, error) {
	const op = "service.booking.GetBookingByReceipt"

	b, err := s.ownedBooking(ctx, s.repo, p, receiptID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// ListUserBookings lists the caller's bookings, newest first.
func (s *Service) ListUserBookings(ctx context.Context, p *domain.Principal) ([]domain.Booking, error) {
	const op = "service.booking.ListUserBookings"

	if !p.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	if !p.Can(domain.CapViewOwnBookings) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	out, err := s.repo.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CancelBooking cancels the caller's booking and frees its seats.
// Only pending and confirmed bookings can be cancelled.
func (s *Service) CancelBooking(ctx context.Context, p *domain.Principal, receiptID string) (domain.Booking, error) {
	const op = "service.booking.CancelBooking"

	var cancelled domain.Booking

	err := s.tx.Do(ctx, func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error {
		b, err := s.ownedBooking(ctx, repo, p, receiptID)
		if err != nil {
			return err
		}

		if !b.Status.CanTransitionTo(domain.BookingCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, domain.BookingCancelled)
		}

		if err := repo.SetStatus(ctx, b.ID, domain.BookingCancelled); err != nil {
			return err
		}

		b.Status = domain.BookingCancelled
		cancelled = b

		after(func(ctx context.Context) {
			s.publish(ctx, b)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%s: %w", op, ErrConflict)
		}
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.WithFields(logrus.Fields{
		"receipt_id": cancelled.ReceiptID,
		"user_id":    p.UserID,
	}).Info("booking cancelled")

	return cancelled, nil
}

func (s *Service) ownedBooking(ctx context.Context, repo Repository, p *domain.Principal, receiptID string) (domain.Booking, error) {
	if !p.Authenticated() {
		return domain.Booking{}, ErrUnauthenticated
	}

	b, err := repo.GetByReceipt(ctx, receiptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Booking{}, ErrBookingNotFound
		}
		return domain.Booking{}, err
	}

	if b.UserID != p.UserID {
		return domain.Booking{}, ErrForbidden
	}

	return b, nil
}

package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	"github.com/kirinyoku/dirabus/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/uow"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	IsConductorOf(ctx context.Context, userID, busID int64) (bool, error)
	Buses(ctx context.Context, conductorID *int64) ([]domain.Bus, error)
	ListBusBookings(ctx context.Context, f postgres.BookingFilter) ([]domain.Booking, error)
	UpdateBusLocation(ctx context.Context, u domain.LocationUpdate) error
	GetByReceipt(ctx context.Context, receiptID string) (domain.Booking, error)
	SetStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error
}

type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error) error
}

type Notifier interface {
	PublishBookingChanged(ctx context.Context, b domain.Booking) error
	PublishBusLocation(ctx context.Context, u domain.LocationUpdate) error
}

// storeRepo joins the admin and booking repositories over one handle.
type storeRepo struct {
	*postgres.AdminRepo
	*postgres.BookingRepo
}

type Service struct {
	repo     Repository
	tx       Transactor
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

func New(store *postgres.Store, pubsub *redisrepo.EventsPubSub, log logrus.FieldLogger) *Service {
	bind := func(db postgres.DB) Repository {
		return storeRepo{store.Admin().With(db), store.Bookings().With(db)}
	}

	var n Notifier
	if pubsub != nil {
		n = pubsub
	}

	return newService(
		storeRepo{store.Admin(), store.Bookings()},
		uow.NewRunner(uow.NewUoW(store), bind),
		n,
		log,
	)
}

func newService(repo Repository, tx Transactor, notifier Notifier, log logrus.FieldLogger) *Service {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Service{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		log:      log.WithField("component", "operations"),
		now:      time.Now,
	}
}

// Buses lists the buses the caller is assigned to. Admins see every bus.
func (s *Service) Buses(ctx context.Context, p *domain.Principal) ([]domain.Bus, error) {
	const op = "service.operations.Buses"

	if err := authorize(p, domain.CapViewBusBookings); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buses, err := s.repo.Buses(ctx, scope(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buses, nil
}

type BookingQuery struct {
	BusID      *int64
	TravelDate *time.Time
}

// BusBookings lists bookings on the caller's buses, newest first,
// optionally narrowed to one bus and travel date.
func (s *Service) BusBookings(ctx context.Context, p *domain.Principal, q BookingQuery) ([]domain.Booking, error) {
	const op = "service.operations.BusBookings"

	if err := authorize(p, domain.CapViewBusBookings); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.repo.ListBusBookings(ctx, postgres.BookingFilter{
		ConductorID: scope(p),
		BusID:       q.BusID,
		TravelDate:  q.TravelDate,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateBusLocation records the current position of a bus and fans it out
// to live subscribers once stored.
//
// Returns:
//   - error: operations.ErrInvalidInput for coordinates out of range.
//   - error: operations.ErrForbidden if a conductor is not assigned to the bus.
//   - error: operations.ErrBusNotFound if the bus does not exist.
func (s *Service) UpdateBusLocation(ctx context.Context, p *domain.Principal, busID int64, loc domain.Location) (domain.LocationUpdate, error) {
	const op = "service.operations.UpdateBusLocation"

	if err := authorize(p, domain.CapUpdateBusLocation); err != nil {
		return domain.LocationUpdate{}, fmt.Errorf("%s: %w", op, err)
	}

	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return domain.LocationUpdate{}, fmt.Errorf("%s: %w: coordinates out of range", op, ErrInvalidInput)
	}

	u := domain.LocationUpdate{
		BusID:       busID,
		ConductorID: p.UserID,
		Location:    loc,
		RecordedAt:  s.now().UTC(),
	}

	err := s.tx.Do(ctx, func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error {
		if err := assigned(ctx, repo, p, busID); err != nil {
			return err
		}

		if err := repo.UpdateBusLocation(ctx, u); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBusNotFound
			}
			return err
		}

		after(func(ctx context.Context) {
			if s.notifier == nil {
				return
			}
			if err := s.notifier.PublishBusLocation(ctx, u); err != nil {
				s.log.WithError(err).WithField("bus_id", busID).Warn("publish bus location")
			}
		})

		return nil
	})
	if err != nil {
		return domain.LocationUpdate{}, fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	return u, nil
}

// UpdateBookingStatus moves a booking along its status machine. Confirming
// a booking claims its seats again and fails with ErrSeatAlreadyBooked if
// another confirmed booking holds one of them.
func (s *Service) UpdateBookingStatus(
	ctx context.Context,
	p *domain.Principal,
	receiptID string,
	status domain.BookingStatus,
) (domain.Booking, error) {
	const op = "service.operations.UpdateBookingStatus"

	if err := authorize(p, domain.CapUpdateBookingStatus); err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if !status.Valid() {
		return domain.Booking{}, fmt.Errorf("%s: %w: unknown status %q", op, ErrInvalidInput, status)
	}

	var updated domain.Booking

	err := s.tx.Do(ctx, func(ctx context.Context, repo Repository, after func(uow.AfterCommit)) error {
		b, err := repo.GetByReceipt(ctx, receiptID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if err := assigned(ctx, repo, p, b.BusID); err != nil {
			return err
		}

		if !b.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, status)
		}

		if err := repo.SetStatus(ctx, b.ID, status); err != nil {
			return err
		}

		prev := b.Status
		b.Status = status
		updated = b

		after(func(ctx context.Context) {
			s.log.WithFields(logrus.Fields{
				"receipt_id": b.ReceiptID,
				"from":       prev,
				"to":         status,
				"by":         p.UserID,
			}).Info("booking status changed")

			if s.notifier == nil {
				return
			}
			if err := s.notifier.PublishBookingChanged(ctx, b); err != nil {
				s.log.WithError(err).WithField("receipt_id", b.ReceiptID).Warn("publish booking change")
			}
		})

		return nil
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	return updated, nil
}

func authorize(p *domain.Principal, c domain.Capability) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.Can(c) {
		return ErrForbidden
	}
	return nil
}

// scope returns the conductor filter for p, nil for admins.
func scope(p *domain.Principal) *int64 {
	if p.Can(domain.CapViewAllBuses) {
		return nil
	}
	id := p.UserID
	return &id
}

func assigned(ctx context.Context, repo Repository, p *domain.Principal, busID int64) error {
	if p.Can(domain.CapViewAllBuses) {
		return nil
	}

	ok, err := repo.IsConductorOf(ctx, p.UserID, busID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func mapWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatTaken):
		return ErrSeatAlreadyBooked
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	}
	return err
}

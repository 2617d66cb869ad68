package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	"github.com/kirinyoku/dirabus/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	ListRoutes(ctx context.Context) ([]domain.Route, error)
	StationsByRoute(ctx context.Context, routeID int64) ([]domain.Station, error)
	ActiveBusesByRoute(ctx context.Context, routeID int64, date time.Time) ([]domain.BusWithAvailability, error)
	GetBus(ctx context.Context, busID int64) (domain.Bus, error)
	SeatsByBus(ctx context.Context, busID int64, date *time.Time) ([]domain.SeatWithBooking, error)
}

type Config struct {
	// CacheTTL applies to routes and stations. Seat availability is never cached.
	CacheTTL time.Duration
}

type Service struct {
	repo  Repository
	cache *redisrepo.Cache
	log   logrus.FieldLogger
	cfg   Config
}

func New(store *postgres.Store, cache *redisrepo.Cache, log logrus.FieldLogger, cfg Config) *Service {
	return newService(store.Query(), cache, log, cfg)
}

func newService(repo Repository, cache *redisrepo.Cache, log logrus.FieldLogger, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Service{
		repo:  repo,
		cache: cache,
		log:   log.WithField("component", "catalog"),
		cfg:   cfg,
	}
}

// ListRoutes lists every route with its stations.
func (s *Service) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	const op = "service.catalog.ListRoutes"

	routes, err := cached(ctx, s, redisrepo.KeyRoutes(), s.repo.ListRoutes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return routes, nil
}

// StationsByRoute lists the stations of a route in travel order.
//
// Returns:
//   - []domain.Station: stations ordered by their position on the route.
//   - error: catalog.ErrRouteNotFound if the route does not exist.
func (s *Service) StationsByRoute(ctx context.Context, routeID int64) ([]domain.Station, error) {
	const op = "service.catalog.StationsByRoute"

	stations, err := cached(ctx, s, redisrepo.KeyRouteStations(routeID),
		func(ctx context.Context) ([]domain.Station, error) {
			st, err := s.repo.StationsByRoute(ctx, routeID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrRouteNotFound
			}
			return st, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stations, nil
}

// ActiveBusesByRoute lists the active buses of a route with the number of
// seats still free on date.
//
// Returns:
//   - error: catalog.ErrDateRequired for a zero date.
//   - error: catalog.ErrRouteNotFound if the route does not exist.
func (s *Service) ActiveBusesByRoute(ctx context.Context, routeID int64, date time.Time) ([]domain.BusWithAvailability, error) {
	const op = "service.catalog.ActiveBusesByRoute"

	if date.IsZero() {
		return nil, fmt.Errorf("%s: %w", op, ErrDateRequired)
	}

	buses, err := s.repo.ActiveBusesByRoute(ctx, routeID, domain.DateOnly(date))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buses, nil
}

// SeatsByBus lists the seats of a bus. With a date each seat also reports
// whether a confirmed booking holds it on that day.
func (s *Service) SeatsByBus(ctx context.Context, busID int64, date *time.Time) ([]domain.SeatWithBooking, error) {
	const op = "service.catalog.SeatsByBus"

	if _, err := s.repo.GetBus(ctx, busID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBusNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seats, err := s.repo.SeatsByBus(ctx, busID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return seats, nil
}

// GetBus returns a bus by ID.
func (s *Service) GetBus(ctx context.Context, busID int64) (domain.Bus, error) {
	const op = "service.catalog.GetBus"

	b, err := s.repo.GetBus(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Bus{}, fmt.Errorf("%s: %w", op, ErrBusNotFound)
		}
		return domain.Bus{}, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// cached reads key through the cache. When redis itself fails the value
// is loaded straight from the store.
func cached[T any](ctx context.Context, s *Service, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}

	var loadErr error
	v, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (T, error) {
		v, err := load(ctx)
		loadErr = err
		return v, err
	})
	if err == nil || loadErr != nil {
		return v, err
	}

	s.log.WithError(err).WithField("key", key).Warn("cache unavailable, reading from store")

	return load(ctx)
}

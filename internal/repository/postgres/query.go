package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/dirabus/internal/domain"
)

type QueryRepo struct {
	pool DB
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ListRoutes lists all routes with their stations in travel order.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//
// Returns:
//   - []domain.Route: routes ordered by name, never nil.
//   - error: any database error.
func (r *QueryRepo) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	const op = "postgres.QueryRepo.ListRoutes"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, start_location, end_location, distance_km, estimated_duration
		 FROM routes
		 ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	routes := []domain.Route{}
	index := make(map[int64]int)

	for rows.Next() {
		var rt domain.Route
		if err := rows.Scan(
			&rt.ID,
			&rt.Name,
			&rt.StartLocation,
			&rt.EndLocation,
			&rt.DistanceKM,
			&rt.EstimatedDuration,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}

		rt.Stations = []domain.Station{}
		index[rt.ID] = len(routes)
		routes = append(routes, rt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(routes) == 0 {
		return routes, nil
	}

	stations, err := r.stations(ctx, db, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, st := range stations {
		if i, ok := index[st.RouteID]; ok {
			routes[i].Stations = append(routes[i].Stations, st)
		}
	}

	return routes, nil
}

// StationsByRoute lists the stations of a route ordered by their position on it.
//
// Returns:
//   - []domain.Station: stations, empty when the route has none.
//   - error: repository.ErrNotFound if the route does not exist.
func (r *QueryRepo) StationsByRoute(ctx context.Context, routeID int64) ([]domain.Station, error) {
	const op = "postgres.QueryRepo.StationsByRoute"

	db := r.handle()

	if err := r.routeExists(ctx, db, routeID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := r.stations(ctx, db, &routeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ActiveBusesByRoute lists active buses of a route together with the number
// of seats still free on the travel date.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - routeID: route to list buses for.
//   - date: travel date the availability is computed for.
//
// Returns:
//   - []domain.BusWithAvailability: buses ordered by departure time.
//   - error: repository.ErrNotFound if the route does not exist.
func (r *QueryRepo) ActiveBusesByRoute(
	ctx context.Context,
	routeID int64,
	date time.Time,
) ([]domain.BusWithAvailability, error) {
	const op = "postgres.QueryRepo.ActiveBusesByRoute"

	db := r.handle()

	if err := r.routeExists(ctx, db, routeID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT `+busColumns+`,
		        GREATEST(0, b.capacity - (
		            SELECT count(*)
		            FROM booking_seats bs
		            WHERE bs.bus_id = b.id AND bs.travel_date = $2 AND bs.confirmed
		        ))
		 FROM buses b
		 WHERE b.route_id = $1 AND b.status = 'active'
		 ORDER BY b.departure_time, b.id`,
		routeID, domain.DateOnly(date),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.BusWithAvailability{}
	for rows.Next() {
		var bwa domain.BusWithAvailability

		b, err := scanBus(withTail(rows, &bwa.AvailableSeats))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}

		bwa.Bus = b
		out = append(out, bwa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// GetBus retrieves a bus by its ID.
func (r *QueryRepo) GetBus(ctx context.Context, busID int64) (domain.Bus, error) {
	const op = "postgres.QueryRepo.GetBus"

	b, err := scanBus(r.handle().QueryRow(ctx,
		`SELECT `+busColumns+` FROM buses b WHERE b.id = $1`,
		busID,
	))
	if err != nil {
		return domain.Bus{}, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b, nil
}

// SeatsByBus lists the seats of a bus ordered by label. When date is set,
// Booked reports whether a confirmed booking holds the seat on that date.
func (r *QueryRepo) SeatsByBus(ctx context.Context, busID int64, date *time.Time) ([]domain.SeatWithBooking, error) {
	const op = "postgres.QueryRepo.SeatsByBus"

	var day *time.Time
	if date != nil {
		d := domain.DateOnly(*date)
		day = &d
	}

	rows, err := r.handle().Query(ctx,
		`SELECT s.id, s.bus_id, s.seat_number, s.is_available, s.is_reserved,
		        $2::date IS NOT NULL AND EXISTS (
		            SELECT 1 FROM booking_seats bs
		            WHERE bs.seat_id = s.id AND bs.travel_date = $2::date AND bs.confirmed
		        )
		 FROM seats s
		 WHERE s.bus_id = $1
		 ORDER BY s.seat_number`,
		busID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.SeatWithBooking{}
	for rows.Next() {
		var s domain.SeatWithBooking
		if err := rows.Scan(
			&s.ID,
			&s.BusID,
			&s.SeatNumber,
			&s.IsAvailable,
			&s.IsReserved,
			&s.Booked,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *QueryRepo) routeExists(ctx context.Context, db DB, routeID int64) error {
	var id int64
	if err := db.QueryRow(ctx, `SELECT id FROM routes WHERE id = $1`, routeID).Scan(&id); err != nil {
		return translateDBErr(err)
	}
	return nil
}

func (r *QueryRepo) stations(ctx context.Context, db DB, routeID *int64) ([]domain.Station, error) {
	rows, err := db.Query(ctx,
		`SELECT id, route_id, name, latitude, longitude, "order"
		 FROM stations
		 WHERE $1::bigint IS NULL OR route_id = $1
		 ORDER BY route_id, "order", id`,
		routeID,
	)
	if err != nil {
		return nil, translateDBErr(err)
	}

	defer rows.Close()

	out := []domain.Station{}
	for rows.Next() {
		var st domain.Station
		if err := rows.Scan(&st.ID, &st.RouteID, &st.Name, &st.Latitude, &st.Longitude, &st.Order); err != nil {
			return nil, translateDBErr(err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// tailScanner appends extra destinations after the ones passed to Scan.
type tailScanner struct {
	row  scanner
	tail []any
}

func withTail(row scanner, tail ...any) scanner {
	return tailScanner{row: row, tail: tail}
}

func (t tailScanner) Scan(dest ...any) error {
	return t.row.Scan(append(dest, t.tail...)...)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
)

// AdminRepo serves conductor and admin operations on buses and their bookings.
type AdminRepo struct {
	pool DB
	db   DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AdminRepo) IsConductorOf(ctx context.Context, userID, busID int64) (bool, error) {
	const op = "postgres.AdminRepo.IsConductorOf"

	var ok bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bus_conductors WHERE bus_id = $1 AND user_id = $2)`,
		busID, userID,
	).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return ok, nil
}

// Buses lists buses ordered by ID. A nil conductorID lists every bus,
// otherwise only the buses the conductor is assigned to.
func (r *AdminRepo) Buses(ctx context.Context, conductorID *int64) ([]domain.Bus, error) {
	const op = "postgres.AdminRepo.Buses"

	rows, err := r.handle().Query(ctx,
		`SELECT `+busColumns+`
		 FROM buses b
		 WHERE $1::bigint IS NULL
		    OR EXISTS (SELECT 1 FROM bus_conductors bc WHERE bc.bus_id = b.id AND bc.user_id = $1)
		 ORDER BY b.id`,
		conductorID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Bus{}
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// BookingFilter narrows ListBusBookings. Nil fields do not filter.
type BookingFilter struct {
	ConductorID *int64
	BusID       *int64
	TravelDate  *time.Time
}

// ListBusBookings lists bookings on buses matching the filter, newest first.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - f: conductor, bus and travel date filters.
//
// Returns:
//   - []domain.Booking: matching bookings, never nil.
//   - error: any database error.
func (r *AdminRepo) ListBusBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error) {
	const op = "postgres.AdminRepo.ListBusBookings"

	var day *time.Time
	if f.TravelDate != nil {
		d := domain.DateOnly(*f.TravelDate)
		day = &d
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings bk
		 WHERE ($1::bigint IS NULL
		        OR EXISTS (SELECT 1 FROM bus_conductors bc WHERE bc.bus_id = bk.bus_id AND bc.user_id = $1))
		   AND ($2::bigint IS NULL OR bk.bus_id = $2)
		   AND ($3::date IS NULL OR bk.travel_date = $3)
		 ORDER BY bk.booking_date DESC`,
		f.ConductorID, f.BusID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateBusLocation stores the bus's current position and appends it to the
// location history.
//
// Returns:
//   - error: repository.ErrNotFound if the bus does not exist.
func (r *AdminRepo) UpdateBusLocation(ctx context.Context, u domain.LocationUpdate) error {
	const op = "postgres.AdminRepo.UpdateBusLocation"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE buses SET current_lat = $2, current_lng = $3 WHERE id = $1`,
		u.BusID, u.Location.Latitude, u.Location.Longitude,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	var conductor *int64
	if u.ConductorID > 0 {
		conductor = &u.ConductorID
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO bus_location_updates(bus_id, conductor_id, latitude, longitude, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.BusID, conductor, u.Location.Latitude, u.Location.Longitude, u.RecordedAt,
	); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
)

type BookingRepo struct {
	pool DB
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const busColumns = `b.id, b.plate_number, b.route_id, b.capacity, b.price_per_seat,
	b.student_discount, to_char(b.departure_time, 'HH24:MI'), to_char(b.arrival_time, 'HH24:MI'),
	b.status, b.current_lat, b.current_lng`

const bookingColumns = `bk.id, bk.user_id, bk.bus_id, bk.travel_date, bk.total_price,
	bk.passenger_info, bk.status, bk.booking_date, bk.receipt_id,
	COALESCE(
		(SELECT array_agg(bs.seat_id ORDER BY bs.position)
		 FROM booking_seats bs WHERE bs.booking_id = bk.id),
		'{}'::bigint[]
	)`

type scanner interface {
	Scan(dest ...any) error
}

func scanBus(row scanner) (domain.Bus, error) {
	var (
		b        domain.Bus
		status   string
		lat, lng *float64
	)

	if err := row.Scan(
		&b.ID,
		&b.PlateNumber,
		&b.RouteID,
		&b.Capacity,
		&b.PricePerSeat,
		&b.StudentDiscount,
		&b.DepartureTime,
		&b.ArrivalTime,
		&status,
		&lat,
		&lng,
	); err != nil {
		return domain.Bus{}, err
	}

	b.Status = domain.BusStatus(status)
	if lat != nil && lng != nil {
		b.CurrentLocation = &domain.Location{Latitude: *lat, Longitude: *lng}
	}

	return b, nil
}

func scanBooking(row scanner) (domain.Booking, error) {
	var (
		b         domain.Booking
		status    string
		passenger []byte
	)

	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.BusID,
		&b.TravelDate,
		&b.TotalPrice,
		&passenger,
		&status,
		&b.BookingDate,
		&b.ReceiptID,
		&b.SeatIDs,
	); err != nil {
		return domain.Booking{}, err
	}

	b.Status = domain.BookingStatus(status)
	b.TravelDate = domain.DateOnly(b.TravelDate)

	if len(passenger) > 0 {
		if err := json.Unmarshal(passenger, &b.PassengerInfo); err != nil {
			return domain.Booking{}, fmt.Errorf("decode passenger_info: %w", err)
		}
	}

	return b, nil
}

// GetBus retrieves a bus by its ID.
//
// Returns:
//   - domain.Bus: the bus when found.
//   - error: repository.ErrNotFound if the bus does not exist.
func (r *BookingRepo) GetBus(ctx context.Context, busID int64) (domain.Bus, error) {
	const op = "postgres.BookingRepo.GetBus"

	b, err := scanBus(r.handle().QueryRow(ctx,
		`SELECT `+busColumns+`
		 FROM buses b
		 WHERE b.id = $1`,
		busID,
	))
	if err != nil {
		return domain.Bus{}, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b, nil
}

// SeatsByID loads the given seats keyed by ID. Unknown IDs are absent
// from the result.
func (r *BookingRepo) SeatsByID(ctx context.Context, seatIDs []int64) (map[int64]domain.Seat, error) {
	const op = "postgres.BookingRepo.SeatsByID"

	rows, err := r.handle().Query(ctx,
		`SELECT id, bus_id, seat_number, is_available, is_reserved
		 FROM seats
		 WHERE id = ANY($1)`,
		seatIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := make(map[int64]domain.Seat, len(seatIDs))
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.SeatNumber, &s.IsAvailable, &s.IsReserved); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// TakenSeats returns the subset of seatIDs held by a confirmed booking
// for the bus on the travel date.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - busID: bus the seats belong to.
//   - date: travel date.
//   - seatIDs: seats to check.
//
// Returns:
//   - map[int64]bool: set of seat IDs that are already booked.
//   - error: any database error.
func (r *BookingRepo) TakenSeats(
	ctx context.Context,
	busID int64,
	date time.Time,
	seatIDs []int64,
) (map[int64]bool, error) {
	const op = "postgres.BookingRepo.TakenSeats"

	rows, err := r.handle().Query(ctx,
		`SELECT seat_id
		 FROM booking_seats
		 WHERE bus_id = $1
		   AND travel_date = $2
		   AND confirmed
		   AND seat_id = ANY($3)`,
		busID, domain.DateOnly(date), seatIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	taken := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		taken[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return taken, nil
}

func (r *BookingRepo) ReceiptExists(ctx context.Context, receiptID string) (bool, error) {
	const op = "postgres.BookingRepo.ReceiptExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE receipt_id = $1)`,
		receiptID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return exists, nil
}

// CountConfirmedSeats counts seats held by confirmed bookings of the bus
// on the travel date.
func (r *BookingRepo) CountConfirmedSeats(ctx context.Context, busID int64, date time.Time) (int64, error) {
	const op = "postgres.BookingRepo.CountConfirmedSeats"

	var n int64
	if err := r.handle().QueryRow(ctx,
		`SELECT count(*)
		 FROM booking_seats
		 WHERE bus_id = $1 AND travel_date = $2 AND confirmed`,
		busID, domain.DateOnly(date),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return n, nil
}

// CreateBooking persists the booking row and its seat links.
//
// Returns:
//   - error: repository.ErrReceiptTaken if the receipt ID is already used.
//   - error: repository.ErrSeatTaken if a seat is held by another confirmed booking.
func (r *BookingRepo) CreateBooking(ctx context.Context, b domain.Booking) error {
	const op = "postgres.BookingRepo.CreateBooking"

	db := r.handle()

	passenger, err := json.Marshal(passengersOrEmpty(b.PassengerInfo))
	if err != nil {
		return fmt.Errorf("%s: encode passenger_info: %w", op, err)
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, user_id, bus_id, travel_date, total_price,
		                      passenger_info, status, booking_date, receipt_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.UserID, b.BusID, domain.DateOnly(b.TravelDate), b.TotalPrice,
		passenger, string(b.Status), b.BookingDate, b.ReceiptID,
	); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if len(b.SeatIDs) == 0 {
		return nil
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO booking_seats(booking_id, seat_id, bus_id, travel_date, position, confirmed)
		 SELECT $1, s.seat_id, $2, $3, s.ord, $4
		 FROM unnest($5::bigint[]) WITH ORDINALITY AS s(seat_id, ord)`,
		b.ID, b.BusID, domain.DateOnly(b.TravelDate), b.Status.HoldsSeats(), b.SeatIDs,
	); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func passengersOrEmpty(p []domain.PassengerInfo) []domain.PassengerInfo {
	if p == nil {
		return []domain.PassengerInfo{}
	}
	return p
}

// GetByReceipt retrieves a booking by its receipt ID.
//
// Returns:
//   - domain.Booking: the booking with its seats in booking order.
//   - error: repository.ErrNotFound if no booking carries the receipt.
func (r *BookingRepo) GetByReceipt(ctx context.Context, receiptID string) (domain.Booking, error) {
	const op = "postgres.BookingRepo.GetByReceipt"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings bk
		 WHERE bk.receipt_id = $1`,
		receiptID,
	))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b, nil
}

// ListByUser lists the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings bk
		 WHERE bk.user_id = $1
		 ORDER BY bk.booking_date DESC`,
		userID,
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

// SetStatus moves a booking to status and keeps its seat links in step,
// so only confirmed bookings hold seats.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrSeatTaken if confirming would double-book a seat.
func (r *BookingRepo) SetStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	const op = "postgres.BookingRepo.SetStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1`,
		bookingID, string(status),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	if _, err := db.Exec(ctx,
		`UPDATE booking_seats SET confirmed = $2 WHERE booking_id = $1`,
		bookingID, status.HoldsSeats(),
	); err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/kirinyoku/dirabus/internal/repository"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serializableRW = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock
}

func TestBookingRepo_TakenSeats(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT seat_id FROM booking_seats`).
		WithArgs(int64(7), date, []int64{1, 2, 3}).
		WillReturnRows(pgxmock.NewRows([]string{"seat_id"}).AddRow(int64(2)))

	taken, err := repo.TakenSeats(context.Background(), 7, date, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{2: true}, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ReceiptExists(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("RCP-ABCDEF1234").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ReceiptExists(context.Background(), "RCP-ABCDEF1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_CountConfirmedSeats(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count`).
		WithArgs(int64(4), date).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))

	n, err := repo.CountConfirmedSeats(context.Background(), 4, date.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_CreateBooking(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	b := domain.Booking{
		ID:         uuid.New(),
		UserID:     3,
		BusID:      7,
		TravelDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SeatIDs:    []int64{11, 12},
		TotalPrice: decimal.RequireFromString("180.00"),
		Status:     domain.BookingConfirmed,
		ReceiptID:  "RCP-0A1B2C3D4E",
	}

	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(b.ID, b.UserID, b.BusID, b.TravelDate, pgxmock.AnyArg(), pgxmock.AnyArg(),
			"confirmed", pgxmock.AnyArg(), b.ReceiptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).
		WithArgs(b.ID, b.BusID, b.TravelDate, true, []int64{11, 12}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, repo.CreateBooking(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_CreateBooking_SeatTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	b := domain.Booking{
		ID:         uuid.New(),
		BusID:      7,
		TravelDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SeatIDs:    []int64{11},
		Status:     domain.BookingConfirmed,
	}

	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(b.ID, b.UserID, b.BusID, b.TravelDate, pgxmock.AnyArg(), pgxmock.AnyArg(),
			"confirmed", pgxmock.AnyArg(), b.ReceiptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_seats`).
		WithArgs(b.ID, b.BusID, b.TravelDate, true, []int64{11}).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintConfirmedSeat})

	err := repo.CreateBooking(context.Background(), b)
	assert.ErrorIs(t, err, repository.ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_GetByReceipt_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewStore(mock).Bookings()

	mock.ExpectQuery(`FROM bookings bk`).
		WithArgs("RCP-MISSING000").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByReceipt(context.Background(), "RCP-MISSING000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_SetStatus(t *testing.T) {
	id := uuid.New()

	t.Run("releases seats on cancel", func(t *testing.T) {
		mock := newMock(t)
		repo := NewStore(mock).Bookings()

		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(id, "cancelled").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE booking_seats SET confirmed`).
			WithArgs(id, false).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		require.NoError(t, repo.SetStatus(context.Background(), id, domain.BookingCancelled))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing booking", func(t *testing.T) {
		mock := newMock(t)
		repo := NewStore(mock).Bookings()

		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(id, "confirmed").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetStatus(context.Background(), id, domain.BookingConfirmed)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_RunTx(t *testing.T) {
	t.Run("commits", func(t *testing.T) {
		mock := newMock(t)
		store := NewStore(mock)
		id := uuid.New()

		mock.ExpectBeginTx(serializableRW)
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(id, "completed").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE booking_seats SET confirmed`).
			WithArgs(id, false).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err := store.RunTx(context.Background(), nil, func(ctx context.Context, tx DB) error {
			return store.Bookings().With(tx).SetStatus(ctx, id, domain.BookingCompleted)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := newMock(t)
		store := NewStore(mock)

		boom := errors.New("boom")

		mock.ExpectBeginTx(serializableRW)
		mock.ExpectRollback()

		err := store.RunTx(context.Background(), nil, func(ctx context.Context, tx DB) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure on commit is a conflict", func(t *testing.T) {
		mock := newMock(t)
		store := NewStore(mock)

		mock.ExpectBeginTx(serializableRW)
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: codeSerializationFailure})

		err := store.RunTx(context.Background(), nil, func(ctx context.Context, tx DB) error {
			return nil
		})
		assert.ErrorIs(t, err, repository.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

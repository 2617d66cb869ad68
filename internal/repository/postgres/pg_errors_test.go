package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/dirabus/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDBErr(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), repository.ErrNotFound},
		{"receipt clash", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_receipt_id_key"}, repository.ErrReceiptTaken},
		{"seat clash", &pgconn.PgError{Code: "23505", ConstraintName: "booking_seats_confirmed_uniq"}, repository.ErrSeatTaken},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "seats_bus_id_seat_number_key"}, repository.ErrConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, repository.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, repository.ErrConflict},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBErr(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/dirabus/internal/repository"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	constraintReceipt       = "bookings_receipt_id_key"
	constraintConfirmedSeat = "booking_seats_confirmed_uniq"
)

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case codeUniqueViolation:
			switch pge.ConstraintName {
			case constraintReceipt:
				return repository.ErrReceiptTaken
			case constraintConfirmedSeat:
				return repository.ErrSeatTaken
			}
			return repository.ErrConflict
		case codeSerializationFailure, codeDeadlockDetected:
			return repository.ErrConflict
		}
	}

	return err
}

package repository

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrReceiptTaken = errors.New("receipt id already used")
	ErrSeatTaken    = errors.New("seat already booked")
)

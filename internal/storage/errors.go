package storage

import "errors"

// Storage errors for the asset registry and the append-only tick log.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a tick
	// whose (time, coin_id) already exists. The tick log is append-only
	// and does not allow updates; under correct scheduling this error
	// indicates a timestamp or scheduling bug.
	ErrDuplicateKey = errors.New("duplicate key: tick log does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

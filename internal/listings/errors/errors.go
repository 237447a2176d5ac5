package errors

import "errors"

var (
	ErrNotFound = errors.New("listing not found")

	ErrInvalidOptions = errors.New("invalid processing options")

	ErrEmptyBatch = errors.New("batch contains no rows")
)

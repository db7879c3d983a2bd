package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a compare-and-swap update finds the row changed
	ErrConflict = errors.New("conflict: entity was modified concurrently")

	// ErrDuplicate is returned when a uniqueness constraint rejects an insert
	ErrDuplicate = errors.New("duplicate entity")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that no book carries the requested id.
	ErrNotFound = errors.New("book not found")
	// ErrInvalid is the sentinel wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid book data")
	// ErrSnapshotNotFound is returned by a SnapshotStore that holds no snapshot yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ValidationError describes a request that failed shape validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalid, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalid, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup or delete target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is only produced when strict transitions are enabled.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StorageError wraps any failure of the underlying store. The transaction
// that produced it has already been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

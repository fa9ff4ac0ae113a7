package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks input rejected before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when the addressed record does not exist in the caller's hostel.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is returned when the target room is already full.
	ErrCapacityExceeded = errors.New("room is at full capacity")
	// ErrInvalidTransition is returned for status changes not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StoreError wraps a failure reported by the record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr converts a repository error. A missing row becomes ErrNotFound.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return &StoreError{Op: op, Err: err}
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ErrForbidden is returned when the session's role may not perform the operation.
var ErrForbidden = errors.New("forbidden")

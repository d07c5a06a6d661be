package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist for the current user.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when a record fails validation before it is written.
	ErrInvalid = errors.New("invalid record")
)

// StoreError wraps database errors with the operation that failed.
type StoreError struct {
	Op      string
	Err     error
	Details string
}

func (e *StoreError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("store: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return errors.Is(e.Err, target) }

// WrapStoreError wraps an error as a StoreError if it isn't already one.
func WrapStoreError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err, Details: details}
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

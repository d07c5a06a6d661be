package lookup

import (
	"errors"
	"fmt"
)

// Common lookup errors
var (
	// ErrTimeout is returned when the lookup did not finish before its deadline.
	ErrTimeout = errors.New("lookup timed out")

	// ErrLookupFailed is returned when the model could not produce a usable answer.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrEmptyInput is returned for a word or sentence with no letters.
	ErrEmptyInput = errors.New("nothing to look up")
)

// LookupError wraps errors with the lookup operation that failed.
type LookupError struct {
	Op      string
	Err     error
	Details string
}

func (e *LookupError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("lookup: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("lookup: %s failed: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func (e *LookupError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapLookupError wraps an error as a LookupError if it isn't already one.
func WrapLookupError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return err
	}
	return &LookupError{Op: op, Err: err, Details: details}
}

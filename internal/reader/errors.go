package reader

import "errors"

var (
	// ErrPageOutOfRange is returned when navigating outside the source.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrPending is returned when deleting a record the store has not confirmed yet.
	ErrPending = errors.New("annotation not confirmed yet")

	// ErrNothingToSave is returned when saving a result that carries no lookup.
	ErrNothingToSave = errors.New("nothing to save")

	// ErrEmptyMemo is returned when saving a memo without content.
	ErrEmptyMemo = errors.New("memo is empty")

	// ErrUnknownAnnotation is returned when deleting an id the session does not hold.
	ErrUnknownAnnotation = errors.New("unknown annotation")
)

// Short status lines shown to the user in place of errors.
const (
	StatusLookupFailed   = "Could not look up this word."
	StatusAnalysisFailed = "Could not analyze this sentence."
	StatusTimeout        = "The analysis took too long. Try again."
	StatusUnavailable    = "Lookups are not configured."
	StatusSaveFailed     = "Could not save the annotation."
)

package annotation

import "errors"

var (
	// ErrEmptyAnalysis is returned when encoding an Analysis without a payload.
	ErrEmptyAnalysis = errors.New("analysis has no payload")

	// ErrNoWords is returned when a selection resolves to zero OCR words.
	ErrNoWords = errors.New("selection contains no words")
)

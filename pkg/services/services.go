package services

import (
	"context"
	"time"

	"lexilens/pkg/models"
)

// AnnotationStore persists annotations. Every call is scoped to the user the
// store was opened for.
type AnnotationStore interface {
	// ListBySource returns all annotations of a source, oldest first.
	ListBySource(ctx context.Context, sourceID string) ([]models.Annotation, error)

	// Create stores an annotation and returns the authoritative record.
	// Creating twice with the same ClientKey returns the first record.
	Create(ctx context.Context, annotation models.Annotation) (*models.Annotation, error)

	// Delete removes an annotation and its review item.
	Delete(ctx context.Context, id string) error
}

// ReviewUpdate carries the scheduling fields written by the review scheduler.
type ReviewUpdate struct {
	NextReviewDate time.Time
	IntervalDays   int
	EaseFactor     float64
	Repetitions    int
	Status         string
}

// ReviewStore persists spaced-repetition review items.
type ReviewStore interface {
	// ListDue returns active items whose next review date is on or before date.
	ListDue(ctx context.Context, date time.Time) ([]models.ReviewItem, error)

	// CreateReview creates the review item of a highlight annotation with default scheduling.
	CreateReview(ctx context.Context, annotationID string) (*models.ReviewItem, error)

	// UpdateReview overwrites the scheduling fields of a review item.
	UpdateReview(ctx context.Context, id string, fields ReviewUpdate) error
}

// WordLookup is the dictionary entry of a single word.
type WordLookup struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Phonetic   string `json:"phonetic"`
}

// GrammarResult is the grammar breakdown of a sentence.
type GrammarResult struct {
	Patterns    []models.Pattern `json:"patterns"`
	Translation string           `json:"translation"`
}

// LookupService resolves vocabulary and grammar for selected text.
type LookupService interface {
	LookupWord(ctx context.Context, word string) (*WordLookup, error)
	AnalyzeGrammarPatterns(ctx context.Context, sentence string) (*GrammarResult, error)
}

// DeckEntry is an annotation with its review schedule, if any.
type DeckEntry struct {
	Annotation models.Annotation
	Review     *models.ReviewItem
}

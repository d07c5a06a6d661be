package models

import "time"

const (
	ReviewStatusActive = "active"

	DefaultIntervalDays = 1
	DefaultEaseFactor   = 2.5
	MinEaseFactor       = 1.3
)

// ReviewItem schedules spaced repetition of a highlight annotation.
type ReviewItem struct {
	ID             string    `json:"id"`
	AnnotationID   string    `json:"annotation_id"`
	NextReviewDate time.Time `json:"next_review_date"` // date only, midnight UTC
	IntervalDays   int       `json:"interval_days"`
	EaseFactor     float64   `json:"ease_factor"`
	Repetitions    int       `json:"repetitions"`
	Status         string    `json:"status"`
}

// Package review schedules spaced-repetition reviews of highlight annotations
// with an SM-2 style interval algorithm.
package review

import (
	"math"
	"time"

	"lexilens/pkg/models"
)

const (
	// SecondInterval is the interval after the second consecutive correct answer.
	SecondInterval = 6

	easeStep    = 0.1
	easePenalty = 0.2
)

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewItem returns the review item created alongside a highlight annotation.
// It is due on the day it is created.
func NewItem(id, annotationID string, today time.Time) models.ReviewItem {
	return models.ReviewItem{
		ID:             id,
		AnnotationID:   annotationID,
		NextReviewDate: Day(today),
		IntervalDays:   models.DefaultIntervalDays,
		EaseFactor:     models.DefaultEaseFactor,
		Repetitions:    0,
		Status:         models.ReviewStatusActive,
	}
}

// Update applies one review outcome to item and returns the rescheduled copy.
//
// A correct answer grows the interval (1 day, 6 days, then interval * ease)
// and raises the ease by 0.1. A wrong answer restarts the streak at a 1 day
// interval and lowers the ease by 0.2. The ease never drops below 1.3 and has
// no upper bound.
func Update(item models.ReviewItem, correct bool, today time.Time) models.ReviewItem {
	next := item
	if next.EaseFactor == 0 {
		next.EaseFactor = models.DefaultEaseFactor
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = models.DefaultIntervalDays
	}

	if correct {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = SecondInterval
		default:
			next.IntervalDays = int(math.Round(float64(next.IntervalDays) * next.EaseFactor))
		}
		next.EaseFactor = roundEase(math.Max(models.MinEaseFactor, next.EaseFactor+easeStep))
	} else {
		next.Repetitions = 0
		next.IntervalDays = 1
		next.EaseFactor = roundEase(math.Max(models.MinEaseFactor, next.EaseFactor-easePenalty))
	}

	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	if next.Status == "" {
		next.Status = models.ReviewStatusActive
	}
	next.NextReviewDate = Day(today).AddDate(0, 0, next.IntervalDays)
	return next
}

// roundEase keeps the ease on the 0.01 grid so repeated steps do not drift.
func roundEase(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsDue reports whether item should be reviewed on today.
func IsDue(item models.ReviewItem, today time.Time) bool {
	return item.Status == models.ReviewStatusActive && !item.NextReviewDate.After(Day(today))
}

package review

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lexilens/internal/logger"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

// Queue serves due review items and records outcomes.
type Queue struct {
	store services.ReviewStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewQueue creates a queue over store using the wall clock.
func NewQueue(store services.ReviewStore) *Queue {
	return NewQueueWithClock(store, time.Now)
}

// NewQueueWithClock creates a queue with an explicit clock.
func NewQueueWithClock(store services.ReviewStore, now func() time.Time) *Queue {
	return &Queue{
		store: store,
		now:   now,
		log:   logger.WithComponent("review"),
	}
}

// Due returns the items due today.
func (q *Queue) Due(ctx context.Context) ([]models.ReviewItem, error) {
	items, err := q.store.ListDue(ctx, Day(q.now()))
	if err != nil {
		return nil, fmt.Errorf("list due reviews: %w", err)
	}
	q.log.Debug().Int("due", len(items)).Msg("Loaded review queue")
	return items, nil
}

// Grade applies an outcome to item, persists the new schedule and returns it.
func (q *Queue) Grade(ctx context.Context, item models.ReviewItem, correct bool) (models.ReviewItem, error) {
	next := Update(item, correct, q.now())
	err := q.store.UpdateReview(ctx, item.ID, services.ReviewUpdate{
		NextReviewDate: next.NextReviewDate,
		IntervalDays:   next.IntervalDays,
		EaseFactor:     next.EaseFactor,
		Repetitions:    next.Repetitions,
		Status:         next.Status,
	})
	if err != nil {
		return item, fmt.Errorf("update review %s: %w", item.ID, err)
	}

	q.log.Info().
		Str("review_id", item.ID).
		Bool("correct", correct).
		Int("interval_days", next.IntervalDays).
		Float64("ease_factor", next.EaseFactor).
		Str("next_review", next.NextReviewDate.Format("2006-01-02")).
		Msg("Review graded")
	return next, nil
}

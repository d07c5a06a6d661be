package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"lexilens/internal/review"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

const reviewColumns = `id, annotation_id, next_review_date, interval_days, ease_factor, repetitions, status`

// ListDue returns active items due on or before date, earliest first.
func (s *Store) ListDue(ctx context.Context, date time.Time) ([]models.ReviewItem, error) {
	const op = "ListDue"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM review_items
		  WHERE user_id = ? AND status = ? AND next_review_date <= ?
		  ORDER BY next_review_date, id`,
		s.userID, models.ReviewStatusActive, review.Day(date).Format(dateLayout))
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	defer rows.Close()

	var out []models.ReviewItem
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, WrapStoreError(op, err, "")
		}
		out = append(out, item)
	}
	return out, WrapStoreError(op, rows.Err(), "")
}

// CreateReview creates the review item of an annotation, due today.
// Creating it again returns the existing item.
func (s *Store) CreateReview(ctx context.Context, annotationID string) (*models.ReviewItem, error) {
	const op = "CreateReview"

	if existing, err := s.ReviewForAnnotation(ctx, annotationID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, WrapStoreError(op, err, "")
	}

	item := review.NewItem(uuid.NewString(), annotationID, s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_items (id, user_id, annotation_id, next_review_date, interval_days, ease_factor, repetitions, status)
		 SELECT ?, ?, id, ?, ?, ?, ?, ? FROM annotations WHERE id = ? AND user_id = ?`,
		item.ID, s.userID, item.NextReviewDate.Format(dateLayout), item.IntervalDays, item.EaseFactor, item.Repetitions, item.Status,
		annotationID, s.userID)
	if err != nil {
		if isUnique(err) {
			return s.ReviewForAnnotation(ctx, annotationID)
		}
		return nil, WrapStoreError(op, err, "insert review item")
	}
	// The INSERT ... SELECT writes nothing for a foreign annotation.
	created, err := s.GetReview(ctx, item.ID)
	if err != nil {
		return nil, WrapStoreError(op, ErrNotFound, "annotation "+annotationID)
	}
	return created, nil
}

// UpdateReview overwrites the scheduling fields of a review item.
func (s *Store) UpdateReview(ctx context.Context, id string, f services.ReviewUpdate) error {
	const op = "UpdateReview"
	res, err := s.db.ExecContext(ctx,
		`UPDATE review_items
		    SET next_review_date = ?, interval_days = ?, ease_factor = ?, repetitions = ?, status = ?
		  WHERE id = ? AND user_id = ?`,
		review.Day(f.NextReviewDate).Format(dateLayout), f.IntervalDays, f.EaseFactor, f.Repetitions, f.Status, id, s.userID)
	if err != nil {
		return WrapStoreError(op, err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return WrapStoreError(op, ErrNotFound, "review "+id)
	}
	return nil
}

// GetReview returns one review item.
func (s *Store) GetReview(ctx context.Context, id string) (*models.ReviewItem, error) {
	return s.oneReview(ctx, "GetReview", `id = ?`, id)
}

// ReviewForAnnotation returns the review item of an annotation.
func (s *Store) ReviewForAnnotation(ctx context.Context, annotationID string) (*models.ReviewItem, error) {
	return s.oneReview(ctx, "ReviewForAnnotation", `annotation_id = ?`, annotationID)
}

func (s *Store) oneReview(ctx context.Context, op, where string, arg string) (*models.ReviewItem, error) {
	item, err := scanReview(s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM review_items WHERE `+where+` AND user_id = ?`, arg, s.userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, WrapStoreError(op, ErrNotFound, arg)
	}
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	return &item, nil
}

// ListDeck returns vocabulary-bearing annotations with their review items,
// oldest first. Memos are left out.
func (s *Store) ListDeck(ctx context.Context) ([]services.DeckEntry, error) {
	const op = "ListDeck"
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.source_id, a.type, a.selected_text, a.selection_rect, a.ai_analysis_json, a.memo_content, IFNULL(a.client_key, ''), a.created_at,
		        r.id, r.next_review_date, r.interval_days, r.ease_factor, r.repetitions, r.status
		   FROM annotations a LEFT JOIN review_items r ON r.annotation_id = a.id
		  WHERE a.user_id = ? AND a.type != ?
		  ORDER BY a.created_at, a.rowid`,
		s.userID, string(models.AnnotationMemo))
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	defer rows.Close()

	var out []services.DeckEntry
	for rows.Next() {
		var (
			a        models.Annotation
			typ      string
			created  string
			reviewID sql.NullString
			next     sql.NullString
			interval sql.NullInt64
			ease     sql.NullFloat64
			reps     sql.NullInt64
			status   sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SourceID, &typ, &a.SelectedText, &a.SelectionRect, &a.AIAnalysisJSON, &a.MemoContent, &a.ClientKey, &created,
			&reviewID, &next, &interval, &ease, &reps, &status); err != nil {
			return nil, WrapStoreError(op, err, "")
		}
		a.Type = models.AnnotationType(typ)
		a.CreatedAt, _ = time.Parse(timeLayout, created)

		entry := services.DeckEntry{Annotation: a}
		if reviewID.Valid {
			date, _ := time.Parse(dateLayout, next.String)
			entry.Review = &models.ReviewItem{
				ID:             reviewID.String,
				AnnotationID:   a.ID,
				NextReviewDate: date,
				IntervalDays:   int(interval.Int64),
				EaseFactor:     ease.Float64,
				Repetitions:    int(reps.Int64),
				Status:         status.String,
			}
		}
		out = append(out, entry)
	}
	return out, WrapStoreError(op, rows.Err(), "")
}

func scanReview(row scanner) (models.ReviewItem, error) {
	var (
		item models.ReviewItem
		next string
	)
	if err := row.Scan(&item.ID, &item.AnnotationID, &next, &item.IntervalDays, &item.EaseFactor, &item.Repetitions, &item.Status); err != nil {
		return item, err
	}
	date, err := time.Parse(dateLayout, next)
	if err != nil {
		return item, err
	}
	item.NextReviewDate = date
	return item, nil
}

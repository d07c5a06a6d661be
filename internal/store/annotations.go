package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lexilens/pkg/models"
)

const annotationColumns = `id, source_id, type, selected_text, selection_rect, ai_analysis_json, memo_content, IFNULL(client_key, ''), created_at`

// ListBySource returns all annotations of a source, oldest first.
func (s *Store) ListBySource(ctx context.Context, sourceID string) ([]models.Annotation, error) {
	const op = "ListBySource"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE user_id = ? AND source_id = ? ORDER BY created_at, rowid`,
		s.userID, sourceID)
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	defer rows.Close()

	var out []models.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, WrapStoreError(op, err, "")
		}
		out = append(out, a)
	}
	return out, WrapStoreError(op, rows.Err(), "")
}

// GetAnnotation returns one annotation.
func (s *Store) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	const op = "GetAnnotation"
	a, err := scanAnnotation(s.db.QueryRowContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE id = ? AND user_id = ?`, id, s.userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, WrapStoreError(op, ErrNotFound, "annotation "+id)
	}
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	return &a, nil
}

// Create stores an annotation. The id and creation time are assigned here.
// A second Create with the same ClientKey returns the first record.
func (s *Store) Create(ctx context.Context, a models.Annotation) (*models.Annotation, error) {
	const op = "Create"
	if err := validateAnnotation(a); err != nil {
		return nil, WrapStoreError(op, ErrInvalid, err.Error())
	}

	if a.ClientKey != "" {
		if existing, err := s.byClientKey(ctx, a.ClientKey); err == nil {
			s.log.Debug().Str("client_key", a.ClientKey).Msg("annotation already stored")
			return existing, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, WrapStoreError(op, err, "")
		}
	}

	a.ID = uuid.NewString()
	a.CreatedAt = s.now().UTC()
	a.Pending = false

	var clientKey any
	if a.ClientKey != "" {
		clientKey = a.ClientKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, user_id, source_id, type, selected_text, selection_rect, ai_analysis_json, memo_content, client_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, s.userID, a.SourceID, string(a.Type), a.SelectedText, a.SelectionRect, a.AIAnalysisJSON, a.MemoContent, clientKey,
		a.CreatedAt.Format(timeLayout))
	if err != nil {
		// A concurrent save with the same key won the race.
		if a.ClientKey != "" && isUnique(err) {
			if existing, lookupErr := s.byClientKey(ctx, a.ClientKey); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, WrapStoreError(op, err, "insert annotation")
	}

	s.log.Info().Str("annotation_id", a.ID).Str("type", string(a.Type)).Msg("annotation stored")
	return &a, nil
}

func (s *Store) byClientKey(ctx context.Context, key string) (*models.Annotation, error) {
	a, err := scanAnnotation(s.db.QueryRowContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE user_id = ? AND client_key = ?`, s.userID, key))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an annotation and its review item.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "Delete"
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_items WHERE annotation_id = ? AND user_id = ?`, id, s.userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE id = ? AND user_id = ?`, id, s.userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return WrapStoreError(op, err, "annotation "+id)
	}
	return nil
}

func validateAnnotation(a models.Annotation) error {
	switch {
	case strings.TrimSpace(a.SourceID) == "":
		return fmt.Errorf("source id is required")
	case !a.Type.Valid():
		return fmt.Errorf("unknown annotation type %q", a.Type)
	case strings.TrimSpace(a.SelectionRect) == "":
		return fmt.Errorf("selection rect is required")
	}
	return nil
}

func scanAnnotation(row scanner) (models.Annotation, error) {
	var (
		a       models.Annotation
		typ     string
		created string
	)
	err := row.Scan(&a.ID, &a.SourceID, &typ, &a.SelectedText, &a.SelectionRect, &a.AIAnalysisJSON, &a.MemoContent, &a.ClientKey, &created)
	if err != nil {
		return a, err
	}
	a.Type = models.AnnotationType(typ)
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return a, nil
}

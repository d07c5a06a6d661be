// Package store persists sources, OCR pages, annotations and review items
// in SQLite. Every query is scoped to the user the store was opened for.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"lexilens/internal/logger"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

//go:embed schema.sql
var schemaSQL string

const (
	// Fixed-width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

// Store is a SQLite-backed implementation of the annotation and review stores.
type Store struct {
	db     *sql.DB
	userID string
	now    func() time.Time
	log    zerolog.Logger
}

var (
	_ services.AnnotationStore = (*Store)(nil)
	_ services.ReviewStore     = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
func Open(path, userID string) (*Store, error) {
	const op = "Open"

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, WrapStoreError(op, err, path)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := New(db, userID)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the schema.
func New(db *sql.DB, userID string) (*Store, error) {
	const op = "New"
	if strings.TrimSpace(userID) == "" {
		return nil, WrapStoreError(op, ErrInvalid, "user id is required")
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, WrapStoreError(op, err, "enable foreign keys")
	}
	if err := InitDB(db); err != nil {
		return nil, WrapStoreError(op, err, "apply schema")
	}
	return &Store{db: db, userID: userID, now: time.Now, log: logger.WithComponent("store")}, nil
}

// InitDB runs every statement of the embedded schema.
func InitDB(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// UserID returns the user the store is scoped to.
func (s *Store) UserID() string { return s.userID }

func (s *Store) timestamp() string { return s.now().UTC().Format(timeLayout) }

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUnique(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return isUniqueConstraintErr(err)
}

// CreateSource stores a source and its OCR pages.
func (s *Store) CreateSource(ctx context.Context, title, kind string, pages []models.SourcePage) (*models.Source, error) {
	const op = "CreateSource"
	if strings.TrimSpace(title) == "" {
		return nil, WrapStoreError(op, ErrInvalid, "title is required")
	}

	src := models.Source{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Title:     title,
		Kind:      kind,
		PageCount: len(pages),
		CreatedAt: s.now().UTC(),
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sources (id, user_id, title, kind, page_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			src.ID, src.UserID, src.Title, src.Kind, src.PageCount, src.CreatedAt.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
		for i, p := range pages {
			words, err := json.Marshal(p.Words)
			if err != nil {
				return fmt.Errorf("encode page %d: %w", i+1, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO source_pages (source_id, page, width, height, words_json) VALUES (?, ?, ?, ?, ?)`,
				src.ID, i+1, p.Width, p.Height, string(words),
			); err != nil {
				return fmt.Errorf("insert page %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, WrapStoreError(op, err, title)
	}

	s.log.Info().Str("source_id", src.ID).Int("pages", src.PageCount).Msg("source stored")
	return &src, nil
}

// ListSources returns the user's sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]models.Source, error) {
	const op = "ListSources"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, kind, page_count, created_at FROM sources WHERE user_id = ? ORDER BY created_at DESC`,
		s.userID)
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, WrapStoreError(op, err, "")
		}
		out = append(out, src)
	}
	return out, WrapStoreError(op, rows.Err(), "")
}

// GetSource returns one source.
func (s *Store) GetSource(ctx context.Context, id string) (*models.Source, error) {
	const op = "GetSource"
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, kind, page_count, created_at FROM sources WHERE id = ? AND user_id = ?`,
		id, s.userID)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, WrapStoreError(op, ErrNotFound, "source "+id)
	}
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	return &src, nil
}

// GetPage returns the OCR words of one page (1-based).
func (s *Store) GetPage(ctx context.Context, sourceID string, page int) (*models.SourcePage, error) {
	const op = "GetPage"
	var (
		p     = models.SourcePage{SourceID: sourceID, Page: page}
		words string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT p.width, p.height, p.words_json
		   FROM source_pages p JOIN sources s ON s.id = p.source_id
		  WHERE p.source_id = ? AND p.page = ? AND s.user_id = ?`,
		sourceID, page, s.userID).Scan(&p.Width, &p.Height, &words)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, WrapStoreError(op, ErrNotFound, fmt.Sprintf("source %s page %d", sourceID, page))
	}
	if err != nil {
		return nil, WrapStoreError(op, err, "")
	}
	if err := json.Unmarshal([]byte(words), &p.Words); err != nil {
		return nil, WrapStoreError(op, err, "decode words")
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (models.Source, error) {
	var (
		src     models.Source
		created string
	)
	if err := row.Scan(&src.ID, &src.UserID, &src.Title, &src.Kind, &src.PageCount, &created); err != nil {
		return src, err
	}
	src.CreatedAt, _ = time.Parse(timeLayout, created)
	return src, nil
}

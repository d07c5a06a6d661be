package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lexilens/internal/review"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupStore(t *testing.T, db *sql.DB, user string) *Store {
	t.Helper()
	s, err := New(db, user)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := &clock{t: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s
}

func createSource(t *testing.T, s *Store) *models.Source {
	t.Helper()
	pages := []models.SourcePage{
		{Width: 1000, Height: 1400, Words: []models.OcrWord{
			{Text: "Hello", Confidence: 0.9, BBox: models.BBox{X: 10, Y: 10, Width: 8, Height: 2}},
		}},
		{Width: 1000, Height: 1400},
	}
	src, err := s.CreateSource(context.Background(), "Chapter 1", "pdf", pages)
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	return src
}

func highlight(sourceID, key string) models.Annotation {
	return models.Annotation{
		SourceID:       sourceID,
		Type:           models.AnnotationHighlight,
		SelectedText:   "It was very happy today.",
		SelectionRect:  `{"x":10,"y":20,"width":30,"height":5,"page":1}`,
		AIAnalysisJSON: `{"type":"grammar","patterns":[],"originalText":"It was very happy today."}`,
		ClientKey:      key,
	}
}

func TestSourcesAndPages(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, setupTestDB(t), "alice")
	src := createSource(t, s)

	if src.PageCount != 2 || src.UserID != "alice" {
		t.Errorf("source = %+v", src)
	}

	got, err := s.GetSource(ctx, src.ID)
	if err != nil || got.Title != "Chapter 1" || got.Kind != "pdf" {
		t.Fatalf("GetSource = %+v, %v", got, err)
	}
	if !got.CreatedAt.Equal(src.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, src.CreatedAt)
	}

	page, err := s.GetPage(ctx, src.ID, 1)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if len(page.Words) != 1 || page.Words[0].Text != "Hello" || page.Words[0].BBox.Width != 8 {
		t.Errorf("page words = %+v", page.Words)
	}
	if _, err := s.GetPage(ctx, src.ID, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPage(3) err = %v, want ErrNotFound", err)
	}

	list, err := s.ListSources(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSources = %v, %v", list, err)
	}
}

func TestUserScoping(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alice := setupStore(t, db, "alice")
	bob := setupStore(t, db, "bob")

	src := createSource(t, alice)
	a, err := alice.Create(ctx, highlight(src.ID, "k1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := bob.GetSource(ctx, src.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob sees alice's source: %v", err)
	}
	if list, _ := bob.ListBySource(ctx, src.ID); len(list) != 0 {
		t.Errorf("bob lists %d of alice's annotations", len(list))
	}
	if err := bob.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob deleted alice's annotation: %v", err)
	}
	if _, err := bob.CreateReview(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob created a review for alice's annotation: %v", err)
	}
}

func TestCreateIsIdempotentOnClientKey(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, setupTestDB(t), "alice")
	src := createSource(t, s)

	first, err := s.Create(ctx, highlight(src.ID, "client-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID == "" || first.Pending || first.CreatedAt.IsZero() {
		t.Errorf("stored annotation = %+v", first)
	}
	again, err := s.Create(ctx, highlight(src.ID, "client-1"))
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("replayed Create returned %s, want %s", again.ID, first.ID)
	}

	if _, err := s.Create(ctx, highlight(src.ID, "")); err != nil {
		t.Fatalf("Create without key: %v", err)
	}
	if _, err := s.Create(ctx, highlight(src.ID, "")); err != nil {
		t.Fatalf("second Create without key: %v", err)
	}

	list, err := s.ListBySource(ctx, src.ID)
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d annotations, want 3", len(list))
	}
	if list[0].ID != first.ID || list[0].ClientKey != "client-1" {
		t.Errorf("first listed = %+v", list[0])
	}
}

func TestCreateValidates(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, setupTestDB(t), "alice")
	src := createSource(t, s)

	bad := []models.Annotation{
		{SourceID: src.ID, Type: "sticker", SelectionRect: "{}"},
		{Type: models.AnnotationMemo, SelectionRect: "{}"},
		{SourceID: src.ID, Type: models.AnnotationMemo},
	}
	for _, a := range bad {
		if _, err := s.Create(ctx, a); !errors.Is(err, ErrInvalid) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalid", a, err)
		}
	}
	unknown := highlight("no-such-source", "")
	if _, err := s.Create(ctx, unknown); err == nil {
		t.Error("Create accepted an annotation for an unknown source")
	}
}

func TestReviewLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, setupTestDB(t), "alice")
	src := createSource(t, s)
	a, err := s.Create(ctx, highlight(src.ID, "k"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	item, err := s.CreateReview(ctx, a.ID)
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	today := review.Day(s.now())
	if !item.NextReviewDate.Equal(today) || item.IntervalDays != 1 || item.EaseFactor != 2.5 || item.Status != models.ReviewStatusActive {
		t.Errorf("new item = %+v", item)
	}
	again, err := s.CreateReview(ctx, a.ID)
	if err != nil || again.ID != item.ID {
		t.Errorf("CreateReview again = %+v, %v", again, err)
	}

	due, err := s.ListDue(ctx, today)
	if err != nil || len(due) != 1 {
		t.Fatalf("ListDue = %v, %v", due, err)
	}

	next := review.Update(*item, true, today)
	err = s.UpdateReview(ctx, item.ID, services.ReviewUpdate{
		NextReviewDate: next.NextReviewDate,
		IntervalDays:   next.IntervalDays,
		EaseFactor:     next.EaseFactor,
		Repetitions:    next.Repetitions,
		Status:         next.Status,
	})
	if err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	if due, _ := s.ListDue(ctx, today); len(due) != 0 {
		t.Errorf("item still due after a correct answer")
	}
	if due, _ := s.ListDue(ctx, today.AddDate(0, 0, 1)); len(due) != 1 {
		t.Errorf("item not due tomorrow")
	}
	stored, err := s.GetReview(ctx, item.ID)
	if err != nil || stored.Repetitions != 1 || stored.EaseFactor != 2.6 {
		t.Errorf("stored = %+v, %v", stored, err)
	}

	if err := s.UpdateReview(ctx, "missing", services.ReviewUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateReview(missing) err = %v", err)
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetReview(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("review survived its annotation: %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestListDeck(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t, setupTestDB(t), "alice")
	src := createSource(t, s)

	h, _ := s.Create(ctx, highlight(src.ID, "h"))
	if _, err := s.CreateReview(ctx, h.ID); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	vocab := highlight(src.ID, "v")
	vocab.Type = models.AnnotationVocabulary
	vocab.AIAnalysisJSON = `{"isVocabulary":true,"word":"happy","definition":"행복한","phonetic":""}`
	if _, err := s.Create(ctx, vocab); err != nil {
		t.Fatalf("Create vocabulary: %v", err)
	}
	memo := highlight(src.ID, "m")
	memo.Type = models.AnnotationMemo
	memo.MemoContent = "check this usage"
	if _, err := s.Create(ctx, memo); err != nil {
		t.Fatalf("Create memo: %v", err)
	}

	deck, err := s.ListDeck(ctx)
	if err != nil {
		t.Fatalf("ListDeck: %v", err)
	}
	if len(deck) != 2 {
		t.Fatalf("deck has %d entries, want 2", len(deck))
	}
	if deck[0].Review == nil || deck[0].Review.IntervalDays != 1 {
		t.Errorf("highlight entry = %+v", deck[0])
	}
	if deck[1].Annotation.Type != models.AnnotationVocabulary || deck[1].Review != nil {
		t.Errorf("vocabulary entry = %+v", deck[1])
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(":memory:", "alice")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := Open(":memory:", " "); !errors.Is(err, ErrInvalid) {
		t.Errorf("Open with blank user err = %v", err)
	}
}

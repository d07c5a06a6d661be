package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_e/edit#gid=0")
	if err != nil || id != "1AbC-d_e" {
		t.Fatalf("extractSpreadsheetID = %q, %v", id, err)
	}
	if _, err := extractSpreadsheetID("https://example.com/sheet"); err == nil {
		t.Error("expected an error for a non-Sheets URL")
	}
}

func deckEntries() []services.DeckEntry {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return []services.DeckEntry{
		{
			Annotation: models.Annotation{
				ID: "ann-1", Type: models.AnnotationVocabulary, SelectedText: "happy", CreatedAt: created,
				AIAnalysisJSON: `{"isVocabulary":true,"word":"happy","definition":"행복한","phonetic":"/ˈhæpi/"}`,
			},
		},
		{
			Annotation: models.Annotation{
				ID: "ann-2", Type: models.AnnotationHighlight, SelectedText: "He gave\nup.", CreatedAt: created,
				AIAnalysisJSON: `{"type":"grammar","originalText":"He gave up.","translation":"그는 포기했다.","patterns":[{"words":["gave","up"],"explanation":"포기하다","color":"#ff8800","type":"phrasal_verb","typeKr":"구동사"}]}`,
			},
			Review: &models.ReviewItem{
				ID: "rev-2", NextReviewDate: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), IntervalDays: 6, EaseFactor: 2.6,
			},
		},
		{
			Annotation: models.Annotation{
				ID: "ann-3", Type: models.AnnotationHighlight, SelectedText: "broken", CreatedAt: created,
				AIAnalysisJSON: `not json`,
			},
		},
	}
}

func TestBuildRow(t *testing.T) {
	entries := deckEntries()

	vocab := BuildRow(entries[0])
	if vocab.Headword != "happy" || vocab.Definition != "행복한" || vocab.Phonetic != "/ˈhæpi/" || vocab.NextReview != "" {
		t.Errorf("vocabulary row = %+v", vocab)
	}

	grammar := BuildRow(entries[1])
	if grammar.Text != "He gave up." || grammar.Translation != "그는 포기했다." || grammar.Patterns != "gave up: 포기하다" {
		t.Errorf("grammar row = %+v", grammar)
	}
	if grammar.NextReview != "2024-05-07" || grammar.IntervalDays != 6 || grammar.EaseFactor != 2.6 {
		t.Errorf("grammar schedule = %+v", grammar)
	}

	broken := BuildRow(entries[2])
	if broken.Text != "broken" || broken.Definition != "" || broken.AnnotationID != "ann-3" {
		t.Errorf("broken row = %+v", broken)
	}
}

type fakeSheets struct {
	mu       sync.Mutex
	header   []interface{}
	appended [][]interface{}
	batches  int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		if strings.Contains(path, "L2:L") {
			w.Write([]byte(`{"range":"Deck!L2:L","values":[["ann-1"]]}`))
			return
		}
		w.Write([]byte(`{"range":"Deck!A1:L1"}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var body sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Values) > 0 {
			f.header = body.Values[0]
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.batches++
		w.Write([]byte(`{"spreadsheetId":"sheet123","replies":[{"addSheet":{"properties":{"sheetId":7,"title":"Deck"}}}]}`))
	case r.Method == http.MethodGet:
		w.Write([]byte(`{"spreadsheetId":"sheet123","sheets":[]}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func TestExportDeck(t *testing.T) {
	fake := &fakeSheets{}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	ctx := context.Background()
	api, err := sheets.NewService(ctx, option.WithEndpoint(ts.URL+"/"), option.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	svc := NewWithService(api, "sheet123")

	n, err := svc.ExportDeck(ctx, deckEntries(), "Deck")
	if err != nil {
		t.Fatalf("ExportDeck: %v", err)
	}
	if n != 2 {
		t.Fatalf("wrote %d rows, want 2 (ann-1 already exported)", n)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.header) != len(deckHeaders) || fake.header[0] != "Type" {
		t.Errorf("header = %v", fake.header)
	}
	if fake.batches != 2 {
		t.Errorf("batch updates = %d, want add sheet + format", fake.batches)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("appended = %v", fake.appended)
	}
	if fake.appended[0][11] != "ann-2" || fake.appended[1][11] != "ann-3" {
		t.Errorf("appended ids = %v, %v", fake.appended[0][11], fake.appended[1][11])
	}
	if fake.appended[0][7] != "2024-05-07" {
		t.Errorf("next review = %v", fake.appended[0][7])
	}
}

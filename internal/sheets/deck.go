package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"

	"lexilens/internal/annotation"
	"lexilens/pkg/services"
)

const (
	firstColumn = "A"
	lastColumn  = "L"
	idColumn    = "L"
)

var deckHeaders = []string{
	"Type", "Text", "Headword", "Definition", "Phonetic", "Translation",
	"Patterns", "Next Review", "Interval", "Ease", "Created", "Annotation ID",
}

// DeckRow is one exported flashcard.
type DeckRow struct {
	Type         string
	Text         string
	Headword     string
	Definition   string
	Phonetic     string
	Translation  string
	Patterns     string
	NextReview   string
	IntervalDays int
	EaseFactor   float64
	CreatedAt    string
	AnnotationID string
}

// BuildRow flattens a deck entry into a sheet row. Rows whose analysis
// cannot be decoded still carry the selected text.
func BuildRow(entry services.DeckEntry) DeckRow {
	a := entry.Annotation
	row := DeckRow{
		Type:         string(a.Type),
		Text:         strings.Join(strings.Fields(a.SelectedText), " "),
		CreatedAt:    a.CreatedAt.Format("2006-01-02"),
		AnnotationID: a.ID,
	}

	if analysis, ok := annotation.ParseAnalysis(a.AIAnalysisJSON); ok {
		switch analysis.Kind {
		case annotation.KindVocabulary:
			v := analysis.Vocabulary
			row.Headword, row.Definition, row.Phonetic = v.Word, v.Definition, v.Phonetic
		case annotation.KindDefinition:
			row.Definition, row.Phonetic = analysis.Definition.Definition, analysis.Definition.Phonetic
		case annotation.KindGrammar:
			g := analysis.Grammar
			row.Translation = g.Translation
			parts := make([]string, 0, len(g.Patterns))
			for _, p := range g.Patterns {
				parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(p.Words, " "), p.Explanation))
			}
			row.Patterns = strings.Join(parts, "; ")
		}
	}

	if r := entry.Review; r != nil {
		row.NextReview = r.NextReviewDate.Format("2006-01-02")
		row.IntervalDays = r.IntervalDays
		row.EaseFactor = r.EaseFactor
	}
	return row
}

func (r DeckRow) values() []interface{} {
	var interval, ease interface{} = "", ""
	if r.NextReview != "" {
		interval, ease = r.IntervalDays, r.EaseFactor
	}
	return []interface{}{
		r.Type, r.Text, r.Headword, r.Definition, r.Phonetic, r.Translation,
		r.Patterns, r.NextReview, interval, ease, r.CreatedAt, r.AnnotationID,
	}
}

// ExportDeck appends the entries that are not in the sheet yet and
// returns how many rows were written.
func (s *Service) ExportDeck(ctx context.Context, entries []services.DeckEntry, sheetName string) (int, error) {
	const op = "ExportDeck"

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return 0, fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	existing, err := s.ReadRange(ctx, fmt.Sprintf("%s!%s2:%s", sheetName, idColumn, idColumn))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	exported := make(map[string]bool, len(existing))
	for _, row := range existing {
		if len(row) > 0 {
			exported[cellString(row[0])] = true
		}
	}

	var values [][]interface{}
	for _, entry := range entries {
		if exported[entry.Annotation.ID] {
			continue
		}
		values = append(values, BuildRow(entry).values())
	}
	if len(values) == 0 {
		s.log.Info().Str("sheet", sheetName).Msg("Deck already up to date")
		return 0, nil
	}

	_, err = s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!%s:%s", sheetName, firstColumn, lastColumn),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Int("skipped", len(entries)-len(values)).
		Str("sheet", sheetName).
		Msg("Deck exported")
	return len(values), nil
}

package models

import "time"

// AnnotationType is the persisted kind of an annotation.
type AnnotationType string

const (
	AnnotationHighlight  AnnotationType = "highlight"
	AnnotationMemo       AnnotationType = "memo"
	AnnotationVocabulary AnnotationType = "vocabulary"
)

// Valid reports whether t is one of the known annotation types.
func (t AnnotationType) Valid() bool {
	switch t {
	case AnnotationHighlight, AnnotationMemo, AnnotationVocabulary:
		return true
	}
	return false
}

// Annotation is a spatially anchored user selection on a source page.
// Annotations are never updated in place: delete and recreate instead.
type Annotation struct {
	ID             string         `json:"id"`
	SourceID       string         `json:"source_id"`
	Type           AnnotationType `json:"type"`
	SelectedText   string         `json:"selected_text"`
	SelectionRect  string         `json:"selection_rect"`   // JSON, see annotation.SelectionRect
	AIAnalysisJSON string         `json:"ai_analysis_json"` // JSON, see annotation.Analysis
	MemoContent    string         `json:"memo_content,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	// ClientKey is generated by the client before the first write and lets
	// a pending local record be matched with its stored counterpart.
	ClientKey string `json:"client_key,omitempty"`

	// Pending marks a local record that the store has not confirmed yet.
	Pending bool `json:"-"`
}

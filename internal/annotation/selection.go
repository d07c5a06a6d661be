// Package annotation turns selections into persisted annotation geometry and
// parses the JSON payloads stored alongside each annotation.
package annotation

import (
	"encoding/json"

	"lexilens/internal/geometry"
	"lexilens/internal/sentence"
	"lexilens/pkg/models"
)

// SelectionRect is the geometry stored in Annotation.SelectionRect.
// Bounds and Lines share the page-percentage space of OcrWord boxes.
type SelectionRect struct {
	Bounds models.BBox   `json:"bounds"`
	Lines  []models.BBox `json:"lines,omitempty"`
	Page   int           `json:"page"`
}

// Contains reports whether the page point (x, y) falls in the selection.
// Multi-line selections only match on their line boxes, so the blank corners
// of the overall bounds are not hit.
func (r SelectionRect) Contains(x, y float64) bool {
	if len(r.Lines) == 0 {
		return geometry.PointInBox(x, y, r.Bounds)
	}
	for _, l := range r.Lines {
		if geometry.PointInBox(x, y, l) {
			return true
		}
	}
	return false
}

// BuildFromWord returns the geometry of a single-word selection.
func BuildFromWord(word models.OcrWord, page int) SelectionRect {
	return SelectionRect{Bounds: word.BBox, Page: page}
}

// BuildFromSentence returns the geometry of a sentence selection with one box
// per visual line, so a renderer can mark each physical line separately.
func BuildFromSentence(s models.Sentence, page int) SelectionRect {
	rect := SelectionRect{Bounds: s.BBox, Page: page}
	for _, l := range sentence.GroupLines(s.Words) {
		rect.Lines = append(rect.Lines, geometry.UnionWords(l))
	}
	return rect
}

// Encode returns the JSON form stored in Annotation.SelectionRect.
func (r SelectionRect) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseSelectionRect decodes a stored selection. Malformed input yields false.
func ParseSelectionRect(raw string) (SelectionRect, bool) {
	var r SelectionRect
	if raw == "" {
		return r, false
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return SelectionRect{}, false
	}
	return r, true
}

package models

import "time"

// Source is an imported document or screenshot.
type Source struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"` // "image" or "pdf"
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SourcePage holds the OCR output of one page of a Source.
// Words are produced once at import time and never mutated.
type SourcePage struct {
	SourceID string    `json:"source_id"`
	Page     int       `json:"page"` // 1-based
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Words    []OcrWord `json:"words"`
}

package models

// Pattern is one grammar construction found in a sentence.
type Pattern struct {
	Words       []string `json:"words"`       // surface words belonging to the pattern
	Explanation string   `json:"explanation"` // learner-facing explanation
	Color       string   `json:"color"`       // hex color used to underline the words
	Type        string   `json:"type"`        // e.g. "idiom", "phrasal_verb"
	TypeKr      string   `json:"typeKr"`      // localized type label
}

package annotation

import (
	"encoding/json"
	"strings"

	"lexilens/pkg/models"
)

// AnalysisKind discriminates the payloads stored in Annotation.AIAnalysisJSON.
type AnalysisKind int

const (
	KindDefinition AnalysisKind = iota + 1 // plain dictionary definition
	KindVocabulary                         // saved vocabulary card
	KindGrammar                            // grammar pattern breakdown
)

func (k AnalysisKind) String() string {
	switch k {
	case KindDefinition:
		return "definition"
	case KindVocabulary:
		return "vocabulary"
	case KindGrammar:
		return "grammar"
	}
	return "unknown"
}

// Analysis is the decoded form of Annotation.AIAnalysisJSON. Exactly one of
// the payload pointers is set, matching Kind.
type Analysis struct {
	Kind       AnalysisKind
	Definition *Definition
	Vocabulary *Vocabulary
	Grammar    *Grammar
}

// Definition is a plain dictionary definition.
type Definition struct {
	Definition string `json:"definition"`
	Phonetic   string `json:"phonetic,omitempty"`
}

// Vocabulary is a saved vocabulary card.
type Vocabulary struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Phonetic   string `json:"phonetic,omitempty"`
}

// Grammar is a grammar breakdown of a sentence.
type Grammar struct {
	Patterns     []models.Pattern `json:"patterns"`
	OriginalText string           `json:"originalText"`
	Translation  string           `json:"translation"`
}

// NewVocabulary wraps a vocabulary card.
func NewVocabulary(v Vocabulary) Analysis { return Analysis{Kind: KindVocabulary, Vocabulary: &v} }

// NewGrammar wraps a grammar breakdown.
func NewGrammar(g Grammar) Analysis { return Analysis{Kind: KindGrammar, Grammar: &g} }

// NewDefinition wraps a plain definition.
func NewDefinition(d Definition) Analysis { return Analysis{Kind: KindDefinition, Definition: &d} }

type vocabularyWire struct {
	IsVocabulary bool `json:"isVocabulary"`
	Vocabulary
}

type grammarWire struct {
	Type string `json:"type"`
	Grammar
}

// Encode returns the stored JSON form. The wire shapes keep the legacy
// discriminators: {"isVocabulary": true, ...} and {"type": "grammar", ...}.
func (a Analysis) Encode() (string, error) {
	var v any
	switch {
	case a.Kind == KindVocabulary && a.Vocabulary != nil:
		v = vocabularyWire{IsVocabulary: true, Vocabulary: *a.Vocabulary}
	case a.Kind == KindGrammar && a.Grammar != nil:
		g := *a.Grammar
		if g.Patterns == nil {
			g.Patterns = []models.Pattern{}
		}
		v = grammarWire{Type: "grammar", Grammar: g}
	case a.Kind == KindDefinition && a.Definition != nil:
		v = a.Definition
	default:
		return "", ErrEmptyAnalysis
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseAnalysis decodes a stored analysis payload. Malformed or unrecognized
// payloads yield false and are treated as "no data" by callers.
func ParseAnalysis(raw string) (Analysis, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Analysis{}, false
	}

	var probe struct {
		Type         string  `json:"type"`
		IsVocabulary bool    `json:"isVocabulary"`
		Definition   *string `json:"definition"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Analysis{}, false
	}

	switch {
	case probe.Type == "grammar":
		var g Grammar
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return Analysis{}, false
		}
		return NewGrammar(g), true
	case probe.IsVocabulary:
		var v Vocabulary
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return Analysis{}, false
		}
		return NewVocabulary(v), true
	case probe.Definition != nil:
		var d Definition
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return Analysis{}, false
		}
		return NewDefinition(d), true
	}
	return Analysis{}, false
}

// IsVocabularyLike reports whether the analysis describes a single word.
func (a Analysis) IsVocabularyLike() bool {
	return a.Kind == KindVocabulary || a.Kind == KindDefinition
}

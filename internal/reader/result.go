package reader

import (
	"fmt"

	"lexilens/internal/annotation"
	"lexilens/internal/modal"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

// ResultKind says what a handled intent produced.
type ResultKind int

const (
	ResultNone       ResultKind = iota // the gesture hit nothing
	ResultExisting                     // a stored annotation was reopened
	ResultVocabulary                   // a tapped word was looked up
	ResultGrammar                      // a pressed sentence was analyzed
	ResultPage                         // the page changed
	ResultShake                        // a page turn was refused at the first or last page
	ResultDismissed                    // the open overlay was closed
	ResultZoom                         // the view transform changed
)

func (k ResultKind) String() string {
	switch k {
	case ResultNone:
		return "none"
	case ResultExisting:
		return "existing"
	case ResultVocabulary:
		return "vocabulary"
	case ResultGrammar:
		return "grammar"
	case ResultPage:
		return "page"
	case ResultShake:
		return "shake"
	case ResultDismissed:
		return "dismissed"
	case ResultZoom:
		return "zoom"
	}
	return fmt.Sprintf("result(%d)", int(k))
}

// Result is the outcome of one intent. It is also the payload of the
// overlay opened for it.
type Result struct {
	Kind ResultKind
	Page int
	// X and Y are the gesture position in page percent.
	X, Y float64

	Hit       *annotation.Hit
	Word      *models.OcrWord
	Sentence  *models.Sentence
	Selection annotation.SelectionRect

	Lookup  *services.WordLookup
	Grammar *services.GrammarResult

	// Status is a short user-facing line set when a lookup fell back to an
	// empty result.
	Status    string
	Placement modal.Placement

	// Superseded is set when a newer gesture or page change happened while
	// the lookup was in flight. Such results open no overlay.
	Superseded bool

	seq uint64
}

// Text returns the selected text of the result.
func (r *Result) Text() string {
	switch {
	case r.Sentence != nil:
		return r.Sentence.Text
	case r.Word != nil:
		return r.Word.Text
	case r.Hit != nil:
		return r.Hit.Annotation.SelectedText
	}
	return ""
}

// analysis returns the payload stored when the result is saved.
func (r *Result) analysis() (annotation.Analysis, bool) {
	switch r.Kind {
	case ResultVocabulary:
		if r.Lookup == nil || r.Word == nil {
			return annotation.Analysis{}, false
		}
		word := r.Lookup.Word
		if word == "" {
			word = r.Word.Text
		}
		return annotation.NewVocabulary(annotation.Vocabulary{
			Word:       word,
			Definition: r.Lookup.Definition,
			Phonetic:   r.Lookup.Phonetic,
		}), true
	case ResultGrammar:
		if r.Grammar == nil || r.Sentence == nil {
			return annotation.Analysis{}, false
		}
		return annotation.NewGrammar(annotation.Grammar{
			Patterns:     r.Grammar.Patterns,
			OriginalText: r.Sentence.Text,
			Translation:  r.Grammar.Translation,
		}), true
	}
	return annotation.Analysis{}, false
}

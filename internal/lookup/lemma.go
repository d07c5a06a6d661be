package lookup

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Lemmatizer reduces inflected Japanese words to their dictionary form so
// 食べた and 食べている share one lookup. Other scripts pass through.
type Lemmatizer struct {
	t *tokenizer.Tokenizer
}

// NewLemmatizer loads the IPA dictionary.
func NewLemmatizer() (*Lemmatizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Lemmatizer{t: t}, nil
}

// Lemma returns the base form of the first content token of word.
func (l *Lemmatizer) Lemma(word string) string {
	if l == nil || !isJapanese(word) {
		return word
	}
	for _, token := range l.t.Tokenize(word) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA features: index 6 is the base form.
		features := token.Features()
		if len(features) > 6 && features[6] != "*" {
			return features[6]
		}
		return token.Surface
	}
	return word
}

package lookup

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CleanWord strips the punctuation OCR leaves around a tapped word, such as
// trailing commas or quotes, and applies NFKC so full-width forms match.
func CleanWord(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// CacheKey returns the case-folded form used to share lookups between
// "Running", "running," and "RUNNING".
func CacheKey(s string) string {
	return cases.Fold().String(CleanWord(s))
}

// CleanSentence collapses whitespace runs, including OCR line breaks.
func CleanSentence(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// isJapanese reports whether s contains kana or CJK ideographs.
func isJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

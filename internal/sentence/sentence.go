// Package sentence reconstructs natural-language sentences from OCR word boxes.
//
// OCR engines return words as independent boxes without reliable paragraph or
// sentence segmentation. FindSentence rebuilds the sentence around a chosen
// word using only geometry and punctuation:
//
//  1. adaptive gap thresholds measured from the target word's nearest
//     neighbours on its line and in its column,
//  2. a breadth-first flood fill that merges the visually contiguous block,
//  3. grouping of the block into ordered visual lines,
//  4. clipping at sentence punctuation, paragraph breaks and height breaks
//     (headings, captions, neighbouring columns).
package sentence

import (
	"math"
	"strings"
	"unicode/utf8"

	"lexilens/internal/geometry"
	"lexilens/pkg/models"
)

const (
	// GapMultiplier scales the smallest observed neighbour gap into a
	// connectivity threshold.
	GapMultiplier = 1.5

	// DefaultHorizontalThreshold is used when the target has no neighbour on its line.
	DefaultHorizontalThreshold = 5.0

	// ParagraphGapRatio is the blank space between two lines, relative to the
	// current line's average height, above which the lines belong to
	// different paragraphs.
	ParagraphGapRatio = 1.3

	// HeightChangeRatio is the relative difference in average word height
	// above which a line is treated as a heading or caption.
	HeightChangeRatio = 0.4
)

// Thresholds are the connectivity limits used by the flood fill.
type Thresholds struct {
	Horizontal float64
	Vertical   float64
}

// FindSentence returns the sentence containing target, or nil when words is
// empty, target is not among words, or target has no connected neighbour.
// Callers should fall back to a single-word selection on nil.
func FindSentence(words []models.OcrWord, target models.OcrWord) *models.Sentence {
	idx := indexOf(words, target)
	if idx < 0 {
		return nil
	}
	return FindSentenceAt(words, idx)
}

// FindSentenceAt is FindSentence with the target given by its index in words.
func FindSentenceAt(words []models.OcrWord, idx int) *models.Sentence {
	if idx < 0 || idx >= len(words) {
		return nil
	}

	th := AdaptiveThresholds(words, idx)
	block := connectedBlock(words, idx, th)
	if len(block) < 2 {
		return nil
	}

	lines := groupLineIndices(words, block)
	selected := clip(words, lines, idx)
	if len(selected) == 0 {
		return nil
	}

	out := make([]models.OcrWord, len(selected))
	texts := make([]string, len(selected))
	for i, wi := range selected {
		out[i] = words[wi]
		texts[i] = words[wi].Text
	}
	return &models.Sentence{
		Text:  strings.Join(texts, " "),
		BBox:  geometry.UnionWords(out),
		Words: out,
	}
}

// indexOf finds target by text and box, falling back to the box alone.
func indexOf(words []models.OcrWord, target models.OcrWord) int {
	fallback := -1
	for i, w := range words {
		if w.BBox != target.BBox {
			continue
		}
		if w.Text == target.Text {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	return fallback
}

// AdaptiveThresholds derives the flood-fill thresholds from the spacing around
// words[idx]. Only neighbours overlapping the target by more than
// geometry.SameLineRatio on the perpendicular axis are measured, so diagonal
// words never shrink or stretch the thresholds.
func AdaptiveThresholds(words []models.OcrWord, idx int) Thresholds {
	t := words[idx].BBox
	left, right := math.Inf(1), math.Inf(1)
	top, bottom := math.Inf(1), math.Inf(1)

	for i, w := range words {
		if i == idx {
			continue
		}
		b := w.BBox
		if geometry.SameLine(t, b) {
			if gap := geometry.HorizontalGap(t, b); gap > 0 {
				if b.CenterX() < t.CenterX() {
					left = math.Min(left, gap)
				} else {
					right = math.Min(right, gap)
				}
			}
		}
		if geometry.SameColumn(t, b) {
			if gap := geometry.VerticalGap(t, b); gap > 0 {
				if b.CenterY() < t.CenterY() {
					top = math.Min(top, gap)
				} else {
					bottom = math.Min(bottom, gap)
				}
			}
		}
	}

	th := Thresholds{
		Horizontal: DefaultHorizontalThreshold,
		Vertical:   t.Height * GapMultiplier,
	}
	if h := math.Min(left, right); !math.IsInf(h, 1) {
		th.Horizontal = h * GapMultiplier
	}
	if v := math.Min(top, bottom); !math.IsInf(v, 1) {
		th.Vertical = v * GapMultiplier
	}
	return th
}

// connectedBlock flood-fills from idx and returns the indices of every word
// reachable through adjacent words. The result is independent of reading order.
func connectedBlock(words []models.OcrWord, idx int, th Thresholds) []int {
	visited := make([]bool, len(words))
	visited[idx] = true
	queue := []int{idx}
	var block []int

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		block = append(block, cur)

		for i := range words {
			if visited[i] || !adjacent(words[cur].BBox, words[i].BBox, th) {
				continue
			}
			visited[i] = true
			queue = append(queue, i)
		}
	}
	return block
}

func adjacent(a, b models.BBox, th Thresholds) bool {
	if geometry.SameLine(a, b) && geometry.HorizontalGap(a, b) <= th.Horizontal {
		return true
	}
	if geometry.SameColumn(a, b) && geometry.VerticalGap(a, b) <= th.Vertical {
		return true
	}
	return false
}

// endsSentence reports whether text ends in sentence punctuation, ignoring
// closing quotes and brackets.
func endsSentence(text string) bool {
	text = strings.TrimRight(text, "\"')]}»”’」』）")
	r, _ := utf8.DecodeLastRuneInString(text)
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// clip walks backward and forward from the target word across the ordered
// lines and returns the word indices of the enclosing sentence.
func clip(words []models.OcrWord, lines []line, target int) []int {
	type position struct{ line, word int }

	var flat []position
	targetPos := -1
	for li, l := range lines {
		for _, wi := range l.idx {
			if wi == target {
				targetPos = len(flat)
			}
			flat = append(flat, position{line: li, word: wi})
		}
	}
	if targetPos < 0 {
		return nil
	}
	targetLine := lines[flat[targetPos].line]

	start := targetPos
	for i := targetPos - 1; i >= 0; i-- {
		if endsSentence(words[flat[i].word].Text) {
			break
		}
		if flat[i].line != flat[i+1].line &&
			isBreak(lines[flat[i+1].line], lines[flat[i].line], targetLine) {
			break
		}
		start = i
	}

	end := targetPos
	if !endsSentence(words[target].Text) {
		for i := targetPos + 1; i < len(flat); i++ {
			if flat[i].line != flat[i-1].line &&
				isBreak(lines[flat[i-1].line], lines[flat[i].line], targetLine) {
				break
			}
			end = i
			if endsSentence(words[flat[i].word].Text) {
				break
			}
		}
	}

	out := make([]int, 0, end-start+1)
	for _, p := range flat[start : end+1] {
		out = append(out, p.word)
	}
	return out
}

// isBreak reports whether moving from the current line to next crosses a
// paragraph break or enters a line whose text height differs from the target
// line's.
func isBreak(current, next, target line) bool {
	gap := math.Max(next.top-current.bottom, current.top-next.bottom)
	if gap > ParagraphGapRatio*current.avgHeight {
		return true
	}
	if target.avgHeight > 0 && math.Abs(next.avgHeight-target.avgHeight)/target.avgHeight > HeightChangeRatio {
		return true
	}
	return false
}

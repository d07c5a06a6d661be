package sentence

import (
	"strings"
	"testing"
	"unicode/utf8"

	"lexilens/pkg/models"
)

// layout places each row on its own line starting at x0. Characters are
// charW wide and words are separated by one unit.
func layout(x0, y0, charW, height, pitch float64, rows ...string) []models.OcrWord {
	var words []models.OcrWord
	for r, row := range rows {
		x := x0
		y := y0 + float64(r)*pitch
		for _, text := range strings.Fields(row) {
			w := float64(utf8.RuneCountInString(text)) * charW
			words = append(words, models.OcrWord{
				Text:       text,
				Confidence: 0.98,
				BBox:       models.BBox{X: x, Y: y, Width: w, Height: height},
			})
			x += w + 1
		}
	}
	return words
}

func find(t *testing.T, words []models.OcrWord, text string) int {
	t.Helper()
	for i, w := range words {
		if w.Text == text {
			return i
		}
	}
	t.Fatalf("word %q not in layout", text)
	return -1
}

func TestFindSentenceSingleLine(t *testing.T) {
	words := layout(10, 10, 1, 3, 0, "This is a test. Another one.")

	got := FindSentence(words, words[1])
	if got == nil {
		t.Fatal("expected a sentence for 'is'")
	}
	if got.Text != "This is a test." {
		t.Fatalf("sentence = %q, want %q", got.Text, "This is a test.")
	}
	if len(got.Words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(got.Words))
	}
	if got.BBox.X != words[0].BBox.X || got.BBox.Right() != words[3].BBox.Right() {
		t.Fatalf("bbox %+v does not span This..test.", got.BBox)
	}

	next := FindSentence(words, words[find(t, words, "Another")])
	if next == nil || next.Text != "Another one." {
		t.Fatalf("second sentence = %+v, want 'Another one.'", next)
	}

	last := FindSentence(words, words[find(t, words, "test.")])
	if last == nil || last.Text != "This is a test." {
		t.Fatalf("sentence ending at target = %+v", last)
	}
}

func TestFindSentenceAcrossLines(t *testing.T) {
	words := layout(10, 10, 1, 2, 3,
		"The cat sat. It was",
		"very happy today. Then",
		"it left.",
	)

	got := FindSentenceAt(words, find(t, words, "was"))
	if got == nil {
		t.Fatal("expected a sentence")
	}
	if want := "It was very happy today."; got.Text != want {
		t.Fatalf("sentence = %q, want %q", got.Text, want)
	}

	tail := FindSentenceAt(words, find(t, words, "left."))
	if tail == nil || tail.Text != "Then it left." {
		t.Fatalf("sentence = %+v, want 'Then it left.'", tail)
	}
}

func TestFindSentenceStopsAtHeading(t *testing.T) {
	words := layout(10, 2, 2, 4, 0, "Chapter One")
	words = append(words, layout(10, 7, 1, 2, 3, "Once upon a time", "there was a fox.")...)

	got := FindSentenceAt(words, find(t, words, "upon"))
	if got == nil {
		t.Fatal("expected a sentence")
	}
	if want := "Once upon a time there was a fox."; got.Text != want {
		t.Fatalf("sentence = %q, want %q", got.Text, want)
	}
}

func TestFindSentenceStopsAtParagraphBreak(t *testing.T) {
	words := layout(10, 10, 1, 2, 5, "Lorem ipsum dolor", "Sit amet elit.")

	got := FindSentenceAt(words, find(t, words, "ipsum"))
	if got == nil {
		t.Fatal("expected a sentence")
	}
	if want := "Lorem ipsum dolor"; got.Text != want {
		t.Fatalf("sentence = %q, want %q", got.Text, want)
	}
}

func TestFindSentenceKeepsColumnsApart(t *testing.T) {
	words := layout(10, 10, 1, 2, 0, "Left one.")
	words = append(words, layout(27, 10, 1, 2, 0, "Right two.")...)

	got := FindSentenceAt(words, find(t, words, "Left"))
	if got == nil || got.Text != "Left one." {
		t.Fatalf("sentence = %+v, want 'Left one.'", got)
	}
}

func TestFindSentenceNoNeighbours(t *testing.T) {
	if FindSentence(nil, models.OcrWord{Text: "x"}) != nil {
		t.Fatal("expected nil for empty input")
	}

	words := []models.OcrWord{
		{Text: "Alone", BBox: models.BBox{X: 10, Y: 10, Width: 5, Height: 2}},
		{Text: "Far", BBox: models.BBox{X: 70, Y: 80, Width: 3, Height: 2}},
	}
	if got := FindSentence(words, words[0]); got != nil {
		t.Fatalf("expected nil for isolated word, got %+v", got)
	}

	stranger := models.OcrWord{Text: "Alone", BBox: models.BBox{X: 1, Y: 1, Width: 1, Height: 1}}
	if FindSentence(words, stranger) != nil {
		t.Fatal("expected nil for a word not on the page")
	}
}

func TestSentenceWordsAreInFloodFilledBlock(t *testing.T) {
	words := layout(10, 10, 1, 2, 3,
		"The cat sat. It was",
		"very happy today. Then",
		"it left.",
	)
	target := find(t, words, "happy")
	th := AdaptiveThresholds(words, target)
	block := map[int]bool{}
	for _, wi := range connectedBlock(words, target, th) {
		block[wi] = true
	}

	got := FindSentenceAt(words, target)
	if got == nil {
		t.Fatal("expected a sentence")
	}
	for _, w := range got.Words {
		wi := find(t, words, w.Text)
		if !block[wi] {
			t.Fatalf("word %q is not connected to the target", w.Text)
		}
		if wi == target {
			continue
		}
		linked := false
		for other := range block {
			if other != wi && adjacent(words[wi].BBox, words[other].BBox, th) {
				linked = true
				break
			}
		}
		if !linked {
			t.Fatalf("word %q has no adjacent word within the thresholds", w.Text)
		}
	}
}

func TestAdaptiveThresholdsDefaults(t *testing.T) {
	words := []models.OcrWord{{Text: "solo", BBox: models.BBox{X: 10, Y: 10, Width: 4, Height: 2}}}
	th := AdaptiveThresholds(words, 0)
	if th.Horizontal != DefaultHorizontalThreshold {
		t.Fatalf("horizontal = %v, want %v", th.Horizontal, DefaultHorizontalThreshold)
	}
	if th.Vertical != 3 {
		t.Fatalf("vertical = %v, want 3 (height * 1.5)", th.Vertical)
	}
}

func TestGroupLines(t *testing.T) {
	words := layout(10, 10, 1, 2, 3, "a b c", "d e", "f")
	// reverse so grouping cannot rely on input order
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	lines := GroupLines(words)
	want := [][]string{{"a", "b", "c"}, {"d", "e"}, {"f"}}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, l := range lines {
		var got []string
		for _, w := range l {
			got = append(got, w.Text)
		}
		if strings.Join(got, " ") != strings.Join(want[i], " ") {
			t.Fatalf("line %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestEndsSentence(t *testing.T) {
	cases := map[string]bool{
		"test.":   true,
		"really?": true,
		"wow!\"":  true,
		"(done.)": true,
		"끝났다.":    true,
		"終わり。":    true,
		"本当？":     true,
		"word":    false,
		"e.g":     false,
		"":        false,
	}
	for text, want := range cases {
		if got := endsSentence(text); got != want {
			t.Errorf("endsSentence(%q) = %v, want %v", text, got, want)
		}
	}
}

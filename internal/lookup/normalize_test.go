package lookup

import (
	"regexp"
	"testing"
)

func TestCleanWord(t *testing.T) {
	tests := []struct{ in, want string }{
		{"word,", "word"},
		{"“quoted”", "quoted"},
		{"don't!", "don't"},
		{"Ｈｅｌｌｏ", "Hello"},
		{"  (state-of-the-art)  ", "state-of-the-art"},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := CleanWord(tt.in); got != tt.want {
			t.Errorf("CleanWord(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCacheKeyFoldsCase(t *testing.T) {
	if CacheKey("RUNNING,") != CacheKey("running") {
		t.Errorf("CacheKey differs for case and punctuation variants")
	}
}

func TestCleanSentence(t *testing.T) {
	if got := CleanSentence("It was\n  very   happy."); got != "It was very happy." {
		t.Errorf("CleanSentence = %q", got)
	}
}

func TestPaletteColor(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		c := PaletteColor(i)
		if !hex.MatchString(c) {
			t.Errorf("PaletteColor(%d) = %q", i, c)
		}
		if seen[c] {
			t.Errorf("PaletteColor(%d) repeats %q", i, c)
		}
		seen[c] = true
	}
	if PaletteColor(3) != PaletteColor(3) {
		t.Error("palette is not deterministic")
	}
}

func TestCache(t *testing.T) {
	c := newCache[int](2)
	c.put("a", 1)
	c.put("b", 2)
	c.get("a")
	c.put("c", 3)
	if _, ok := c.get("b"); ok {
		t.Error("least recently used entry was not evicted")
	}
	if v, ok := c.get("a"); !ok || v != 1 {
		t.Errorf("get(a) = %v, %v", v, ok)
	}
}

package modal

import "testing"

func TestArbiterKeepsOneOverlay(t *testing.T) {
	a := NewArbiter()
	if a.Current() != nil {
		t.Fatal("new arbiter should be empty")
	}
	if closed := a.Open(KindVocabulary, "cat"); closed != nil {
		t.Fatalf("nothing should have been closed, got %+v", closed)
	}
	closed := a.Open(KindGrammar, "The cat sat.")
	if closed == nil || closed.Kind != KindVocabulary {
		t.Fatalf("opening grammar should close vocabulary, got %+v", closed)
	}
	if !a.IsOpen(KindGrammar) || a.IsOpen(KindVocabulary) {
		t.Fatalf("only grammar should be open: %+v", a.Current())
	}
	a.Close()
	if a.Current() != nil {
		t.Fatal("close should clear the overlay")
	}
}

func TestPlaceBelowOrAbove(t *testing.T) {
	cases := []struct {
		name     string
		anchor   Anchor
		viewport float64
		safe     float64
		want     Placement
	}{
		{"plenty of room below", Anchor{Top: 100, Bottom: 120}, 800, 0, Below},
		{"exactly 200 below", Anchor{Top: 580, Bottom: 600}, 800, 0, Below},
		{"tight below, more above", Anchor{Top: 600, Bottom: 620}, 800, 0, Above},
		{"safe area eats the room", Anchor{Top: 450, Bottom: 470}, 800, 150, Above},
		{"tight both ways, more below", Anchor{Top: 50, Bottom: 70}, 200, 0, Below},
	}
	for _, c := range cases {
		if got := PlaceBelowOrAbove(c.anchor, c.viewport, c.safe); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

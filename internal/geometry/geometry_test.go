package geometry

import (
	"math"
	"math/rand"
	"testing"

	"lexilens/pkg/models"
)

func box(x, y, w, h float64) models.BBox {
	return models.BBox{X: x, Y: y, Width: w, Height: h}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPointInBoxInclusive(t *testing.T) {
	b := box(10, 20, 5, 4)
	cases := []struct {
		x, y float64
		want bool
	}{
		{12, 22, true},
		{10, 20, true},
		{15, 24, true},
		{15.01, 24, false},
		{9.99, 22, false},
		{12, 24.5, false},
	}
	for _, c := range cases {
		if got := PointInBox(c.x, c.y, b); got != c.want {
			t.Errorf("PointInBox(%v, %v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestUnion(t *testing.T) {
	got := Union([]models.BBox{box(10, 10, 5, 2), box(30, 12, 4, 3), box(12, 40, 1, 1)})
	want := box(10, 10, 24, 31)
	if !approx(got.X, want.X) || !approx(got.Y, want.Y) || !approx(got.Width, want.Width) || !approx(got.Height, want.Height) {
		t.Fatalf("Union = %+v, want %+v", got, want)
	}
	if empty := Union(nil); empty != (models.BBox{}) {
		t.Fatalf("Union(nil) = %+v, want zero box", empty)
	}
}

func TestUnionIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		boxes := make([]models.BBox, 2+rng.Intn(10))
		for i := range boxes {
			boxes[i] = box(rng.Float64()*90, rng.Float64()*90, rng.Float64()*10, rng.Float64()*10)
		}
		want := Union(boxes)
		shuffled := append([]models.BBox(nil), boxes...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := Union(shuffled); got != want {
			t.Fatalf("round %d: Union changed under reordering: %+v vs %+v", round, got, want)
		}
	}
}

func TestOverlapAndLines(t *testing.T) {
	a := box(0, 10, 5, 2)
	b := box(6, 10.5, 5, 2)
	c := box(0, 11.7, 5, 2)

	if !approx(VerticalOverlap(a, b), 1.5) {
		t.Errorf("VerticalOverlap(a, b) = %v, want 1.5", VerticalOverlap(a, b))
	}
	if !SameLine(a, b) {
		t.Errorf("a and b should be on the same line")
	}
	if SameLine(a, c) {
		t.Errorf("a and c overlap by 0.3, below 30%% of their height")
	}
	if HorizontalOverlap(a, b) != 0 {
		t.Errorf("a and b should not overlap horizontally")
	}
	if !SameColumn(a, c) {
		t.Errorf("a and c should share a column")
	}
	if !approx(HorizontalGap(a, b), 1) || !approx(HorizontalGap(b, a), 1) {
		t.Errorf("HorizontalGap = %v / %v, want 1", HorizontalGap(a, b), HorizontalGap(b, a))
	}
	if VerticalGap(a, b) != 0 {
		t.Errorf("overlapping boxes must have zero vertical gap")
	}
	if !approx(VerticalGap(a, box(0, 15, 1, 1)), 3) {
		t.Errorf("VerticalGap = %v, want 3", VerticalGap(a, box(0, 15, 1, 1)))
	}
}

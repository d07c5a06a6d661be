// Package geometry provides pure functions over page-relative bounding boxes.
//
// All boxes are expressed in percentage-of-page units (0-100 on both axes),
// which keeps every comparison independent of the rendered image resolution.
package geometry

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"lexilens/pkg/models"
)

// SameLineRatio is the share of the shorter box's height that two boxes must
// overlap vertically to sit on the same text line. The same ratio applied to
// widths decides whether two boxes share a column.
const SameLineRatio = 0.3

// Rect converts a box to an r2.Rect.
func Rect(b models.BBox) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: b.X, Hi: b.X + b.Width},
		Y: r1.Interval{Lo: b.Y, Hi: b.Y + b.Height},
	}
}

// FromRect converts an r2.Rect back to a box. Empty rects become the zero box.
func FromRect(r r2.Rect) models.BBox {
	if r.IsEmpty() {
		return models.BBox{}
	}
	return models.BBox{
		X:      r.X.Lo,
		Y:      r.Y.Lo,
		Width:  r.X.Length(),
		Height: r.Y.Length(),
	}
}

// PointInBox reports whether (x, y) lies inside b, edges included.
func PointInBox(x, y float64, b models.BBox) bool {
	return Rect(b).ContainsPoint(r2.Point{X: x, Y: y})
}

// Union returns the tightest box enclosing every box in boxes.
// The result does not depend on the order of boxes.
func Union(boxes []models.BBox) models.BBox {
	r := r2.EmptyRect()
	for _, b := range boxes {
		r = r.Union(Rect(b))
	}
	return FromRect(r)
}

// UnionWords is Union over the boxes of words.
func UnionWords(words []models.OcrWord) models.BBox {
	boxes := make([]models.BBox, len(words))
	for i, w := range words {
		boxes[i] = w.BBox
	}
	return Union(boxes)
}

// VerticalOverlap returns how far a and b overlap along the y axis.
func VerticalOverlap(a, b models.BBox) float64 {
	return overlap(Rect(a).Y, Rect(b).Y)
}

// HorizontalOverlap returns how far a and b overlap along the x axis.
func HorizontalOverlap(a, b models.BBox) float64 {
	return overlap(Rect(a).X, Rect(b).X)
}

func overlap(a, b r1.Interval) float64 {
	in := a.Intersection(b)
	if in.IsEmpty() {
		return 0
	}
	return in.Length()
}

// SameLine reports whether a and b overlap vertically by more than
// SameLineRatio of the shorter box.
func SameLine(a, b models.BBox) bool {
	return VerticalOverlap(a, b) > SameLineRatio*math.Min(a.Height, b.Height)
}

// SameColumn reports whether a and b overlap horizontally by more than
// SameLineRatio of the narrower box.
func SameColumn(a, b models.BBox) bool {
	return HorizontalOverlap(a, b) > SameLineRatio*math.Min(a.Width, b.Width)
}

// HorizontalGap returns the empty space between a and b along x.
// Overlapping boxes have a gap of 0.
func HorizontalGap(a, b models.BBox) float64 {
	if b.X >= a.Right() {
		return b.X - a.Right()
	}
	if a.X >= b.Right() {
		return a.X - b.Right()
	}
	return 0
}

// VerticalGap returns the empty space between a and b along y.
// Overlapping boxes have a gap of 0.
func VerticalGap(a, b models.BBox) float64 {
	if b.Y >= a.Bottom() {
		return b.Y - a.Bottom()
	}
	if a.Y >= b.Bottom() {
		return a.Y - b.Bottom()
	}
	return 0
}

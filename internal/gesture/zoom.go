package gesture

import "math"

// Point is a position in container pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func distance(a, b Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

func midpoint(a, b Point) Point { return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2} }

// Size is the container size in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Zoom is the view transform applied to the page image: scale around a
// transform origin (percent of the container) followed by a pan in pixels.
type Zoom struct {
	Scale   float64 `json:"scale"`
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	PanX    float64 `json:"pan_x"`
	PanY    float64 `json:"pan_y"`
}

// Identity returns the unzoomed transform.
func Identity() Zoom { return Zoom{Scale: 1, OriginX: 50, OriginY: 50} }

// Zoomed reports whether the view is magnified.
func (z Zoom) Zoomed() bool { return z.Scale > 1 }

// MaxPan returns the largest pan per axis that keeps the scaled image
// covering the container.
func (z Zoom) MaxPan(size Size) (x, y float64) {
	if z.Scale <= 1 {
		return 0, 0
	}
	return size.Width * (z.Scale - 1) / 2, size.Height * (z.Scale - 1) / 2
}

func (z Zoom) clampPan(size Size) Zoom {
	mx, my := z.MaxPan(size)
	z.PanX = clamp(z.PanX, -mx, mx)
	z.PanY = clamp(z.PanY, -my, my)
	return z
}

// Unproject converts a container pixel position to page-percentage
// coordinates, undoing scale and pan.
func (z Zoom) Unproject(p Point, size Size) (x, y float64) {
	scale := z.Scale
	if scale <= 0 {
		scale = 1
	}
	ox := z.OriginX / 100 * size.Width
	oy := z.OriginY / 100 * size.Height
	qx := ox + (p.X-ox-z.PanX)/scale
	qy := oy + (p.Y-oy-z.PanY)/scale
	if size.Width > 0 {
		x = qx / size.Width * 100
	}
	if size.Height > 0 {
		y = qy / size.Height * 100
	}
	return x, y
}

// Project converts page-percentage coordinates to a container pixel
// position under the transform. It is the inverse of Unproject.
func (z Zoom) Project(x, y float64, size Size) Point {
	scale := z.Scale
	if scale <= 0 {
		scale = 1
	}
	ox := z.OriginX / 100 * size.Width
	oy := z.OriginY / 100 * size.Height
	qx := x / 100 * size.Width
	qy := y / 100 * size.Height
	return Point{X: ox + z.PanX + (qx-ox)*scale, Y: oy + z.PanY + (qy-oy)*scale}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package models

// BBox is a rectangle in percentage-of-page units (0-100 on both axes), origin top-left.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (b BBox) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b BBox) Bottom() float64 { return b.Y + b.Height }

// CenterX returns the horizontal center.
func (b BBox) CenterX() float64 { return b.X + b.Width/2 }

// CenterY returns the vertical center.
func (b BBox) CenterY() float64 { return b.Y + b.Height/2 }

// Area returns width * height.
func (b BBox) Area() float64 { return b.Width * b.Height }

// OcrWord is a single recognized word on a page image.
type OcrWord struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	BBox       BBox    `json:"bbox"`
}

// Sentence is derived from a page's words on demand and never persisted.
type Sentence struct {
	Text  string    `json:"text"`
	BBox  BBox      `json:"bbox"`
	Words []OcrWord `json:"words"`
}

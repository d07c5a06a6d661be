package lookup

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"lexilens/pkg/models"
)

const goldenAngle = 137.508

// PaletteColor returns the i-th color of a palette whose neighbours are far
// apart in hue, so adjacent grammar patterns stay distinguishable.
func PaletteColor(i int) string {
	h := math.Mod(float64(i)*goldenAngle+210, 360)
	return colorful.Hsv(h, 0.55, 0.85).Hex()
}

// normalizeColors keeps valid model-supplied colors in canonical #rrggbb
// form and assigns palette colors to the rest.
func normalizeColors(patterns []models.Pattern) {
	for i := range patterns {
		c, err := colorful.Hex(patterns[i].Color)
		if err != nil {
			patterns[i].Color = PaletteColor(i)
			continue
		}
		patterns[i].Color = c.Hex()
	}
}

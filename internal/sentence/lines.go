package sentence

import (
	"math"
	"sort"

	"lexilens/pkg/models"
)

// LineTolerance is the fraction of the average word height within which two
// word centers are considered to be on the same visual line.
const LineTolerance = 0.5

type line struct {
	idx       []int
	top       float64
	bottom    float64
	avgHeight float64
	centerY   float64
}

func (l *line) add(words []models.OcrWord, wi int) {
	b := words[wi].BBox
	n := float64(len(l.idx))
	l.centerY = (l.centerY*n + b.CenterY()) / (n + 1)
	l.avgHeight = (l.avgHeight*n + b.Height) / (n + 1)
	if len(l.idx) == 0 {
		l.top, l.bottom = b.Y, b.Bottom()
	} else {
		l.top = math.Min(l.top, b.Y)
		l.bottom = math.Max(l.bottom, b.Bottom())
	}
	l.idx = append(l.idx, wi)
}

func (l *line) accepts(b models.BBox) bool {
	avg := (l.avgHeight + b.Height) / 2
	return math.Abs(b.CenterY()-l.centerY) < LineTolerance*avg
}

// groupLineIndices orders the words at idx into visual lines, top to bottom,
// each line left to right.
func groupLineIndices(words []models.OcrWord, idx []int) []line {
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := words[sorted[i]].BBox, words[sorted[j]].BBox
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	var lines []line
	for _, wi := range sorted {
		if n := len(lines); n > 0 && lines[n-1].accepts(words[wi].BBox) {
			lines[n-1].add(words, wi)
			continue
		}
		var l line
		l.add(words, wi)
		lines = append(lines, l)
	}

	for i := range lines {
		ids := lines[i].idx
		sort.SliceStable(ids, func(a, b int) bool {
			return words[ids[a]].BBox.X < words[ids[b]].BBox.X
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].centerY < lines[j].centerY })
	return lines
}

// GroupLines splits words into visual lines ordered top to bottom, with the
// words of each line ordered left to right.
func GroupLines(words []models.OcrWord) [][]models.OcrWord {
	idx := make([]int, len(words))
	for i := range words {
		idx[i] = i
	}
	lines := groupLineIndices(words, idx)
	out := make([][]models.OcrWord, len(lines))
	for i, l := range lines {
		out[i] = make([]models.OcrWord, len(l.idx))
		for j, wi := range l.idx {
			out[i][j] = words[wi]
		}
	}
	return out
}

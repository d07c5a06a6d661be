package annotation

import (
	"math"
	"sort"

	"lexilens/internal/geometry"
	"lexilens/pkg/models"
)

// areaEpsilon is the area difference below which two boxes count as equal.
const areaEpsilon = 1e-6

// Hit is a stored annotation matched by a point, with its decoded payloads.
type Hit struct {
	Annotation  models.Annotation
	Rect        SelectionRect
	Analysis    Analysis
	HasAnalysis bool
}

// Decode parses the stored payloads of a. It fails only when the selection
// geometry is unreadable; an unreadable analysis leaves HasAnalysis false.
func Decode(a models.Annotation) (Hit, bool) {
	rect, ok := ParseSelectionRect(a.SelectionRect)
	if !ok {
		return Hit{}, false
	}
	analysis, hasAnalysis := ParseAnalysis(a.AIAnalysisJSON)
	return Hit{Annotation: a, Rect: rect, Analysis: analysis, HasAnalysis: hasAnalysis}, true
}

// Resolve returns the annotation on page hit by the point (x, y), or nil.
//
// A tap only matches word annotations (vocabulary cards and definitions); a
// long-press matches any annotation. Among matches the smaller box wins; on
// equal area a long-press prefers grammar and a tap prefers vocabulary cards.
// Annotations with unreadable geometry are skipped and counted in skipped.
func Resolve(annotations []models.Annotation, page int, x, y float64, longPress bool) (hit *Hit, skipped int) {
	var candidates []Hit
	for _, a := range annotations {
		h, ok := Decode(a)
		if !ok {
			skipped++
			continue
		}
		if h.Rect.Page != page || !h.Rect.Contains(x, y) {
			continue
		}
		if !longPress && !(h.HasAnalysis && h.Analysis.IsVocabularyLike()) {
			continue
		}
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		return nil, skipped
	}

	preferred := KindVocabulary
	if longPress {
		preferred = KindGrammar
	}
	rank := func(h Hit) int {
		if h.HasAnalysis && h.Analysis.Kind == preferred {
			return 0
		}
		return 1
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ai, aj := candidates[i].Rect.Bounds.Area(), candidates[j].Rect.Bounds.Area()
		if math.Abs(ai-aj) > areaEpsilon {
			return ai < aj
		}
		return rank(candidates[i]) < rank(candidates[j])
	})
	return &candidates[0], skipped
}

// WordAt returns the index of the OCR word containing the page point (x, y).
// When OCR boxes overlap the smallest box wins.
func WordAt(words []models.OcrWord, x, y float64) (int, bool) {
	best := -1
	for i, w := range words {
		if !geometry.PointInBox(x, y, w.BBox) {
			continue
		}
		if best < 0 || w.BBox.Area() < words[best].BBox.Area() {
			best = i
		}
	}
	return best, best >= 0
}

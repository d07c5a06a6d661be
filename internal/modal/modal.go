// Package modal arbitrates the single overlay that may be visible at a time
// and places popovers relative to their anchor.
package modal

import "sync"

// Kind identifies an overlay.
type Kind string

const (
	KindVocabulary Kind = "vocabulary"
	KindGrammar    Kind = "grammar"
	KindMemo       Kind = "memo"
	KindAnnotation Kind = "annotation"
	KindError      Kind = "error"
)

// Overlay is the currently visible overlay and its payload.
type Overlay struct {
	Kind Kind
	Data any
}

// Arbiter guarantees that at most one overlay is open.
type Arbiter struct {
	mu      sync.Mutex
	current *Overlay
}

// NewArbiter returns an arbiter with nothing open.
func NewArbiter() *Arbiter { return &Arbiter{} }

// Open closes whatever is open and opens a new overlay. It returns the
// overlay that was closed, if any.
func (a *Arbiter) Open(kind Kind, data any) (closed *Overlay) {
	a.mu.Lock()
	defer a.mu.Unlock()
	closed = a.current
	a.current = &Overlay{Kind: kind, Data: data}
	return closed
}

// Close clears the open overlay.
func (a *Arbiter) Close() {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}

// Current returns the open overlay, or nil.
func (a *Arbiter) Current() *Overlay {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	o := *a.current
	return &o
}

// IsOpen reports whether an overlay of kind is open.
func (a *Arbiter) IsOpen(kind Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && a.current.Kind == kind
}

// Placement is where a popover goes relative to its anchor.
type Placement string

const (
	Below Placement = "below"
	Above Placement = "above"
)

// MinSpaceBelow is the free height, in pixels, that always suffices below an anchor.
const MinSpaceBelow = 200

// Anchor is the vertical extent of the element a popover points at, in
// viewport pixels.
type Anchor struct {
	Top    float64
	Bottom float64
}

// PlaceBelowOrAbove puts a popover below its anchor when at least
// MinSpaceBelow pixels are free there or when there is more room below than
// above; otherwise above.
func PlaceBelowOrAbove(anchor Anchor, viewportHeight, safeAreaBottom float64) Placement {
	below := viewportHeight - safeAreaBottom - anchor.Bottom
	above := anchor.Top
	if below >= MinSpaceBelow || below > above {
		return Below
	}
	return Above
}

// Package reader runs one reading session over an imported source: it turns
// classified gestures into lookups and overlays, and keeps the page's
// annotations in sync with the store through optimistic writes.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lexilens/internal/annotation"
	"lexilens/internal/gesture"
	"lexilens/internal/logger"
	"lexilens/internal/lookup"
	"lexilens/internal/modal"
	"lexilens/internal/sentence"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

const (
	DefaultLookupTimeout    = 10 * time.Second
	DefaultReconcileTimeout = 10 * time.Second
)

// Pages loads the OCR words of a source page.
type Pages interface {
	GetPage(ctx context.Context, sourceID string, page int) (*models.SourcePage, error)
}

// Store is the persistence a session writes through.
type Store interface {
	services.AnnotationStore
	services.ReviewStore
}

// Options tune a session.
type Options struct {
	// Viewport is the container size gestures are measured in. The zero
	// value means 100x100, so pixel positions equal page percentages.
	Viewport       gesture.Size
	SafeAreaBottom float64

	LookupTimeout    time.Duration
	ReconcileTimeout time.Duration

	// OnConfirm is called from a background goroutine when an optimistic
	// save is confirmed or rejected by the store.
	OnConfirm func(Confirmation)
}

// Confirmation reports the end of an optimistic save.
type Confirmation struct {
	ClientKey  string
	LocalID    string
	Annotation *models.Annotation // the stored record, nil on failure
	Err        error
}

// Session holds the reading state of one source.
type Session struct {
	pages   Pages
	store   Store
	lookup  services.LookupService
	arbiter *modal.Arbiter
	opts    Options
	now     func() time.Time
	log     zerolog.Logger

	mu          sync.Mutex
	source      models.Source
	page        *models.SourcePage
	zoom        gesture.Zoom
	annotations []models.Annotation
	seq         uint64

	saves sync.WaitGroup
}

// Open starts a session on the first page of source and loads its annotations.
// lookup may be nil, in which case lookups fall back to a status line.
func Open(ctx context.Context, source models.Source, pages Pages, store Store, lookup services.LookupService, opts Options) (*Session, error) {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = gesture.Size{Width: 100, Height: 100}
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if opts.ReconcileTimeout <= 0 {
		opts.ReconcileTimeout = DefaultReconcileTimeout
	}

	s := &Session{
		pages:   pages,
		store:   store,
		lookup:  lookup,
		arbiter: modal.NewArbiter(),
		opts:    opts,
		now:     time.Now,
		log:     logger.WithComponent("reader").With().Str("source_id", source.ID).Logger(),
		source:  source,
		zoom:    gesture.Identity(),
	}
	if err := s.GoToPage(ctx, 1); err != nil {
		return nil, err
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Source returns the source being read.
func (s *Session) Source() models.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Page returns the current 1-based page number.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Page
}

// Words returns the OCR words of the current page.
func (s *Session) Words() []models.OcrWord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Words
}

// Zoom returns the last view transform reported by a gesture.
func (s *Session) Zoom() gesture.Zoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Resize sets the container size gestures are measured in.
func (s *Session) Resize(size gesture.Size) {
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	s.mu.Lock()
	s.opts.Viewport = size
	s.mu.Unlock()
}

// Overlay returns the open overlay, or nil.
func (s *Session) Overlay() *modal.Overlay { return s.arbiter.Current() }

// Annotations returns a copy of the source's annotations, pending ones included.
func (s *Session) Annotations() []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Annotation(nil), s.annotations...)
}

// GoToPage loads page n and resets zoom and overlay. Lookups still in
// flight for the previous page are superseded.
func (s *Session) GoToPage(ctx context.Context, n int) error {
	s.mu.Lock()
	count := s.source.PageCount
	s.mu.Unlock()
	if n < 1 || (count > 0 && n > count) {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, count)
	}

	page, err := s.pages.GetPage(ctx, s.source.ID, n)
	if err != nil {
		return fmt.Errorf("load page %d: %w", n, err)
	}

	s.mu.Lock()
	s.page = page
	s.zoom = gesture.Identity()
	s.seq++
	s.mu.Unlock()
	s.arbiter.Close()

	s.log.Debug().Int("page", n).Int("words", len(page.Words)).Msg("Page loaded")
	return nil
}

// HandleIntent applies one classified gesture. Only page loading can fail;
// lookup failures are reported through Result.Status.
func (s *Session) HandleIntent(ctx context.Context, in gesture.Intent) (*Result, error) {
	switch in.Kind {
	case gesture.Tap, gesture.LongPress:
		return s.handlePoint(ctx, in), nil

	case gesture.DoubleTap:
		s.mu.Lock()
		s.zoom = in.Zoom
		s.seq++
		page := s.page.Page
		s.mu.Unlock()
		s.arbiter.Close()
		return &Result{Kind: ResultDismissed, Page: page}, nil

	case gesture.ZoomChanged:
		s.mu.Lock()
		s.zoom = in.Zoom
		page := s.page.Page
		s.mu.Unlock()
		return &Result{Kind: ResultZoom, Page: page}, nil

	case gesture.PageTurn:
		if err := s.GoToPage(ctx, in.Page); err != nil {
			return nil, err
		}
		return &Result{Kind: ResultPage, Page: in.Page}, nil

	case gesture.Shake:
		return &Result{Kind: ResultShake, Page: s.Page()}, nil
	}
	return &Result{Kind: ResultNone, Page: s.Page()}, nil
}

func (s *Session) handlePoint(ctx context.Context, in gesture.Intent) *Result {
	longPress := in.Kind == gesture.LongPress

	s.mu.Lock()
	s.seq++
	s.zoom = in.Zoom
	x, y := in.Zoom.Unproject(in.Point, s.opts.Viewport)
	page := s.page
	annotations := append([]models.Annotation(nil), s.annotations...)
	res := &Result{Page: page.Page, X: x, Y: y, seq: s.seq}
	s.mu.Unlock()

	hit, skipped := annotation.Resolve(annotations, page.Page, x, y, longPress)
	if skipped > 0 {
		s.log.Warn().Int("skipped", skipped).Msg("Skipping annotations with unreadable geometry")
	}
	if hit != nil {
		res.Kind = ResultExisting
		res.Hit = hit
		res.Selection = hit.Rect
		if !hit.HasAnalysis {
			s.log.Warn().Str("annotation_id", hit.Annotation.ID).Msg("Annotation has no readable analysis")
		}
		return s.present(res, modal.KindAnnotation)
	}

	idx, ok := annotation.WordAt(page.Words, x, y)
	if !ok {
		s.mu.Lock()
		current := res.seq == s.seq
		s.mu.Unlock()
		if current {
			s.arbiter.Close()
		}
		res.Kind = ResultNone
		return res
	}
	word := page.Words[idx]
	res.Word = &word

	if !longPress {
		return s.lookupWord(ctx, res)
	}
	return s.analyzeSentence(ctx, res, page, idx)
}

func (s *Session) lookupWord(ctx context.Context, res *Result) *Result {
	res.Kind = ResultVocabulary
	res.Selection = annotation.BuildFromWord(*res.Word, res.Page)

	if s.lookup == nil {
		res.Lookup = &services.WordLookup{Word: res.Word.Text}
		res.Status = StatusUnavailable
		return s.present(res, modal.KindVocabulary)
	}

	found, err := race(ctx, s.opts.LookupTimeout, func(ctx context.Context) (*services.WordLookup, error) {
		return s.lookup.LookupWord(ctx, res.Word.Text)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("word", res.Word.Text).Msg("Word lookup failed, showing empty result")
		found = &services.WordLookup{Word: res.Word.Text}
		res.Status = statusFor(err, StatusLookupFailed)
	}
	res.Lookup = found
	return s.present(res, modal.KindVocabulary)
}

func (s *Session) analyzeSentence(ctx context.Context, res *Result, page *models.SourcePage, idx int) *Result {
	res.Kind = ResultGrammar

	sent := sentence.FindSentenceAt(page.Words, idx)
	if sent == nil {
		word := page.Words[idx]
		sent = &models.Sentence{Text: word.Text, BBox: word.BBox, Words: []models.OcrWord{word}}
		res.Selection = annotation.BuildFromWord(word, page.Page)
		s.log.Debug().Str("word", word.Text).Msg("No sentence around word, using the word alone")
	} else {
		res.Selection = annotation.BuildFromSentence(*sent, page.Page)
	}
	res.Sentence = sent

	if s.lookup == nil {
		res.Grammar = emptyGrammar()
		res.Status = StatusUnavailable
		return s.present(res, modal.KindGrammar)
	}

	result, err := race(ctx, s.opts.LookupTimeout, func(ctx context.Context) (*services.GrammarResult, error) {
		return s.lookup.AnalyzeGrammarPatterns(ctx, sent.Text)
	})
	if err != nil {
		s.log.Warn().Err(err).Int("words", len(sent.Words)).Msg("Grammar analysis failed, showing empty result")
		result = emptyGrammar()
		res.Status = statusFor(err, StatusAnalysisFailed)
	}
	res.Grammar = result
	return s.present(res, modal.KindGrammar)
}

// present opens the overlay for res unless a newer gesture took over.
func (s *Session) present(res *Result, kind modal.Kind) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.seq != s.seq {
		res.Superseded = true
		s.log.Debug().Str("kind", res.Kind.String()).Msg("Ignoring superseded result")
		return res
	}
	res.Placement = s.placement(res.Selection.Bounds)
	s.arbiter.Open(kind, res)
	return res
}

// placement chooses where the overlay of a page box goes. Caller holds mu.
func (s *Session) placement(b models.BBox) modal.Placement {
	top := s.zoom.Project(b.X, b.Y, s.opts.Viewport)
	bottom := s.zoom.Project(b.X, b.Bottom(), s.opts.Viewport)
	return modal.PlaceBelowOrAbove(modal.Anchor{Top: top.Y, Bottom: bottom.Y}, s.opts.Viewport.Height, s.opts.SafeAreaBottom)
}

// Dismiss closes the open overlay.
func (s *Session) Dismiss() { s.arbiter.Close() }

// Reload replaces the session's annotations with the stored ones, keeping
// local records that are still waiting for confirmation.
func (s *Session) Reload(ctx context.Context) error {
	stored, err := s.store.ListBySource(ctx, s.source.ID)
	if err != nil {
		return fmt.Errorf("load annotations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[string]bool, len(stored))
	for _, a := range stored {
		if a.ClientKey != "" {
			known[a.ClientKey] = true
		}
	}
	for _, a := range s.annotations {
		if a.Pending && !known[a.ClientKey] {
			stored = append(stored, a)
		}
	}
	s.annotations = stored
	return nil
}

func emptyGrammar() *services.GrammarResult {
	return &services.GrammarResult{Patterns: []models.Pattern{}}
}

func statusFor(err error, fallback string) string {
	if errors.Is(err, lookup.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return fallback
}

type outcome[T any] struct {
	v   T
	err error
}

// race runs fn under a timeout and stops waiting when it expires, even if fn
// ignores its context.
func race[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome[T]{v, err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", lookup.ErrTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

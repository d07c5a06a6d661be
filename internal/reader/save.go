package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lexilens/pkg/models"
)

// LocalIDPrefix marks ids of records the store has not confirmed.
const LocalIDPrefix = "local-"

// Save stores the lookup shown in res. A vocabulary result becomes a
// vocabulary annotation and a grammar result a highlight, which also gets a
// review item. The returned record is local and pending; the stored record
// replaces it once the store confirms, see Options.OnConfirm and Wait.
func (s *Session) Save(ctx context.Context, res *Result) (*models.Annotation, error) {
	if res == nil {
		return nil, ErrNothingToSave
	}
	analysis, ok := res.analysis()
	if !ok {
		return nil, ErrNothingToSave
	}
	payload, err := analysis.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	typ := models.AnnotationVocabulary
	if res.Kind == ResultGrammar {
		typ = models.AnnotationHighlight
	}
	return s.saveLocal(ctx, res, models.Annotation{
		Type:           typ,
		SelectedText:   res.Text(),
		AIAnalysisJSON: payload,
	})
}

// SaveMemo stores a memo over the selection of res. The lookup shown in res,
// if any, is kept with the memo.
func (s *Session) SaveMemo(ctx context.Context, res *Result, content string) (*models.Annotation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMemo
	}
	if res == nil || (res.Word == nil && res.Sentence == nil) {
		return nil, ErrNothingToSave
	}

	a := models.Annotation{
		Type:         models.AnnotationMemo,
		SelectedText: res.Text(),
		MemoContent:  content,
	}
	if analysis, ok := res.analysis(); ok {
		if payload, err := analysis.Encode(); err == nil {
			a.AIAnalysisJSON = payload
		}
	}
	return s.saveLocal(ctx, res, a)
}

func (s *Session) saveLocal(ctx context.Context, res *Result, a models.Annotation) (*models.Annotation, error) {
	rect, err := res.Selection.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode selection: %w", err)
	}

	a.ID = LocalIDPrefix + uuid.NewString()
	a.ClientKey = uuid.NewString()
	a.SourceID = s.source.ID
	a.SelectionRect = rect
	a.CreatedAt = s.now().UTC()
	a.Pending = true

	s.mu.Lock()
	s.annotations = append(s.annotations, a)
	s.mu.Unlock()
	s.arbiter.Close()

	s.log.Debug().
		Str("client_key", a.ClientKey).
		Str("type", string(a.Type)).
		Msg("Annotation saved locally")

	s.saves.Add(1)
	go s.confirm(context.WithoutCancel(ctx), a)
	return &a, nil
}

// confirm writes a local record to the store and swaps in the result.
func (s *Session) confirm(parent context.Context, local models.Annotation) {
	defer s.saves.Done()

	ctx, cancel := context.WithTimeout(parent, s.opts.ReconcileTimeout)
	defer cancel()

	stored, err := s.store.Create(ctx, local)
	if err != nil {
		s.drop(local.ClientKey)
		s.log.Warn().Err(err).Str("client_key", local.ClientKey).Msg("Annotation save failed, local record dropped")
		s.notify(Confirmation{ClientKey: local.ClientKey, LocalID: local.ID, Err: err})
		return
	}

	if stored.Type == models.AnnotationHighlight {
		if _, err := s.store.CreateReview(ctx, stored.ID); err != nil {
			s.log.Warn().Err(err).Str("annotation_id", stored.ID).Msg("Could not create review item")
		}
	}

	s.reconcile(local.ClientKey, *stored)
	s.log.Info().
		Str("annotation_id", stored.ID).
		Str("type", string(stored.Type)).
		Msg("Annotation saved")
	s.notify(Confirmation{ClientKey: local.ClientKey, LocalID: local.ID, Annotation: stored})
}

// reconcile replaces the local record with key by stored. A copy of stored
// already loaded by Reload is not duplicated.
func (s *Session) reconcile(key string, stored models.Annotation) {
	stored.Pending = false

	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.annotations[:0]
	placed := false
	for _, a := range s.annotations {
		if a.ClientKey == key || a.ID == stored.ID {
			if !placed {
				out = append(out, stored)
				placed = true
			}
			continue
		}
		out = append(out, a)
	}
	if !placed {
		out = append(out, stored)
	}
	s.annotations = out
}

func (s *Session) drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.annotations[:0]
	for _, a := range s.annotations {
		if a.Pending && a.ClientKey == key {
			continue
		}
		out = append(out, a)
	}
	s.annotations = out
}

func (s *Session) notify(c Confirmation) {
	if s.opts.OnConfirm != nil {
		s.opts.OnConfirm(c)
	}
}

// Wait blocks until every save started so far is confirmed or rejected.
func (s *Session) Wait() { s.saves.Wait() }

// Delete removes a stored annotation and its review item.
func (s *Session) Delete(ctx context.Context, id string) error {
	if strings.HasPrefix(id, LocalIDPrefix) {
		return ErrPending
	}

	s.mu.Lock()
	found := false
	for _, a := range s.annotations {
		if a.ID == id {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownAnnotation, id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete annotation %s: %w", id, err)
	}

	s.mu.Lock()
	out := s.annotations[:0]
	for _, a := range s.annotations {
		if a.ID != id {
			out = append(out, a)
		}
	}
	s.annotations = out
	s.mu.Unlock()

	if o := s.arbiter.Current(); o != nil {
		if res, ok := o.Data.(*Result); ok && res.Hit != nil && res.Hit.Annotation.ID == id {
			s.arbiter.Close()
		}
	}
	s.log.Info().Str("annotation_id", id).Msg("Annotation deleted")
	return nil
}

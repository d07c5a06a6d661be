package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// chatServer answers chat completions with the given contents in order,
// repeating the last one.
type chatServer struct {
	contents []string
	calls    atomic.Int32
	delay    time.Duration
	status   int
	lastBody atomic.Value
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	c.lastBody.Store(body)

	n := int(c.calls.Add(1)) - 1
	if c.status != 0 {
		http.Error(w, `{"error":{"message":"upstream unavailable"}}`, c.status)
		return
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-r.Context().Done():
			return
		}
	}
	content := c.contents[len(c.contents)-1]
	if n < len(c.contents) {
		content = c.contents[n]
	}
	resp := map[string]any{
		"id":      fmt.Sprintf("chatcmpl-%d", n),
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestService(t *testing.T, srv *chatServer, retries int) *OpenAIService {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return NewOpenAIService(Config{
		APIKey:         "sk-test",
		BaseURL:        ts.URL + "/v1",
		Model:          "gpt-4o-mini",
		TargetLanguage: "ko",
		MaxRetries:     retries,
	}, nil)
}

func TestLookupWord(t *testing.T) {
	srv := &chatServer{contents: []string{`{"word":"run","definition":"달리다","phonetic":"/rʌn/"}`}}
	svc := newTestService(t, srv, 2)

	got, err := svc.LookupWord(context.Background(), "Running,")
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if got.Word != "run" || got.Definition != "달리다" || got.Phonetic != "/rʌn/" {
		t.Errorf("got %+v", got)
	}

	body := srv.lastBody.Load().(map[string]any)
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", body["response_format"])
	}
	msgs := body["messages"].([]any)
	user := msgs[1].(map[string]any)["content"].(string)
	if !strings.Contains(user, "Running") || strings.Contains(user, ",") {
		t.Errorf("user prompt = %q, want cleaned word", user)
	}
	system := msgs[0].(map[string]any)["content"].(string)
	if !strings.Contains(system, "Korean") {
		t.Errorf("system prompt does not name the target language: %q", system)
	}

	if _, err := svc.LookupWord(context.Background(), "RUNNING"); err != nil {
		t.Fatalf("second LookupWord: %v", err)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1 (second lookup cached)", n)
	}
}

func TestLookupWordRetriesMalformedJSON(t *testing.T) {
	srv := &chatServer{contents: []string{`definitely not json`, `{"definition":"cat","phonetic":""}`}}
	svc := newTestService(t, srv, 2)

	got, err := svc.LookupWord(context.Background(), "gato")
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if got.Word != "gato" || got.Definition != "cat" {
		t.Errorf("got %+v", got)
	}
	if n := srv.calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

func TestLookupWordGivesUp(t *testing.T) {
	srv := &chatServer{contents: []string{`{`}}
	svc := newTestService(t, srv, 1)

	_, err := svc.LookupWord(context.Background(), "word")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("err = %v, want ErrLookupFailed", err)
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Op != "LookupWord" {
		t.Errorf("err not a LookupError: %v", err)
	}
	if n := srv.calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

func TestLookupWordDoesNotRetryFailedRequests(t *testing.T) {
	srv := &chatServer{contents: []string{`{"definition":"unused"}`}, status: http.StatusBadGateway}
	svc := newTestService(t, srv, 2)

	_, err := svc.LookupWord(context.Background(), "run")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("err = %v, want ErrLookupFailed", err)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestNegativeRetriesStillSendOneRequest(t *testing.T) {
	srv := &chatServer{contents: []string{`{`}}
	svc := newTestService(t, srv, -1)

	_, err := svc.LookupWord(context.Background(), "word")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("err = %v, want ErrLookupFailed", err)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestLookupWordTimeout(t *testing.T) {
	srv := &chatServer{contents: []string{`{"definition":"late"}`}, delay: 2 * time.Second}
	svc := newTestService(t, srv, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := svc.LookupWord(ctx, "slow")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1 (no retry after deadline)", n)
	}
}

func TestLookupWordRejectsPunctuation(t *testing.T) {
	svc := newTestService(t, &chatServer{contents: []string{`{}`}}, 0)
	if _, err := svc.LookupWord(context.Background(), " — "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestAnalyzeGrammarPatterns(t *testing.T) {
	srv := &chatServer{contents: []string{`{
		"translation": "그는 포기했다.",
		"patterns": [
			{"words": ["gave", "up"], "explanation": "포기하다", "color": "#FF8800", "type": "phrasal_verb", "typeKr": "구동사"},
			{"words": ["He"], "explanation": "주어", "color": "reddish", "type": "subject", "typeKr": "주어"},
			{"words": [], "explanation": ""}
		]
	}`}}
	svc := newTestService(t, srv, 0)

	got, err := svc.AnalyzeGrammarPatterns(context.Background(), "He gave\nup.")
	if err != nil {
		t.Fatalf("AnalyzeGrammarPatterns: %v", err)
	}
	if got.Translation != "그는 포기했다." {
		t.Errorf("translation = %q", got.Translation)
	}
	if len(got.Patterns) != 2 {
		t.Fatalf("patterns = %+v", got.Patterns)
	}
	if got.Patterns[0].Color != "#ff8800" {
		t.Errorf("valid color = %q, want canonical #ff8800", got.Patterns[0].Color)
	}
	if got.Patterns[1].Color != PaletteColor(1) {
		t.Errorf("invalid color = %q, want palette %q", got.Patterns[1].Color, PaletteColor(1))
	}
	if got.Patterns[0].TypeKr != "구동사" {
		t.Errorf("typeKr = %q", got.Patterns[0].TypeKr)
	}

	user := srv.lastBody.Load().(map[string]any)["messages"].([]any)[1].(map[string]any)["content"].(string)
	if user != "Sentence: He gave up." {
		t.Errorf("user prompt = %q", user)
	}
}

func TestAnalyzeGrammarPatternsEmpty(t *testing.T) {
	srv := &chatServer{contents: []string{`{"translation": "안녕"}`}}
	svc := newTestService(t, srv, 0)

	got, err := svc.AnalyzeGrammarPatterns(context.Background(), "Hello.")
	if err != nil {
		t.Fatalf("AnalyzeGrammarPatterns: %v", err)
	}
	if got.Patterns == nil || len(got.Patterns) != 0 {
		t.Errorf("patterns = %#v, want empty non-nil slice", got.Patterns)
	}
}

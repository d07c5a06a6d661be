// Package lookup resolves vocabulary definitions and grammar patterns with
// an OpenAI chat model.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"lexilens/internal/logger"
	"lexilens/pkg/models"
	"lexilens/pkg/services"
)

// Config configures the OpenAI lookup service.
type Config struct {
	APIKey         string
	BaseURL        string  // optional, for proxies and tests
	Model          string  // e.g. gpt-4o-mini
	TargetLanguage string  // language of definitions and translations, e.g. "ko"
	MaxRetries     int     // extra attempts after a malformed answer
	Temperature    float32
	CacheSize      int
}

// OpenAIService implements services.LookupService.
type OpenAIService struct {
	client  *openai.Client
	config  Config
	lemmas  *Lemmatizer
	words   *cache[services.WordLookup]
	grammar *cache[services.GrammarResult]
	log     zerolog.Logger
}

var _ services.LookupService = (*OpenAIService)(nil)

// NewOpenAIService creates the service. lemmas may be nil.
func NewOpenAIService(config Config, lemmas *Lemmatizer) *OpenAIService {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.TargetLanguage == "" {
		config.TargetLanguage = "ko"
	}
	if config.CacheSize == 0 {
		config.CacheSize = 512
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &OpenAIService{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		lemmas:  lemmas,
		words:   newCache[services.WordLookup](config.CacheSize),
		grammar: newCache[services.GrammarResult](config.CacheSize),
		log:     logger.WithComponent("lookup"),
	}
}

type wordResponse struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Phonetic   string `json:"phonetic"`
}

// LookupWord returns the definition and pronunciation of a single word.
func (s *OpenAIService) LookupWord(ctx context.Context, word string) (*services.WordLookup, error) {
	const op = "LookupWord"

	cleaned := CleanWord(word)
	if cleaned == "" {
		return nil, WrapLookupError(op, ErrEmptyInput, fmt.Sprintf("word %q", word))
	}
	headword := s.lemmas.Lemma(cleaned)
	key := s.config.TargetLanguage + "\x00" + CacheKey(headword)
	if cached, ok := s.words.get(key); ok {
		return &cached, nil
	}

	prompt := fmt.Sprintf("Word: %s", headword)
	if headword != cleaned {
		prompt += fmt.Sprintf("\nAs written in the text: %s", cleaned)
	}

	var resp wordResponse
	if err := s.completeJSON(ctx, op, s.wordSystemPrompt(), prompt, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Definition) == "" {
		return nil, WrapLookupError(op, ErrLookupFailed, "empty definition")
	}

	result := services.WordLookup{
		Word:       headword,
		Definition: strings.TrimSpace(resp.Definition),
		Phonetic:   strings.TrimSpace(resp.Phonetic),
	}
	if w := strings.TrimSpace(resp.Word); w != "" {
		result.Word = w
	}
	s.words.put(key, result)
	return &result, nil
}

type grammarResponse struct {
	Translation string           `json:"translation"`
	Patterns    []models.Pattern `json:"patterns"`
}

// AnalyzeGrammarPatterns returns the grammar patterns and a translation of a sentence.
func (s *OpenAIService) AnalyzeGrammarPatterns(ctx context.Context, sentence string) (*services.GrammarResult, error) {
	const op = "AnalyzeGrammarPatterns"

	cleaned := CleanSentence(sentence)
	if CleanWord(cleaned) == "" {
		return nil, WrapLookupError(op, ErrEmptyInput, "empty sentence")
	}
	key := s.config.TargetLanguage + "\x00" + cleaned
	if cached, ok := s.grammar.get(key); ok {
		cached.Patterns = append([]models.Pattern(nil), cached.Patterns...)
		return &cached, nil
	}

	var resp grammarResponse
	if err := s.completeJSON(ctx, op, s.grammarSystemPrompt(), "Sentence: "+cleaned, &resp); err != nil {
		return nil, err
	}

	patterns := make([]models.Pattern, 0, len(resp.Patterns))
	for _, p := range resp.Patterns {
		if len(p.Words) == 0 && strings.TrimSpace(p.Explanation) == "" {
			continue
		}
		patterns = append(patterns, p)
	}
	normalizeColors(patterns)

	result := services.GrammarResult{Patterns: patterns, Translation: strings.TrimSpace(resp.Translation)}
	s.grammar.put(key, result)
	s.log.Debug().Int("patterns", len(patterns)).Msg("grammar analyzed")
	return &result, nil
}

// completeJSON sends one chat request in JSON mode and decodes the answer
// into out. Malformed answers are retried; failed requests are not.
func (s *OpenAIService) completeJSON(ctx context.Context, op, system, prompt string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries+1; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			MaxTokens: 800,
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return WrapLookupError(op, ErrTimeout, "")
			}
			return WrapLookupError(op, ctxErr, "")
		}
		if err != nil {
			s.log.Warn().Err(err).Str("op", op).Msg("OpenAI request failed")
			return WrapLookupError(op, ErrLookupFailed, err.Error())
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content
		if err := json.Unmarshal([]byte(content), out); err != nil {
			lastErr = fmt.Errorf("parse model JSON: %w", err)
			s.log.Warn().Err(err).Str("response", content).Int("attempt", attempt).Msg("Malformed model response, retrying")
			continue
		}
		return nil
	}
	return WrapLookupError(op, ErrLookupFailed, lastErr.Error())
}

func (s *OpenAIService) wordSystemPrompt() string {
	return fmt.Sprintf(`You are a dictionary for language learners.
Reply with a JSON object: {"word": string, "definition": string, "phonetic": string}.
"word" is the dictionary headword. Write "definition" in %s, one or two short senses.
"phonetic" is the IPA or reading of the headword, or "" when unknown.`, languageName(s.config.TargetLanguage))
}

func (s *OpenAIService) grammarSystemPrompt() string {
	return fmt.Sprintf(`You explain grammar to language learners.
Reply with a JSON object: {"translation": string, "patterns": [{"words": [string], "explanation": string, "color": "#rrggbb", "type": string, "typeKr": string}]}.
"words" lists the exact words of the sentence that form the pattern. Write "translation", "explanation" and "typeKr" in %s.
"type" is a short English label such as "idiom", "phrasal_verb", "tense" or "clause". Return an empty "patterns" array when nothing is notable.`,
		languageName(s.config.TargetLanguage))
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "ko":
		return "Korean"
	case "ja":
		return "Japanese"
	case "en":
		return "English"
	case "zh":
		return "Chinese"
	case "de":
		return "German"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	}
	return code
}

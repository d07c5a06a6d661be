package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"lexilens/internal/config"
	"lexilens/internal/logger"
	"lexilens/internal/lookup"
	"lexilens/internal/ocr"
	"lexilens/internal/store"
	"lexilens/pkg/services"
)

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func openStore(cfg *config.Config, log zerolog.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath, cfg.UserID)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	userLog := logger.WithUserID(st.UserID())
	userLog.Debug().Str("path", cfg.DatabasePath).Msg("Database opened")
	return st, nil
}

func closeStore(st *store.Store, log zerolog.Logger) {
	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// newLookupService returns nil without error when no API key is set and
// required is false, so reader commands still work offline.
func newLookupService(cfg *config.Config, required bool, log zerolog.Logger) (services.LookupService, error) {
	if err := cfg.RequireOpenAI(); err != nil {
		if required {
			return nil, err
		}
		log.Warn().Msg("OPENAI_API_KEY not set, lookups are disabled")
		return nil, nil
	}

	lemmas, err := lookup.NewLemmatizer()
	if err != nil {
		log.Warn().Err(err).Msg("Japanese lemmatizer unavailable, looking up surface forms")
	}

	return lookup.NewOpenAIService(lookup.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		TargetLanguage: cfg.TargetLanguage,
		MaxRetries:     cfg.LookupMaxRetries,
	}, lemmas), nil
}

// ocrBackend bundles the extractors of the configured OCR backend.
type ocrBackend struct {
	images ocr.WordExtractor
	docs   ocr.DocumentExtractor
	close  func() error
}

func newOCRBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ocrBackend, error) {
	if err := cfg.RequireOCR(); err != nil {
		return nil, err
	}

	switch cfg.OCRBackend {
	case config.BackendDocumentAI:
		svc, err := ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			return nil, handleServiceError(err, log)
		}
		return &ocrBackend{images: svc, docs: svc, close: svc.Close}, nil
	case config.BackendVision:
		svc, err := ocr.NewVisionService(ctx)
		if err != nil {
			return nil, handleServiceError(err, log)
		}
		return &ocrBackend{images: svc, close: svc.Close}, nil
	}
	return nil, fmt.Errorf("unknown OCR_BACKEND %q (use %s or %s)", cfg.OCRBackend, config.BackendVision, config.BackendDocumentAI)
}

// handleServiceError provides user-friendly error messages for collaborator failures
func handleServiceError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Service call failed")

	errStr := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("the operation timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("the operation was canceled")
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS " +
			"to a service account JSON file, or GOOGLE_CREDENTIALS to inline JSON")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("file is too large (maximum %d MB)", ocr.MaxFileSizeBytes>>20)
	case errors.Is(err, ocr.ErrInvalidImage), errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted file: %w", err)
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the file")
	case errors.Is(err, lookup.ErrTimeout):
		return fmt.Errorf("the lookup took too long, try again")
	case errors.Is(err, store.ErrNotFound):
		return err
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed, check your credentials: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Check the roles of your Google Cloud service account")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "quota"):
		return fmt.Errorf("API quota exceeded. Check your project quotas")
	}
	return err
}

// newTable returns a table writer rendering to w, styled for terminals.
func newTable(w io.Writer, header ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t.SetStyle(table.StyleRounded)
	}
	t.AppendHeader(table.Row(header))
	return t
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"lexilens/internal/gesture"
	"lexilens/internal/logger"
)

type Config struct {
	// Storage
	DatabasePath string
	UserID       string

	// OpenAI Configuration
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	LookupTimeout    time.Duration
	LookupMaxRetries int
	TargetLanguage   string

	// Google Cloud Configuration
	OCRBackend            string
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Import
	ImportDPI     float64
	ImportWorkers int

	// Tuning file
	TuningPath string
	Gesture    gesture.Config
	// ReconcileTimeout bounds the store round-trip of an optimistic save.
	ReconcileTimeout time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

const (
	BackendVision     = "vision"
	BackendDocumentAI = "documentai"
)

func Load() (*Config, error) {
	config := &Config{
		DatabasePath:          getEnv("LEXILENS_DB", "lexilens.db"),
		UserID:                getEnv("LEXILENS_USER", "local"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		TargetLanguage:        getEnv("TARGET_LANGUAGE", "ko"),
		OCRBackend:            getEnv("OCR_BACKEND", BackendVision),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Deck"),
		TuningPath:            getEnv("LEXILENS_CONFIG", ""),
		Gesture:               gesture.DefaultConfig(),
		ReconcileTimeout:      10 * time.Second,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.LookupTimeout, err = time.ParseDuration(getEnv("LOOKUP_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("LOOKUP_TIMEOUT: %w", err)
	}
	if config.LookupMaxRetries, err = strconv.Atoi(getEnv("LOOKUP_MAX_RETRIES", "2")); err != nil {
		return nil, fmt.Errorf("LOOKUP_MAX_RETRIES: %w", err)
	}
	if config.ImportDPI, err = strconv.ParseFloat(getEnv("IMPORT_DPI", "150"), 64); err != nil {
		return nil, fmt.Errorf("IMPORT_DPI: %w", err)
	}
	if config.ImportWorkers, err = strconv.Atoi(getEnv("IMPORT_WORKERS", "4")); err != nil {
		return nil, fmt.Errorf("IMPORT_WORKERS: %w", err)
	}

	if config.TuningPath != "" {
		if err := config.loadTuning(config.TuningPath); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// tuning mirrors the optional TOML file. Zero values keep the defaults.
type tuning struct {
	Gesture struct {
		LongPressMS     int     `toml:"long_press_ms"`
		MoveTolerancePX float64 `toml:"move_tolerance_px"`
		DoubleTapMS     int     `toml:"double_tap_ms"`
		DoubleTapPX     float64 `toml:"double_tap_px"`
		SwipeMS         int     `toml:"swipe_ms"`
		SwipePX         float64 `toml:"swipe_px"`
		MinScale        float64 `toml:"min_scale"`
		MaxScale        float64 `toml:"max_scale"`
	} `toml:"gesture"`
	Reader struct {
		ReconcileTimeout string `toml:"reconcile_timeout"`
	} `toml:"reader"`
}

func (c *Config) loadTuning(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var t tuning
	if err := toml.NewDecoder(file).Decode(&t); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return c.applyTuning(t)
}

func (c *Config) applyTuning(t tuning) error {
	g := &c.Gesture
	if t.Gesture.LongPressMS != 0 {
		g.LongPressDelay = time.Duration(t.Gesture.LongPressMS) * time.Millisecond
	}
	if t.Gesture.MoveTolerancePX != 0 {
		g.MoveTolerance = t.Gesture.MoveTolerancePX
	}
	if t.Gesture.DoubleTapMS != 0 {
		g.DoubleTapWindow = time.Duration(t.Gesture.DoubleTapMS) * time.Millisecond
	}
	if t.Gesture.DoubleTapPX != 0 {
		g.DoubleTapDistance = t.Gesture.DoubleTapPX
	}
	if t.Gesture.SwipeMS != 0 {
		g.SwipeMaxDuration = time.Duration(t.Gesture.SwipeMS) * time.Millisecond
	}
	if t.Gesture.SwipePX != 0 {
		g.SwipeMinDistance = t.Gesture.SwipePX
	}
	if t.Gesture.MinScale != 0 {
		g.MinScale = t.Gesture.MinScale
	}
	if t.Gesture.MaxScale != 0 {
		g.MaxScale = t.Gesture.MaxScale
	}
	if t.Reader.ReconcileTimeout != "" {
		d, err := time.ParseDuration(t.Reader.ReconcileTimeout)
		if err != nil {
			return fmt.Errorf("reader.reconcile_timeout: %w", err)
		}
		c.ReconcileTimeout = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("LEXILENS_DB is required")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive")
	}
	if c.LookupMaxRetries < 0 {
		return fmt.Errorf("LOOKUP_MAX_RETRIES must not be negative")
	}
	if c.OCRBackend != BackendVision && c.OCRBackend != BackendDocumentAI {
		return fmt.Errorf("OCR_BACKEND must be %q or %q", BackendVision, BackendDocumentAI)
	}
	if c.ImportDPI <= 0 {
		return fmt.Errorf("IMPORT_DPI must be positive")
	}
	if c.ImportWorkers < 1 {
		return fmt.Errorf("IMPORT_WORKERS must be at least 1")
	}
	g := c.Gesture
	if g.LongPressDelay <= 0 || g.DoubleTapWindow <= 0 || g.SwipeMaxDuration <= 0 {
		return fmt.Errorf("gesture durations must be positive")
	}
	if g.MinScale <= 0 || g.MinScale > g.MaxScale {
		return fmt.Errorf("gesture scale bounds are invalid: min %.2f max %.2f", g.MinScale, g.MaxScale)
	}
	if c.ReconcileTimeout <= 0 {
		return fmt.Errorf("reader.reconcile_timeout must be positive")
	}
	return nil
}

// RequireOpenAI checks the settings needed by lookup commands.
func (c *Config) RequireOpenAI() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// RequireOCR checks the settings needed by the configured OCR backend.
func (c *Config) RequireOCR() error {
	if c.OCRBackend != BackendDocumentAI {
		return nil
	}
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// RequireSheets checks the settings needed by the export command.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

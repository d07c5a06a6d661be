package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEXILENS_CONFIG", "")
	t.Setenv("OCR_BACKEND", "")
	t.Setenv("LOOKUP_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LookupTimeout != 10*time.Second {
		t.Errorf("LookupTimeout = %v, want 10s", cfg.LookupTimeout)
	}
	if cfg.OCRBackend != BackendVision {
		t.Errorf("OCRBackend = %q", cfg.OCRBackend)
	}
	if cfg.Gesture.LongPressDelay != 500*time.Millisecond {
		t.Errorf("LongPressDelay = %v", cfg.Gesture.LongPressDelay)
	}
}

func TestLoadTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexilens.toml")
	body := `
[gesture]
long_press_ms = 650
max_scale = 4.0

[reader]
reconcile_timeout = "3s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEXILENS_CONFIG", path)
	t.Setenv("OCR_BACKEND", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gesture.LongPressDelay != 650*time.Millisecond {
		t.Errorf("LongPressDelay = %v", cfg.Gesture.LongPressDelay)
	}
	if cfg.Gesture.MaxScale != 4 {
		t.Errorf("MaxScale = %v", cfg.Gesture.MaxScale)
	}
	if cfg.Gesture.MinScale != 1 {
		t.Errorf("MinScale = %v, want default 1", cfg.Gesture.MinScale)
	}
	if cfg.ReconcileTimeout != 3*time.Second {
		t.Errorf("ReconcileTimeout = %v", cfg.ReconcileTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"backend", map[string]string{"OCR_BACKEND": "tesseract"}, "OCR_BACKEND"},
		{"timeout", map[string]string{"LOOKUP_TIMEOUT": "-1s"}, "LOOKUP_TIMEOUT"},
		{"workers", map[string]string{"IMPORT_WORKERS": "0"}, "IMPORT_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEXILENS_CONFIG", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestScaleBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[gesture]\nmin_scale = 3.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEXILENS_CONFIG", path)
	t.Setenv("OCR_BACKEND", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected min_scale > max_scale to fail")
	}
}

func TestRequireHelpers(t *testing.T) {
	cfg := &Config{OCRBackend: BackendDocumentAI}
	if cfg.RequireOpenAI() == nil {
		t.Error("RequireOpenAI should fail without a key")
	}
	if cfg.RequireSheets() == nil {
		t.Error("RequireSheets should fail without a sheet URL")
	}
	if cfg.RequireOCR() == nil {
		t.Error("RequireOCR should fail without a processor")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.RequireOpenAI(); err != nil {
		t.Errorf("RequireOpenAI: %v", err)
	}
}

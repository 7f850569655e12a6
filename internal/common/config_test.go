package common

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("OCR_ENDPOINT", "https://ocr.example.com")
	t.Setenv("OCR_POLL_INTERVAL", "250ms")
	t.Setenv("VISION_ENDPOINT", "https://vision.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("ANALYSIS_TIMEOUT", "45s")
	t.Setenv("SQLITE_PATH", "analyses.db")

	cfg := LoadConfig()
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr override, got %q", cfg.Server.Addr)
	}
	if cfg.OCR.Endpoint != "https://ocr.example.com" {
		t.Fatalf("expected ocr endpoint override")
	}
	if cfg.OCR.PollInterval != 250*time.Millisecond {
		t.Fatalf("expected poll interval override, got %v", cfg.OCR.PollInterval)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("expected model override")
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.LLM.Temperature)
	}
	if cfg.Analysis.Timeout != 45*time.Second {
		t.Fatalf("expected analysis timeout override, got %v", cfg.Analysis.Timeout)
	}
	if cfg.Store.SQLitePath != "analyses.db" {
		t.Fatalf("expected sqlite path override")
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("OCR_ENDPOINT", "")
	t.Setenv("VISION_ENDPOINT", "https://vision.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadConfig()
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDurationFallbackOnGarbage(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT", "not-a-duration")
	cfg := LoadConfig()
	if cfg.Analysis.Timeout != 60*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Analysis.Timeout)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPS_PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("POLL_INTERVAL", "")
	cfg := Load()
	if cfg.OpsPort != "8090" {
		t.Fatalf("expected default ops port, got %s", cfg.OpsPort)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("expected default poll interval, got %s", cfg.PollInterval)
	}
	if cfg.RetryFailedExtractions {
		t.Fatalf("expected retry policy disabled by default")
	}
	if cfg.OutboundMaxErrors != 4 {
		t.Fatalf("expected default outbound error budget, got %d", cfg.OutboundMaxErrors)
	}
	if cfg.SimulateResponses {
		t.Fatalf("expected simulator disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPS_PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("POLL_INTERVAL", "45s")
	t.Setenv("RETRY_FAILED_EXTRACTIONS", "true")
	t.Setenv("OUTBOUND_DRAIN_BUDGET", "10")
	t.Setenv("ASSESSMENT_BASE_URL", "https://api.example.com")
	t.Setenv("SIMULATOR_DELAY", "5s")
	cfg := Load()
	if cfg.OpsPort != "9090" {
		t.Fatalf("expected override port, got %s", cfg.OpsPort)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.PollInterval != 45*time.Second {
		t.Fatalf("expected poll interval override, got %s", cfg.PollInterval)
	}
	if !cfg.RetryFailedExtractions {
		t.Fatalf("expected retry policy enabled")
	}
	if cfg.OutboundDrainBudget != 10 {
		t.Fatalf("expected drain budget override, got %d", cfg.OutboundDrainBudget)
	}
	if cfg.AssessmentBaseURL != "https://api.example.com" {
		t.Fatalf("expected assessment url override, got %s", cfg.AssessmentBaseURL)
	}
	if cfg.SimulatorDelay != 5*time.Second {
		t.Fatalf("expected simulator delay override, got %s", cfg.SimulatorDelay)
	}
}

func TestGetEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("OUTBOUND_DRAIN_BUDGET", "not-a-number")
	t.Setenv("RETRY_FAILED_EXTRACTIONS", "sometimes")
	t.Setenv("POLL_INTERVAL", "eleven")
	cfg := Load()
	if cfg.OutboundDrainBudget != 5 {
		t.Fatalf("expected fallback drain budget, got %d", cfg.OutboundDrainBudget)
	}
	if cfg.RetryFailedExtractions {
		t.Fatalf("expected fallback retry policy")
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("expected fallback poll interval, got %s", cfg.PollInterval)
	}
}

package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %s", cfg.LogLevel)
	}
	if cfg.SessionSecret == "" {
		t.Fatalf("expected development session secret")
	}
	if cfg.GasLimit != 500000 {
		t.Fatalf("expected default gas limit, got %d", cfg.GasLimit)
	}
	if cfg.ShutdownPeriod != 10*time.Second {
		t.Fatalf("expected 10s shutdown period, got %s", cfg.ShutdownPeriod)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/payroll")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected missing configuration error")
	}
	if !strings.Contains(err.Error(), "REDIS_URL") || strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("PORT", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected 30m session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

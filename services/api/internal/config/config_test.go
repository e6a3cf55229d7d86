package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access TTL: %v", cfg.AccessTokenTTL)
	}
	if !cfg.RateLimitEnabled {
		t.Fatal("rate limiting must default to enabled")
	}
	if cfg.RateLimitRPS != 20 || cfg.RateLimitBurst != 40 {
		t.Fatalf("unexpected limiter defaults: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_RateLimitDisabled(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimitEnabled {
		t.Fatal("RATE_LIMIT_ENABLED=false must disable the limiter")
	}
}

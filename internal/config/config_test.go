package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_API_TOKEN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AdminToken != "" {
		t.Fatalf("expected admin routes disabled when ADMIN_API_TOKEN is unset, got %q", cfg.AdminToken)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGODB_DATABASE", "PAYMENT_METHOD_CACHE_TTL_SECONDS", "ACCESS_TOKEN_TTL_MINUTES", "COOKIE_SECURE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Address() != ":7878" {
		t.Fatalf("expected default address :7878, got %q", cfg.Address())
	}
	if cfg.MongoDatabase != "penjualan" {
		t.Fatalf("expected default mongo database, got %q", cfg.MongoDatabase)
	}
	if cfg.PaymentMethodCacheTTL() != time.Minute {
		t.Fatalf("expected 60s cache ttl, got %s", cfg.PaymentMethodCacheTTL())
	}
	if cfg.AccessTokenTTL() != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.AccessTokenTTL())
	}
	if cfg.CookieSecure {
		t.Fatalf("expected insecure cookies by default for local development")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %q", cfg.LogLevel)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("PAYMENT_METHOD_CACHE_TTL_SECONDS", "-5")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "abc")
	t.Setenv("COOKIE_SECURE", "true")

	cfg := Load()
	if cfg.PaymentMethodCacheTTLSeconds != 60 {
		t.Fatalf("expected fallback cache ttl, got %d", cfg.PaymentMethodCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 1440 {
		t.Fatalf("expected fallback token ttl, got %d", cfg.AccessTokenTTLMinutes)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected COOKIE_SECURE=true to be honoured")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYPATH_API_URL", "")
	t.Setenv("PAYPATH_KEYSTORE", "/tmp/ks")
	t.Setenv("PAYPATH_VAULT", "/tmp/vault.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.AuthStatement != "Sign in to PayPath" {
		t.Fatalf("statement = %q", cfg.AuthStatement)
	}
	if cfg.FiatRate != 25_000 || cfg.GasCost != 1_000_000 {
		t.Fatalf("rate/gas = %d/%d", cfg.FiatRate, cfg.GasCost)
	}
	if cfg.PollDeadline != 60*time.Second {
		t.Fatalf("poll deadline = %v", cfg.PollDeadline)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYPATH_API_URL", "https://api.paypath.app")
	t.Setenv("PAYPATH_KEYSTORE", "/tmp/ks")
	t.Setenv("PAYPATH_VAULT", "/tmp/vault.json")
	t.Setenv("PAYPATH_FIAT_RATE", "26500")
	t.Setenv("ORDER_POLL_SECONDS", "90")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://api.paypath.app" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.FiatRate != 26_500 {
		t.Fatalf("fiat rate = %d", cfg.FiatRate)
	}
	if cfg.PollDeadline != 90*time.Second {
		t.Fatalf("poll deadline = %v", cfg.PollDeadline)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PAYPATH_KEYSTORE", "/tmp/ks")
	t.Setenv("PAYPATH_VAULT", "/tmp/vault.json")

	t.Setenv("PAYPATH_API_URL", "ftp://example.com")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-http url")
	}

	t.Setenv("PAYPATH_API_URL", "http://localhost:8080")
	t.Setenv("PAYPATH_FIAT_RATE", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative fiat rate")
	}
}

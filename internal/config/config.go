package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL        = "http://localhost:8080"
	defaultAuthDomain    = "paypath.app"
	defaultAuthStatement = "Sign in to PayPath"
	defaultLogLevel      = "info"
	defaultFiatRate      = int64(25_000)
	defaultGasCost       = int64(1_000_000)
	defaultPollDeadline  = 60 * time.Second
	pollSecondsEnvVar    = "ORDER_POLL_SECONDS"
	pollDurationEnvVar   = "ORDER_POLL_DEADLINE"
)

// Config captures client runtime configuration loaded from environment
// variables, with an optional .env file for local development.
type Config struct {
	APIURL        string
	AuthDomain    string
	AuthStatement string
	LogLevel      string
	KeystorePath  string
	VaultPath     string
	RedisURL      string
	FiatRate      int64
	GasCost       int64
	PollDeadline  time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIURL:        getEnv("PAYPATH_API_URL", defaultAPIURL),
		AuthDomain:    getEnv("PAYPATH_AUTH_DOMAIN", defaultAuthDomain),
		AuthStatement: getEnv("PAYPATH_AUTH_STATEMENT", defaultAuthStatement),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		KeystorePath:  os.Getenv("PAYPATH_KEYSTORE"),
		VaultPath:     os.Getenv("PAYPATH_VAULT"),
		RedisURL:      os.Getenv("REDIS_URL"),
		FiatRate:      defaultFiatRate,
		GasCost:       defaultGasCost,
		PollDeadline:  defaultPollDeadline,
	}

	if cfg.KeystorePath == "" || cfg.VaultPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		if cfg.KeystorePath == "" {
			cfg.KeystorePath = filepath.Join(home, ".paypath", "keystore")
		}
		if cfg.VaultPath == "" {
			cfg.VaultPath = filepath.Join(home, ".paypath", "session.json")
		}
	}

	if v := os.Getenv("PAYPATH_FIAT_RATE"); v != "" {
		rate, err := strconv.ParseInt(v, 10, 64)
		if err != nil || rate <= 0 {
			return Config{}, fmt.Errorf("invalid PAYPATH_FIAT_RATE: %q", v)
		}
		cfg.FiatRate = rate
	}

	if v := os.Getenv("PAYPATH_GAS_COST"); v != "" {
		cost, err := strconv.ParseInt(v, 10, 64)
		if err != nil || cost < 0 {
			return Config{}, fmt.Errorf("invalid PAYPATH_GAS_COST: %q", v)
		}
		cfg.GasCost = cost
	}

	if v := os.Getenv(pollSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", pollSecondsEnvVar, err)
		}
		cfg.PollDeadline = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(pollDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", pollDurationEnvVar, err)
		}
		cfg.PollDeadline = d
	}

	if !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return Config{}, fmt.Errorf("PAYPATH_API_URL must be an http(s) URL, got %q", cfg.APIURL)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

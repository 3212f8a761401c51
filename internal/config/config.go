package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	CompanyCode          string  `toml:"company_code"`
	Verbose              bool    `toml:"verbose"`
	InsertLinksEnabled   bool    `toml:"insert_links_enabled"`
	AttributionWindowSec float64 `toml:"attribution_window_seconds"`
	APIBaseURL           string  `toml:"api_base_url"`
	HTTPTimeoutMS        int     `toml:"http_timeout_ms"`
	AccountTokenOverride string  `toml:"account_token_override"`

	StoreDriver string `toml:"store_driver"`
	StorePath   string `toml:"store_path"`
	PostgresDSN string `toml:"postgres_dsn"`

	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
	Env      string `toml:"env"`
}

// Parse builds the configuration from AFFILIATE_CONFIG_FILE (TOML, optional)
// overlaid with environment variables.
func Parse() (Config, error) {
	cfg := Config{
		APIBaseURL:    "https://api.insertaffiliate.com",
		HTTPTimeoutMS: 10_000,
		StoreDriver:   "leveldb",
		StorePath:     ".affiliate-state",
		LogLevel:      "info",
	}
	if path := getString("AFFILIATE_CONFIG_FILE", ""); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.CompanyCode = getString("AFFILIATE_COMPANY_CODE", cfg.CompanyCode)
	cfg.Verbose = getBool("AFFILIATE_VERBOSE", cfg.Verbose)
	cfg.InsertLinksEnabled = getBool("AFFILIATE_INSERT_LINKS", cfg.InsertLinksEnabled)
	cfg.AttributionWindowSec = getFloat("AFFILIATE_ATTRIBUTION_WINDOW_SECONDS", cfg.AttributionWindowSec)
	cfg.APIBaseURL = getString("AFFILIATE_API_BASE_URL", cfg.APIBaseURL)
	cfg.HTTPTimeoutMS = getInt("AFFILIATE_HTTP_TIMEOUT_MS", cfg.HTTPTimeoutMS)
	cfg.AccountTokenOverride = getString("AFFILIATE_ACCOUNT_TOKEN_OVERRIDE", cfg.AccountTokenOverride)
	cfg.StoreDriver = strings.ToLower(getString("AFFILIATE_STORE_DRIVER", cfg.StoreDriver))
	cfg.StorePath = getString("AFFILIATE_STORE_PATH", cfg.StorePath)
	cfg.PostgresDSN = getString("AFFILIATE_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.LogFile = getString("AFFILIATE_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getString("AFFILIATE_LOG_LEVEL", cfg.LogLevel)
	cfg.Env = getString("AFFILIATE_ENV", cfg.Env)

	if cfg.AttributionWindowSec < 0 {
		return Config{}, fmt.Errorf("attribution window must not be negative")
	}
	switch cfg.StoreDriver {
	case "leveldb", "sqlite", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// AttributionWindow converts the configured seconds; zero means no window.
func (c Config) AttributionWindow() time.Duration {
	return time.Duration(c.AttributionWindowSec * float64(time.Second))
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

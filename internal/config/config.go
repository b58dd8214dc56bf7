// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backend names accepted by AQMON_STORE.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

const (
	defaultDataDir      = "data"
	defaultFetchTimeout = 10 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// DataDir is where the JSON cache files (or the sqlite database) live.
	// Relative paths are resolved against the working directory at startup.
	DataDir      string
	StoreBackend string
	SQLitePath   string

	GiosBaseURL    string
	GeocodeBaseURL string
	FetchTimeout   time.Duration
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{}

	cfg.AppEnv = strings.TrimSpace(os.Getenv("APP_ENV"))
	if cfg.AppEnv == "" {
		cfg.AppEnv = "dev"
	}
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return cfg, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level

	dataDir := strings.TrimSpace(os.Getenv("AQMON_DATA_DIR"))
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	cfg.DataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return cfg, fmt.Errorf("AQMON_DATA_DIR %q: %w", dataDir, err)
	}

	cfg.StoreBackend = strings.TrimSpace(os.Getenv("AQMON_STORE"))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendJSON
	}
	switch cfg.StoreBackend {
	case BackendJSON, BackendSQLite:
	default:
		return cfg, fmt.Errorf("invalid AQMON_STORE %q (allowed: json, sqlite)", cfg.StoreBackend)
	}

	cfg.SQLitePath = strings.TrimSpace(os.Getenv("AQMON_SQLITE_PATH"))
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "aqmon.db")
	}

	cfg.GiosBaseURL = strings.TrimSpace(os.Getenv("AQMON_GIOS_URL"))
	cfg.GeocodeBaseURL = strings.TrimSpace(os.Getenv("AQMON_GEOCODE_URL"))

	cfg.FetchTimeout = defaultFetchTimeout
	if v := strings.TrimSpace(os.Getenv("AQMON_FETCH_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid AQMON_FETCH_TIMEOUT %q: %w", v, err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("invalid AQMON_FETCH_TIMEOUT %q: must be positive", v)
		}
		cfg.FetchTimeout = d
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

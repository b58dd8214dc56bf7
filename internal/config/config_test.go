package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL",
		"AQMON_DATA_DIR", "AQMON_STORE", "AQMON_SQLITE_PATH",
		"AQMON_GIOS_URL", "AQMON_GEOCODE_URL", "AQMON_FETCH_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendJSON, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "aqmon.db"), cfg.SQLitePath)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AQMON_STORE", "sqlite")
	t.Setenv("AQMON_FETCH_TIMEOUT", "5s")
	t.Setenv("AQMON_GIOS_URL", "http://localhost:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "http://localhost:8080", cfg.GiosBaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "APP_ENV", "staging"},
		{"bad level", "LOG_LEVEL", "verbose"},
		{"bad backend", "AQMON_STORE", "postgres"},
		{"bad timeout", "AQMON_FETCH_TIMEOUT", "soon"},
		{"negative timeout", "AQMON_FETCH_TIMEOUT", "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/maxviazov/revision-history-service/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *logpkg.LoggerConfig
		expectError bool
		level       zerolog.Level
	}{
		{
			name: "production json",
			config: &logpkg.LoggerConfig{
				ServiceName: "test-service",
				Env:         "prod",
				Level:       "info",
				TimeField:   "timestamp",
				Fields:      map[string]any{"key": "value"},
			},
			level: zerolog.InfoLevel,
		},
		{
			name:        "unknown env",
			config:      &logpkg.LoggerConfig{Env: "wrong-env", Level: "debug"},
			expectError: true,
		},
		{
			name:        "unknown level",
			config:      &logpkg.LoggerConfig{Env: "prod", Level: "invalid-level"},
			expectError: true,
		},
		{
			name:        "unknown output target",
			config:      &logpkg.LoggerConfig{OutputTarget: "file"},
			expectError: true,
		},
		{
			name:   "staging warn to stderr",
			config: &logpkg.LoggerConfig{Env: "staging", Level: "warn", OutputTarget: "stderr", Stacktrace: true},
			level:  zerolog.WarnLevel,
		},
		{
			name:   "dev console defaults to debug",
			config: &logpkg.LoggerConfig{Env: "dev"},
			level:  zerolog.DebugLevel,
		},
		{
			name:   "unix timestamps",
			config: &logpkg.LoggerConfig{Env: "test", Level: "error", TimeFormat: "unix_ms", WithCaller: true},
			level:  zerolog.ErrorLevel,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := logpkg.New(test.config)
			if test.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.level, zerolog.GlobalLevel())
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := &logpkg.LoggerConfig{}
	_, err := logpkg.New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.OutputTarget)
	assert.Equal(t, "ts", cfg.TimeField)
	assert.Equal(t, "revision-history-service", cfg.ServiceName)
}

func TestNew_DebugFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	l, err := logpkg.New(&logpkg.LoggerConfig{Env: "dev", Level: "debug", DebugFile: path})
	require.NoError(t, err)

	l.Debug().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	l := logpkg.Component(zerolog.New(&buf), "enumerate")
	l.Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"enumerate"`)
}

package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sneakerflash/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestFromAppConfig(t *testing.T) {
	t.Run("copies log and app settings", func(t *testing.T) {
		cfg := FromAppConfig(&config.Config{
			App: config.AppConfig{Name: "inventory-reconciler", Env: "production"},
			Log: config.LogConfig{Level: "debug", Format: "json", Output: "stderr"},
		})

		assert.Equal(t, "debug", cfg.Level)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		assert.Equal(t, "inventory-reconciler", cfg.Service)
		assert.Equal(t, "production", cfg.Environment)
	})

	t.Run("blank values keep defaults", func(t *testing.T) {
		cfg := FromAppConfig(&config.Config{})
		assert.Equal(t, DefaultConfig().Format, cfg.Format)
		assert.Equal(t, DefaultConfig().Level, cfg.Level)
	})

	t.Run("nil config", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), FromAppConfig(nil))
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"default config", DefaultConfig()},
		{"nil config", nil},
		{"json to stderr", &Config{Level: "warn", Format: "json", Output: "stderr"}},
		{"debug console", &Config{Level: "debug", Format: "console", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.log")

	logger, err := New(&Config{
		Level:       "info",
		Format:      "json",
		Output:      path,
		Service:     "inventory-reconciler",
		Environment: "test",
	})
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Info("batch finished", zap.String("session_id", "sess-1"), zap.Int("updated", 3))
	_ = logger.Sync()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 1)
	assert.Equal(t, "batch finished", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "inventory-reconciler", lines[0]["service"])
	assert.Equal(t, "test", lines[0]["env"])
	assert.Equal(t, "sess-1", lines[0]["session_id"])
	assert.Equal(t, float64(3), lines[0]["updated"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestCreateWriter(t *testing.T) {
	for _, output := range []string{"", "stdout", "STDOUT", "stderr"} {
		t.Run(output, func(t *testing.T) {
			assert.NotNil(t, createWriter(output))
		})
	}

	t.Run("unwritable path falls back to stdout", func(t *testing.T) {
		writer := createWriter(filepath.Join(t.TempDir(), "missing", "dir", "out.log"))
		assert.NotNil(t, writer)
	})
}

func TestCreateEncoder(t *testing.T) {
	assert.NotNil(t, createEncoder(&Config{Format: "console", TimeFormat: defaultTimeFormat}))
	assert.NotNil(t, createEncoder(&Config{Format: "json", TimeFormat: defaultTimeFormat}))
}

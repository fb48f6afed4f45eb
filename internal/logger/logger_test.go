package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdcheck/internal/config"
)

func testLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}
}

func TestNewLoggerManager(t *testing.T) {
	t.Run("stderr output", func(t *testing.T) {
		lm, err := NewLoggerManager(testLoggingConfig())
		require.NoError(t, err)
		defer lm.Close()
		assert.NotNil(t, lm.GetLogger())
	})

	t.Run("file output creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "nested", "app.log")
		cfg := testLoggingConfig()
		cfg.Output = "file"
		cfg.FilePath = path

		lm, err := NewLoggerManager(cfg)
		require.NoError(t, err)
		defer lm.Close()

		lm.GetLogger().Info("test entry")
		_, err = os.Stat(filepath.Dir(path))
		assert.NoError(t, err)
	})

	t.Run("file output without a path fails", func(t *testing.T) {
		cfg := testLoggingConfig()
		cfg.Output = "file"

		_, err := NewLoggerManager(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file path is required")
	})

	t.Run("unknown output falls back to stderr", func(t *testing.T) {
		cfg := testLoggingConfig()
		cfg.Output = "syslog"

		lm, err := NewLoggerManager(cfg)
		require.NoError(t, err)
		defer lm.Close()
	})
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestGetComponentLogger(t *testing.T) {
	lm, err := NewLoggerManager(testLoggingConfig())
	require.NoError(t, err)
	defer lm.Close()

	first := lm.GetComponentLogger("validator")
	second := lm.GetComponentLogger("validator")
	assert.Same(t, first, second)

	other := lm.GetComponentLogger("session")
	assert.NotSame(t, first, other)
}

func TestWithContext(t *testing.T) {
	lm, err := NewLoggerManager(testLoggingConfig())
	require.NoError(t, err)
	defer lm.Close()

	t.Run("empty context returns the base logger", func(t *testing.T) {
		assert.Same(t, lm.GetLogger(), lm.WithContext(context.Background()))
	})

	t.Run("context values produce a derived logger", func(t *testing.T) {
		ctx := WithRunID(context.Background(), "run-123")
		ctx = WithOperation(ctx, "validate")
		assert.NotSame(t, lm.GetLogger(), lm.WithContext(ctx))
	})
}

func TestExtractContextAttributes(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithRequestID(ctx, "req-2")
	ctx = WithOperation(ctx, "fetch")
	ctx = WithSchema(ctx, "ohlcv-1h")

	attrs := extractContextAttributes(ctx)
	assert.Len(t, attrs, 4)

	assert.Empty(t, extractContextAttributes(context.Background()))
}

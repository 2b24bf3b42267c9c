package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json format", func(t *testing.T) {
		t.Parallel()
		buf := &SafeBuffer{}
		logger := newLogger("info", "json", buf)

		logger.Info("hello", "k", "v")

		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"k":"v"`)
	})

	t.Run("text format filters by level", func(t *testing.T) {
		t.Parallel()
		buf := &SafeBuffer{}
		logger := newLogger("warn", "text", buf)

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		t.Parallel()
		logger := newLogger("loud", "text", &SafeBuffer{})
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	})
}

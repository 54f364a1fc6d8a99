package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

	require.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
	assert.NotNil(t, handler.Handler, "Expected handler to wrap a slog handler")
	assert.NotNil(t, handler.l, "Expected handler to have a logger")
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	levels := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, "DEBUG:"},
		{slog.LevelInfo, "INFO:"},
		{slog.LevelWarn, "WARN:"},
		{slog.LevelError, "ERROR:"},
	}
	for _, l := range levels {
		t.Run("Handle "+l.expected+" record", func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

			record := slog.NewRecord(time.Now(), l.level, "article indexed", 0)
			record.AddAttrs(slog.String("url", "https://example.com/deal"), slog.Int("passages", 12))

			err := handler.Handle(ctx, record)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, l.expected)
			assert.Contains(t, output, "article indexed")
			assert.Contains(t, output, `"url":"https://example.com/deal"`)
			assert.Contains(t, output, `"passages":12`)
			assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, output, "Expected formatted timestamp")
		})
	}

	t.Run("Handle record without attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		err := handler.Handle(ctx, slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0))
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "{}", "Expected empty JSON object for attributes")
	})

	t.Run("Attributes from WithAttrs are printed", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{})).With(slog.String("component", "router"))

		logger.Info("routed question", slog.String("route", "graph"))

		output := buf.String()
		assert.Contains(t, output, `"component":"router"`)
		assert.Contains(t, output, `"route":"graph"`)
	})

	t.Run("Records below the level are dropped", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelWarn)

		logger.Info("hidden")
		logger.Warn("visible")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
}

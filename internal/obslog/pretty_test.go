package obslog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("info level with attrs", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "info message", 0)
		record.AddAttrs(slog.Int("count", 42))

		err := h.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "INFO:")
		assert.Contains(t, output, "info message")
		assert.Contains(t, output, "count")
		assert.Contains(t, output, "42")
	})

	t.Run("no attributes still emits an empty object", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0)

		err := h.Handle(ctx, record)

		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "{}")
	})

	t.Run("timestamp is bracketed HH:MM:SS.mmm", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time test", 0)
		err := h.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.True(t, strings.Contains(output, "[") && strings.Contains(output, "]"))
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, output)
	})

	t.Run("error level", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})

		record := slog.NewRecord(time.Now(), slog.LevelError, "error message", 0)
		record.AddAttrs(slog.String("error", "something went wrong"))

		err := h.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "ERROR:")
		assert.Contains(t, output, "something went wrong")
	})
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{}})
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "ingest")})

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "carried attr", 0)
	err := h2.Handle(context.Background(), record)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "component")
}

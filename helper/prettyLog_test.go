package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferedHandler(buf *bytes.Buffer, level slog.Level) *PrettyHandler {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: level,
		},
	}
	return NewPrettyHandler(buf, opts)
}

func TestNewPrettyHandler(t *testing.T) {
	t.Run("Create PrettyHandler with default options", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		assert.NotNil(t, handler, "Expected a non-nil handler")
		assert.NotNil(t, handler.Handler, "Expected the embedded Handler to be set")
		assert.NotNil(t, handler.l, "Expected the internal logger to be set")
	})

	t.Run("Create PrettyHandler with debug level", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelDebug)

		assert.NotNil(t, handler, "Expected a non-nil handler")
	})

	t.Run("Create PrettyHandler with AddSource option", func(t *testing.T) {
		var buf bytes.Buffer
		opts := PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				AddSource: true,
			},
		}

		handler := NewPrettyHandler(&buf, opts)

		assert.NotNil(t, handler, "Expected a non-nil handler")
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Handle DEBUG level log", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelDebug)

		record := slog.NewRecord(time.Now(), slog.LevelDebug, "loaded schema declaration", 0)
		record.AddAttrs(slog.String("domain", "financial"))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "DEBUG:", "Expected the DEBUG level in the output")
		assert.Contains(t, output, "loaded schema declaration", "Expected the message in the output")
		assert.Contains(t, output, "domain", "Expected the attribute key in the output")
		assert.Contains(t, output, "financial", "Expected the attribute value in the output")
	})

	t.Run("Handle INFO level log", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "batch upsert finished", 0)
		record.AddAttrs(slog.Int("nodes", 42))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "INFO:", "Expected the INFO level in the output")
		assert.Contains(t, output, "batch upsert finished", "Expected the message in the output")
		assert.Contains(t, output, "nodes", "Expected the attribute key in the output")
		assert.Contains(t, output, "42", "Expected the attribute value in the output")
	})

	t.Run("Handle WARN level log", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelWarn, "detector below threshold", 0)
		record.AddAttrs(slog.Bool("skipped", true))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "WARN:", "Expected the WARN level in the output")
		assert.Contains(t, output, "detector below threshold", "Expected the message in the output")
		assert.Contains(t, output, "skipped", "Expected the attribute key in the output")
		assert.Contains(t, output, "true", "Expected the attribute value in the output")
	})

	t.Run("Handle ERROR level log", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelError, "inference rule failed", 0)
		record.AddAttrs(slog.String("error", "query timed out"))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "ERROR:", "Expected the ERROR level in the output")
		assert.Contains(t, output, "inference rule failed", "Expected the message in the output")
		assert.Contains(t, output, "error", "Expected the attribute key in the output")
		assert.Contains(t, output, "query timed out", "Expected the attribute value in the output")
	})

	t.Run("Handle log with no attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "pipeline started", 0)

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "INFO:", "Expected the INFO level in the output")
		assert.Contains(t, output, "pipeline started", "Expected the message in the output")
		assert.Contains(t, output, "{}", "Expected an empty JSON object for a record without attributes")
	})

	t.Run("Handle log with multiple attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "item processed", 0)
		record.AddAttrs(
			slog.String("source", "directory"),
			slog.Int("entities", 123),
			slog.Bool("enriched", true),
		)

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "item processed", "Expected the message in the output")
		assert.Contains(t, output, "source", "Expected the first attribute key in the output")
		assert.Contains(t, output, "directory", "Expected the first attribute value in the output")
		assert.Contains(t, output, "entities", "Expected the second attribute key in the output")
		assert.Contains(t, output, "123", "Expected the second attribute value in the output")
		assert.Contains(t, output, "enriched", "Expected the third attribute key in the output")
		assert.Contains(t, output, "true", "Expected the third attribute value in the output")
	})

	t.Run("Handle log with nested attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "run recorded", 0)
		record.AddAttrs(slog.Any("summary", map[string]interface{}{
			"items_processed": 7,
		}))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()
		assert.Contains(t, output, "run recorded", "Expected the message in the output")
		assert.Contains(t, output, "summary", "Expected the attribute key in the output")
	})

	t.Run("Handle log formats timestamp correctly", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newBufferedHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time test", 0)

		err := handler.Handle(ctx, record)

		assert.NoError(t, err, "Expected Handle to succeed")
		output := buf.String()

		// Timestamp is rendered as [15:04:05.000]
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, output,
			"Expected a bracketed timestamp with millisecond precision")
	})
}

func TestPrettyHandlerOptions(t *testing.T) {
	t.Run("PrettyHandlerOptions with all fields set", func(t *testing.T) {
		opts := PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				AddSource: true,
				Level:     slog.LevelDebug,
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					return a
				},
			},
		}

		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, opts)

		assert.NotNil(t, handler, "Expected handler creation to succeed with all options set")
	})

	t.Run("PrettyHandlerOptions with zero value", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		assert.NotNil(t, handler, "Expected handler creation to succeed with zero options")
	})
}

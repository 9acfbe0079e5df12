package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(b, &entry), "failed to parse log output: %s", b)
	return entry
}

func TestZerologAdapter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*ZerologAdapter)
		level string
	}{
		{"debug", func(a *ZerologAdapter) { a.Debug("msg", "key1", "value1", "key2", 42) }, "debug"},
		{"info", func(a *ZerologAdapter) { a.Info("msg", "key1", "value1", "key2", 42) }, "info"},
		{"error", func(a *ZerologAdapter) { a.Error("msg", "key1", "value1", "key2", 42) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			a := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

			tt.log(a)

			entry := decodeLine(t, buf.Bytes())
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
			assert.Equal(t, "value1", entry["key1"])
			assert.Equal(t, float64(42), entry["key2"])
		})
	}
}

func TestZerologAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	a := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.InfoLevel))

	a.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewSlogAdapter(logger)

	a.Info("pool started", "workers", 4)

	entry := decodeLine(t, buf.Bytes())
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "pool started", entry["msg"])
	assert.Equal(t, float64(4), entry["workers"])
}

func TestNewZerolog_WritesConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewZerolog(&console, &file, "debug")

	logger.Debug().Int("capacity", 5).Msg("channel created")

	assert.Contains(t, console.String(), "channel created")
	assert.Contains(t, file.String(), "channel created")
	assert.Contains(t, file.String(), "capacity=5")
	assert.NotContains(t, file.String(), "\x1b[", "file output should not be coloured")
}

func TestNewZerolog_Level(t *testing.T) {
	var console bytes.Buffer
	logger := NewZerolog(&console, nil, "warn")

	logger.Info().Msg("filtered")
	assert.Empty(t, console.String())
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, zerologLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, zerologLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, zerologLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, zerologLevel("bogus"))
}

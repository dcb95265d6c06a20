package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello", "site", "Tokyo")
	assert.Contains(t, buf.String(), `"site":"Tokyo"`)

	buf.Reset()
	newLogger(&buf, "info", "text").Info("hello", "site", "Tokyo")
	assert.Contains(t, buf.String(), "site=Tokyo")

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("suppressed")
	assert.Empty(t, buf.String())
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.DatasetCells.WithLabelValues("fire", "built").Inc()
	assert.NotSame(t, a.DatasetCells, b.DatasetCells)
}

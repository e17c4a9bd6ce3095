package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: " tint ", want: FormatTint},
		{in: "logfmt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LevelFor(false, false))
	assert.Equal(t, slog.LevelInfo, LevelFor(true, false))
	assert.Equal(t, slog.LevelDebug, LevelFor(false, true))
	assert.Equal(t, slog.LevelDebug, LevelFor(true, true))
}

func TestNewWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Format: FormatJSON, Level: slog.LevelInfo, Writer: &buf})

	l.Debug("hidden")
	l.With("item", "/data/a.tif").Warn("world file unreadable", Error(errors.New("short file")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "world file unreadable", record["msg"])
	assert.Equal(t, "/data/a.tif", record["item"])
	assert.Equal(t, "short file", record["error"])
}

func TestNewWithOptions_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Level: slog.LevelDebug, Writer: &buf})
	l.Debug("spatial tables found", "count", 3)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "count=3")
}

func TestNewWithOptions_Tint(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOptions(Options{Format: FormatTint, Level: slog.LevelInfo, Writer: &buf, NoColor: true})
	l.Info("item checked", "rules", 5)
	l.GetSlogLogger().Error("rule failed", Stack("goroutine 1"))

	out := buf.String()
	assert.Contains(t, out, "INF item checked rules=5")
	assert.Contains(t, out, "ERR rule failed")
	assert.Contains(t, out, "goroutine 1")
}

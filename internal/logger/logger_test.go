package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/internal/config"
)

func TestNew_Production(t *testing.T) {
	var buf bytes.Buffer
	l := WithRequestID(New(&buf, "production", slog.LevelInfo, false), "req-1")
	WithError(l, errors.New("boom")).Info("Turn failed", "turn", 3)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Turn failed", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "boom", rec["error"])
	assert.InDelta(t, 3, rec["turn"], 0)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "development", slog.LevelDebug, false).Debug("Demo reply", "turn", 2)
	out := buf.String()
	assert.Contains(t, out, "Demo reply")
	assert.Contains(t, out, "turn=2")
	assert.NotContains(t, out, "\x1b[", "no color codes when color is off")
}

func TestSetup_LogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "console.log")
	l := Setup(&config.Config{Environment: "production", LogLevel: "info", LogFile: path})
	l.Info("hello file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Same(t, l, slog.Default())
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("quiet")
	logger.Warn("loud", "iteration", 3)

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "msg=loud")
	assert.Contains(t, out, "iteration=3")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "JSON")

	logger.Info("connected", "broker", "tcp://broker:1883")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "connected", rec["msg"])
	assert.Equal(t, "tcp://broker:1883", rec["broker"])
}

func TestInitTeesToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "lamp.log")
	var console bytes.Buffer

	closer, err := Init(&console, "debug", "text", path)
	require.NoError(t, err)

	slog.Debug("tee me")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tee me")
	assert.Contains(t, console.String(), "tee me")
}

func TestInitBadFile(t *testing.T) {
	_, err := Init(&bytes.Buffer{}, "info", "text", filepath.Join(t.TempDir(), "missing", "lamp.log"))
	assert.Error(t, err)
}

func TestWriteErrorStillReachesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamp.log")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := &teeWriter{target: failingWriter{}, file: f}
	n, err := w.Write([]byte("line\n"))
	assert.Equal(t, 5, n)
	assert.EqualError(t, err, "write failed")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "line"))
}

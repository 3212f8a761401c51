package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONShape(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	l := newLogger(&buf, level, "affiliate-cli", "test")

	l.Debug("hidden")
	require.Zero(t, buf.Len())

	l.Info("stored", "identifier", "PROMO99-0A1B2C")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "INFO", rec["severity"])
	require.Equal(t, "stored", rec["message"])
	require.Equal(t, "affiliate-cli", rec["service"])
	require.Equal(t, "test", rec["env"])
	require.Contains(t, rec, "timestamp")

	buf.Reset()
	level.Set(slog.LevelDebug)
	l.Debug("visible")
	require.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nope"))
}

func TestMaskValue(t *testing.T) {
	require.Equal(t, "", MaskValue(""))
	require.Equal(t, RedactedValue, MaskValue("short"))
	require.Equal(t, RedactedValue+"9abc", MaskValue("0e5c3d52-1111-4222-8333-123456789abc"))
}

func TestOutputDefaultsToStderr(t *testing.T) {
	require.Same(t, os.Stderr, output(Options{}))

	file := output(Options{File: filepath.Join(t.TempDir(), "cli.log")})
	require.NotSame(t, os.Stderr, file)
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"

	log, closeFn, err := newWithConsole(cfg, &buf)
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("knob stuck", zap.Int("value", 512))
	require.NoError(t, closeFn())

	out := buf.String()
	require.NotContains(t, out, "quiet")
	require.Contains(t, out, "knob stuck")
	require.Contains(t, out, `"value": 512`)
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knob.log")
	var console bytes.Buffer
	cfg := DefaultConfig()
	cfg.File = path

	log, closeFn, err := newWithConsole(cfg, &console)
	require.NoError(t, err)
	log.Info("event", zap.String("type", "KNOB_CHANGED"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "event", entry["msg"])
	require.Equal(t, "KNOB_CHANGED", entry["type"])
	require.Equal(t, "info", entry["level"])
	require.Contains(t, console.String(), "event")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Config{Level: "chatty"})
	require.Error(t, err)
}

func TestWrappedCoreLevelIsAdjustable(t *testing.T) {
	var buf bytes.Buffer
	wc := NewWrappedCore(zapcore.ErrorLevel, &buf, zapcore.NewJSONEncoder(encoderConfig()))
	log := zap.New(wc.Core)

	log.Info("hidden")
	wc.AtomicLevel.SetLevel(zapcore.InfoLevel)
	log.Info("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

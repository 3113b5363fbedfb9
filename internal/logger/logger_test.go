package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   logger.LogLevel
		logFunc func(l logger.Logger)
		visible bool
	}{
		{"debug hidden at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("msg") }, false},
		{"info shown at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("msg") }, true},
		{"trace shown at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("msg") }, true},
		{"warn hidden at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("msg") }, false},
		{"error shown at error", logger.LogLevelError, func(l logger.Logger) { l.Error("msg") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.logFunc(logger.NewSlogLogger(&buf, tt.level, time.UTC))
			assert.Equal(t, tt.visible, buf.Len() > 0)
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC).
		Module("pipeline").
		Module("loop").
		With(logger.String("mode", "demo"))

	log.Info("frame processed",
		logger.Int("channels", 2),
		logger.Float64("level", 42.123456),
		logger.Duration("elapsed", 1500*time.Millisecond),
		logger.Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=pipeline.loop")
	assert.Contains(t, out, "mode=demo")
	assert.Contains(t, out, "channels=2")
	assert.Contains(t, out, "level=42.123")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.Contains(t, out, "error=boom")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)
	ctx := logger.WithTraceID(context.Background(), "req-42")

	log.WithContext(ctx).Info("handled")
	assert.Contains(t, buf.String(), "trace_id=req-42")

	buf.Reset()
	log.WithContext(context.Background()).Info("handled")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "echolens.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "warn"},
	})
	require.NoError(t, err)

	cl.Module("audio").Debug("device opened", logger.String("device", "default"))
	cl.Module("datastore").Info("suppressed by module level")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "audio", lines[0]["module"])
	assert.Equal(t, "default", lines[0]["device"])
	assert.Equal(t, "device opened", lines[0]["msg"])
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

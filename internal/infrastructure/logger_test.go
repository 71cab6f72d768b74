package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"loanprep/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "source")
}

func TestContextIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = WithRunID(ctx, "run-456")
	logger.InfoContext(ctx, "with ids")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "run-456", entry["run_id"])

	buf.Reset()
	logger.InfoContext(context.Background(), "without ids")
	entry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "run_id")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
		warnSeen  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"WARNING", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")

			out := buf.String()
			assert.Equal(t, tt.debugSeen, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.infoSeen, strings.Contains(out, "info line"))
			assert.Equal(t, tt.warnSeen, strings.Contains(out, "warn line"))
		})
	}
}

func TestRunIDs(t *testing.T) {
	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
	assert.Empty(t, GetRunID(context.Background()))
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Equal(t, "run-1", GetRunID(WithRunID(context.Background(), "run-1")))
}

func TestSpanIDInjection(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "pipeline.run")
	defer span.End()

	var buf bytes.Buffer
	NewLogger(&buf, "info").InfoContext(ctx, "in span")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])

	// an explicit request id wins over the span trace id
	buf.Reset()
	NewLogger(&buf, "info").InfoContext(WithTraceID(ctx, "req-1"), "in request")
	entry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["trace_id"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")

	WithComponent(logger, "reader").Info("component test")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reader", entry["component"])
}

func TestInitializeLoggerBadPath(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	// a regular file cannot be a log directory
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: filepath.Join(blocker, "app.log")})
	assert.Error(t, err)
}

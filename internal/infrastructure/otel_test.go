package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"loanprep/internal/config"
)


func TestOTelInitialization(t *testing.T) {
	logger := NewLogger(io.Discard, "error")

	providers, err := InitializeOTel(nil, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	// default: prometheus metrics, no tracing
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	logger := NewLogger(io.Discard, "error")

	tests := []struct {
		name        string
		config      *OTelConfig
		wantTracing bool
		wantMetrics bool
		wantErr     bool
	}{
		{
			name: "stdout tracing with prometheus",
			config: &OTelConfig{
				ServiceName: "test", ServiceVersion: "v1",
				TraceExporter: "stdout", MetricExporter: "prometheus",
				SampleRatio: 1.0, TraceWriter: io.Discard,
			},
			wantTracing: true,
			wantMetrics: true,
		},
		{
			name: "everything disabled",
			config: &OTelConfig{
				ServiceName: "test", ServiceVersion: "v1",
				TraceExporter: "none", MetricExporter: "none",
			},
		},
		{
			name: "unknown trace exporter",
			config: &OTelConfig{
				TraceExporter: "otlp", MetricExporter: "none",
			},
			wantErr: true,
		},
		{
			name: "unknown metric exporter",
			config: &OTelConfig{
				TraceExporter: "none", MetricExporter: "statsd",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
		})
	}
}

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{
		MetricExporter: "none",
		TraceExporter:  "stdout",
		SampleRatio:    0.5,
	})
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "none", cfg.MetricExporter)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, 0.5, cfg.SampleRatio)
}

func TestPipelineMetricsExposedOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.RowsRead.Add(ctx, 3, metric.WithAttributes(attribute.String("job", "accepted")))
	m.MalformedRows.Add(ctx, 1)
	m.RecordRun(ctx, "accepted", 250*time.Millisecond, nil)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pipeline_rows_read_total")
	assert.Contains(t, string(body), "pipeline_malformed_rows_total")
	assert.Contains(t, string(body), "pipeline_runs_total")
	assert.Contains(t, string(body), `job="accepted"`)
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), "x", time.Second, assert.AnError)
	})

	// nil meter falls back to the global provider
	m, err := CreatePipelineMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Chunks)
}

func TestSpanHelpers(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName: "test", ServiceVersion: "v1",
		TraceExporter: "stdout", MetricExporter: "none",
		SampleRatio: 1.0, TraceWriter: io.Discard,
	}, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "job")
	defer span.End()

	assert.True(t, span.IsRecording())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))

	assert.NotPanics(t, func() {
		AddSpanEvent(ctx, "chunk.written", attribute.Int("rows", 10))
		RecordError(ctx, assert.AnError)
		RecordError(ctx, nil)
	})

	assert.Empty(t, TraceIDFromContext(context.Background()))
}

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ekyc/internal/platform/config"
)

func restoreProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("none keeps the no-op provider", func(t *testing.T) {
		restoreProvider(t)

		shutdown, err := Init(ctx, config.TracingConfig{Exporter: config.TraceExporterNone})
		require.NoError(t, err)
		_, span := otel.Tracer("ekyc.test").Start(ctx, "kyc.approve")
		assert.False(t, span.IsRecording())
		span.End()
		assert.NoError(t, shutdown(ctx))
	})

	t.Run("stdout exports finished spans on shutdown", func(t *testing.T) {
		restoreProvider(t)
		var buf bytes.Buffer

		shutdown, err := InitWithWriter(ctx, config.TracingConfig{
			Exporter:    config.TraceExporterStdout,
			SampleRatio: 1,
			ServiceName: "ekyc-test",
		}, &buf)
		require.NoError(t, err)

		_, span := otel.Tracer("ekyc.test").Start(ctx, "kyc.approve")
		span.End()
		require.NoError(t, shutdown(ctx))

		assert.Contains(t, buf.String(), "kyc.approve")
		assert.Contains(t, buf.String(), "ekyc-test")
	})

	t.Run("rejects unknown exporters", func(t *testing.T) {
		restoreProvider(t)
		_, err := Init(ctx, config.TracingConfig{Exporter: "zipkin"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "zipkin")
	})
}

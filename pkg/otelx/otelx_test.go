package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "iamcore"})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	require.Contains(t, fields, "traceparent")
	require.Contains(t, fields, "baggage")
}

func TestSetupEnabled(t *testing.T) {
	// The exporter connects lazily, so no collector is needed.
	p, err := Setup(context.Background(), Config{
		Enable:      true,
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "iamcore",
		Version:     "test",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

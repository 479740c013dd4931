package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		Enabled:      true,
		Exporter:     "stdout",
		Environment:  "test",
		SamplerRatio: 1,
	})
	require.NoError(t, err)

	ctx, span := StartClientSpan(context.Background(), "test.call", attribute.String("k", "v"))
	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))

	assert.NoError(t, shutdown(context.Background()))
	_, _ = InitTracing(TracingConfig{Enabled: false})
}

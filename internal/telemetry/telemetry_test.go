package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{SampleRatio: 7}.withDefaults()
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRatio)
	assert.Equal(t, 30*time.Second, cfg.ExportInterval)
	assert.Equal(t, "opentelemetry-collector:4317", cfg.Endpoint)

	kept := Config{ServiceName: "imports-eu", SampleRatio: 0.25}.withDefaults()
	assert.Equal(t, "imports-eu", kept.ServiceName)
	assert.Equal(t, 0.25, kept.SampleRatio)
}

package telemetry

import (
	"context"
	"testing"

	"github.com/aaravmahajanofficial/solar-storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracingWithoutExporter(t *testing.T) {
	// Arrange
	cfg := config.OTel{ServiceName: "solar-storefront", SamplerRatio: 1}

	// Act
	shutdown, err := SetupTracing(context.Background(), cfg, "test")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := otel.Tracer("test").Start(context.Background(), "checkout")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("collector:4318"), 2)
	assert.Len(t, exporterOptions("https://otel.example.com/v1/traces"), 1)
}

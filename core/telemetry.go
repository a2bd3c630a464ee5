package core

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/faults"
)

const serviceName = "hypersync"

// newTracerProvider exports spans over OTLP/gRPC when an endpoint is
// configured. Without one the global provider is used and shutdown is a
// no-op.
func newTracerProvider(ctx context.Context, telemetry config.Telemetry) (trace.TracerProvider, func(context.Context) error, error) {
	endpoint := strings.TrimSpace(telemetry.OTLPEndpoint)
	if endpoint == "" {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporterOptions := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if telemetry.OTLPInsecure {
		exporterOptions = append(exporterOptions, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOptions...)
	if err != nil {
		return nil, nil, faults.NewTypedError(faults.InternalError, "failed to create OTLP trace exporter", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	return provider, provider.Shutdown, nil
}

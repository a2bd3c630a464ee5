package orchestrator

import (
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmarques/hypersync/graph"
)

const tracerName = "github.com/crmarques/hypersync/orchestrator"

var _ Orchestrator = (*DefaultOrchestrator)(nil)

type DefaultOrchestrator struct {
	Client *graph.Client
	Logger logr.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

func (r *DefaultOrchestrator) logger() logr.Logger {
	if r == nil || r.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return r.Logger
}

func (r *DefaultOrchestrator) tracer() trace.Tracer {
	if r != nil && r.TracerProvider != nil {
		return r.TracerProvider.Tracer(tracerName)
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

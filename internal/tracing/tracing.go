package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const instrumentationName = "github.com/polkiloo/storefront"

// Module provides the tracer used by use cases and workers.
var Module = fx.Provide(New)

// New returns a tracer from the global provider. Without an exporter
// installed through otel.SetTracerProvider spans are dropped.
func New() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

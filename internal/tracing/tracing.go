// Package tracing wires an OpenTelemetry TracerProvider for the engine's
// own spans. No exporter is configured: spans are created and ended like
// any traced call, ready for an exporter to be added without touching the
// call sites, but nothing is shipped anywhere by default.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tuannvm/llm-tool-engine"

var tracer trace.Tracer

// Init installs a process-wide TracerProvider with no exporter attached.
func Init() {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(instrumentationName)
}

// Start begins a span. Callers should always defer the returned end func.
func Start(ctx context.Context, name string) (context.Context, func()) {
	if tracer == nil {
		Init()
	}
	ctx, span := tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

// StartWithAttrs begins a span and records the given key/value attribute
// pairs (even length, alternating key, value, as with logging.InfoKV).
func StartWithAttrs(ctx context.Context, name string, kvs ...string) (context.Context, func()) {
	if tracer == nil {
		Init()
	}
	ctx, span := tracer.Start(ctx, name)
	for i := 0; i+1 < len(kvs); i += 2 {
		span.SetAttributes(attribute.String(kvs[i], kvs[i+1]))
	}
	return ctx, func() { span.End() }
}

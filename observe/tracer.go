package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CallMeta identifies a protected dependency call for telemetry purposes.
type CallMeta struct {
	Dependency string // Logical dependency name, e.g. "billing-api" (required)
	Operation  string // Operation on the dependency, e.g. "charge" (optional)
	Version    string // Dependency version or API revision (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: dep.call.<dependency>.<operation> or dep.call.<dependency>
func (m CallMeta) SpanName() string {
	if m.Operation != "" {
		return "dep.call." + m.Dependency + "." + m.Operation
	}
	return "dep.call." + m.Dependency
}

// Tracer wraps OpenTelemetry tracing with dependency-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a dependency call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("dep.name", meta.Dependency),
		attribute.Bool("dep.error", false), // Updated in EndSpan if error
	}

	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("dep.operation", meta.Operation))
	}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("dep.version", meta.Version))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("dep.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

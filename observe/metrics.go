package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/khive-ai/guardrail/resilience"
)

// Metrics records telemetry for protected dependency calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a dependency call with duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordTransition records a circuit breaker state change.
	RecordTransition(ctx context.Context, meta CallMeta, from, to resilience.State)

	// RecordRetry records a retry attempt and the backoff chosen before it.
	RecordRetry(ctx context.Context, meta CallMeta, attempt int, delay time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	transitions  metric.Int64Counter
	retries      metric.Int64Counter
	backoffHist  metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"dep.call.total",
		metric.WithDescription("Total number of protected dependency calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"dep.call.errors",
		metric.WithDescription("Total number of failed dependency calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"dep.call.duration_ms",
		metric.WithDescription("Dependency call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"retry.attempts",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	backoffHist, err := meter.Float64Histogram(
		"retry.backoff_ms",
		metric.WithDescription("Backoff delay chosen before a retry attempt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		transitions:  transitions,
		retries:      retries,
		backoffHist:  backoffHist,
	}, nil
}

func (m *metricsImpl) callAttrs(meta CallMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("dep.name", meta.Dependency),
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("dep.operation", meta.Operation))
	}
	return attrs
}

// RecordCall records metrics for a dependency call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	attrs := m.callAttrs(meta)
	if err != nil {
		attrs = append(attrs, attribute.String("error.kind", resilience.KindOf(err).String()))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordTransition records a circuit breaker state change.
func (m *metricsImpl) RecordTransition(ctx context.Context, meta CallMeta, from, to resilience.State) {
	attrs := append(m.callAttrs(meta),
		attribute.String("circuit.from", from.String()),
		attribute.String("circuit.to", to.String()),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry records a retry attempt.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta CallMeta, attempt int, delay time.Duration) {
	attrs := append(m.callAttrs(meta),
		attribute.Int("retry.attempt", attempt),
	)
	opt := metric.WithAttributes(attrs...)
	m.retries.Add(ctx, 1, opt)
	m.backoffHist.Record(ctx, float64(delay.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordTransition(ctx context.Context, meta CallMeta, from, to resilience.State) {
}
func (m *noopMetrics) RecordRetry(ctx context.Context, meta CallMeta, attempt int, delay time.Duration) {
}

package observe

import (
	"context"
	"time"

	"github.com/khive-ai/guardrail/resilience"
)

// CallFunc is the signature for protected dependency calls.
// This is the standard function signature that Middleware wraps.
type CallFunc func(ctx context.Context) error

// Middleware wraps dependency calls with observability (tracing, metrics,
// logging). The resilience core never logs or records on its own; this is
// the collaborator that carries its events out.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CallFunc.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a dependency call with tracing, metrics, and logging.
func (m *Middleware) Wrap(meta CallMeta, fn CallFunc) CallFunc {
	callLogger := m.logger.WithCall(meta)

	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := fn(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields,
				Field{Key: "error", Value: err.Error()},
				Field{Key: "error.kind", Value: resilience.KindOf(err).String()},
			)
			callLogger.Error(ctx, "dependency call failed", fields...)
		} else {
			callLogger.Info(ctx, "dependency call completed", fields...)
		}

		return err
	}
}

// CircuitHook returns a function suitable for
// resilience.CircuitBreakerConfig.OnStateChange that records and logs the
// breaker's transitions. The hook runs under the breaker lock, so it only
// does constant-time recording.
func (m *Middleware) CircuitHook(meta CallMeta) func(from, to resilience.State) {
	callLogger := m.logger.WithCall(meta)

	return func(from, to resilience.State) {
		ctx := context.Background()
		m.metrics.RecordTransition(ctx, meta, from, to)
		callLogger.Warn(ctx, "circuit state changed",
			Field{Key: "circuit.from", Value: from.String()},
			Field{Key: "circuit.to", Value: to.String()},
		)
	}
}

// RetryHook returns a function suitable for resilience.RetryConfig.OnRetry
// that records and logs each backoff before a retry attempt.
func (m *Middleware) RetryHook(meta CallMeta) func(attempt int, err error, delay time.Duration) {
	callLogger := m.logger.WithCall(meta)

	return func(attempt int, err error, delay time.Duration) {
		ctx := context.Background()
		m.metrics.RecordRetry(ctx, meta, attempt, delay)
		callLogger.Debug(ctx, "retrying after backoff",
			Field{Key: "retry.attempt", Value: attempt},
			Field{Key: "retry.delay_ms", Value: float64(delay.Milliseconds())},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

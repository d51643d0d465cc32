package resilience

import (
	"context"
)

// Pipeline composes the resilience layers in their canonical nesting: retry
// on the outside, circuit breaker inside it, and (for blocking work) the
// async bridge innermost. Layers left unconfigured are skipped.
type Pipeline struct {
	circuitBreaker *CircuitBreaker
	retryPolicy    *RetryPolicy
	executor       *AsyncExecutor
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// NewPipeline creates a new resilience pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithCircuitBreaker guards the pipeline with a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) PipelineOption {
	return func(p *Pipeline) {
		p.circuitBreaker = cb
	}
}

// WithRetryPolicy adds retry with backoff to the pipeline.
func WithRetryPolicy(rp *RetryPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.retryPolicy = rp
	}
}

// WithAsyncExecutor routes blocking operations through the given bridge.
func WithAsyncExecutor(e *AsyncExecutor) PipelineOption {
	return func(p *Pipeline) {
		p.executor = e
	}
}

// Execute runs the operation through the configured layers.
//
// The nesting is retry{ breaker{ op } }: every retry attempt passes through
// the breaker, so an opened circuit fails attempts fast and the policy stops
// retrying (ErrCircuitOpen is not retryable by default).
func (p *Pipeline) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if p.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return p.circuitBreaker.Execute(ctx, inner)
		}
	}

	if p.retryPolicy != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return p.retryPolicy.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// ExecuteBlocking runs a blocking operation through the async bridge inside
// the protected path. It requires an executor to have been configured;
// without one it returns ErrNilOperation for a nil op and otherwise runs op
// on the calling goroutine.
func (p *Pipeline) ExecuteBlocking(ctx context.Context, op func() error) error {
	if op == nil {
		return ErrNilOperation
	}

	bridged := func(ctx context.Context) error {
		if p.executor == nil {
			return op()
		}
		return p.executor.Execute(ctx, op)
	}

	return p.Execute(ctx, bridged)
}

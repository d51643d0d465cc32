// Package resilience provides the failure-handling layer used by service
// clients to call unreliable remote dependencies safely.
//
// # Patterns
//
// The package provides three tightly coupled pieces:
//
//   - Circuit Breaker: stops hammering a failing dependency and fails fast
//     with ErrCircuitOpen until a recovery probe succeeds.
//
//   - Retry Policy: absorbs transient errors with exponential backoff and
//     full jitter, deciding retry-or-stop from a closed error taxonomy.
//
//   - Async Executor: runs blocking callables on a bounded goroutine pool
//     with a per-call deadline, so blocking work can participate in
//     context-aware call paths.
//
// Errors are classified by Kind, not by concrete type: clients tag errors at
// the boundary with WithKind or RateLimited, and both the breaker and the
// retry policy make value-level decisions from the tag while re-raising the
// original error verbatim.
//
// # Usage
//
// The canonical composition wraps every call in retry-with-backoff, which
// itself calls through a circuit breaker:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    RecoveryTime:     time.Minute,
//	})
//
//	policy := resilience.NewRetryPolicy(resilience.RetryConfig{
//	    MaxRetries: 3,
//	    BaseDelay:  time.Second,
//	    MaxDelay:   30 * time.Second,
//	})
//
//	pipeline := resilience.NewPipeline(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetryPolicy(policy),
//	)
//
//	err := pipeline.Execute(ctx, func(ctx context.Context) error {
//	    return callRemoteDependency(ctx)
//	})
//
// Blocking calls go through the bridge first:
//
//	exec := resilience.NewAsyncExecutor(resilience.AsyncExecutorConfig{
//	    MaxWorkers: 4,
//	    Timeout:    10 * time.Second,
//	})
//	defer exec.Close()
//
//	err := exec.Execute(ctx, func() error {
//	    return legacyBlockingCall()
//	})
package resilience

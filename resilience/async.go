package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// AsyncExecutorConfig configures the async execution bridge.
type AsyncExecutorConfig struct {
	// MaxWorkers bounds the number of concurrently running operations.
	// Ignored when Workers is supplied. Default: 10
	MaxWorkers int

	// Timeout is the per-call deadline, overridable per call.
	// Default: 30 seconds
	Timeout time.Duration

	// Workers is an externally supplied worker budget. When set, the
	// executor shares it instead of creating its own, which lets several
	// executors draw from one bounded pool.
	Workers *semaphore.Weighted
}

// AsyncExecutor bridges blocking operations into context-aware code.
//
// Operations are plain blocking funcs: they take no context and are expected
// to run to completion on their own goroutine. Execute suspends the caller
// until the operation finishes or the deadline fires. The worker budget is
// materialized lazily on first use and reused until Close.
//
// On timeout the operation keeps running detached until it returns on its
// own; a goroutine cannot be killed. That is a documented limitation of
// bridging blocking work, not a bug.
type AsyncExecutor struct {
	timeout     time.Duration
	maxWorkers  int
	ownsWorkers bool

	poolOnce sync.Once
	workers  *semaphore.Weighted

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// NewAsyncExecutor creates a new async execution bridge.
func NewAsyncExecutor(config AsyncExecutorConfig) *AsyncExecutor {
	// Apply defaults
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	e := &AsyncExecutor{
		timeout:    config.Timeout,
		maxWorkers: config.MaxWorkers,
	}
	if config.Workers != nil {
		e.workers = config.Workers
	} else {
		e.ownsWorkers = true
	}
	return e
}

// Execute runs op with the executor's default timeout.
func (e *AsyncExecutor) Execute(ctx context.Context, op func() error) error {
	return e.ExecuteWithTimeout(ctx, e.timeout, op)
}

// ExecuteWithTimeout runs the blocking op on a pooled goroutine and suspends
// the caller until it completes, the timeout elapses (ErrTimeout), or ctx is
// cancelled. An error returned by op propagates unchanged.
func (e *AsyncExecutor) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func() error) error {
	if op == nil {
		return ErrNilOperation
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.inFlight.Add(1)
	e.mu.Unlock()

	e.poolOnce.Do(func() {
		if e.workers == nil {
			e.workers = semaphore.NewWeighted(int64(e.maxWorkers))
		}
	})

	if err := e.workers.Acquire(ctx, 1); err != nil {
		e.inFlight.Done()
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer e.inFlight.Done()
		defer e.workers.Release(1)
		done <- op()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the executor down, waiting for in-flight operations to finish.
// It is idempotent and safe to call before any Execute. After Close, every
// Execute fails with ErrExecutorClosed.
//
// Operations abandoned by a timeout still count as in flight until they
// return, so Close may block on them.
func (e *AsyncExecutor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.inFlight.Wait()
}

// RunWithExecutor runs fn with a freshly created executor and always closes
// it exactly once, whether fn succeeds or fails.
func RunWithExecutor(config AsyncExecutorConfig, fn func(*AsyncExecutor) error) error {
	e := NewAsyncExecutor(config)
	defer e.Close()
	return fn(e)
}

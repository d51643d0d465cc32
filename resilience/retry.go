package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures a retry policy.
type RetryConfig struct {
	// MaxRetries is the total number of invocations, including the first.
	// Default: 3
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay caps the computed delay between retries.
	// Default: 60 seconds
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	// Default: 2.0
	BackoffFactor float64

	// NoJitter disables full jitter. Jitter is on by default: each delay is
	// replaced with a uniformly random duration in [0, delay] so many callers
	// retrying at once do not synchronize into retry storms.
	NoJitter bool

	// RetryableKinds are the error kinds worth retrying. Default: all
	// transient kinds (connection failure, timeout, rate limited, server
	// fault). Circuit-open and non-retryable errors are never in the default
	// set; retrying instantly against an open circuit defeats its purpose.
	RetryableKinds KindSet

	// ExcludedKinds are never retried, even if present in RetryableKinds.
	ExcludedKinds KindSet

	// Classify maps an error to its kind. Default: KindOf.
	Classify func(err error) Kind

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// RetryPolicy executes operations with exponential backoff.
//
// A policy is immutable after construction and safe to share across any
// number of concurrent calls without synchronization.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy, applying defaults for zero fields.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}
	if config.RetryableKinds.Len() == 0 {
		config.RetryableKinds = NewKindSet(
			KindConnectionFailure,
			KindTimeout,
			KindRateLimited,
			KindServerFault,
		)
	}
	if config.Classify == nil {
		config.Classify = KindOf
	}

	return &RetryPolicy{config: config}
}

// Execute runs the operation until it succeeds, its error stops being
// retryable, or MaxRetries invocations have been made. The last error is
// returned verbatim; the policy never wraps it.
//
// Cancelling ctx during a backoff delay stops further attempts and returns
// ctx.Err().
func (p *RetryPolicy) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		kind := p.config.Classify(err)
		if p.config.ExcludedKinds.Has(kind) || !p.config.RetryableKinds.Has(kind) {
			return err
		}
		if attempt >= p.config.MaxRetries {
			return err
		}

		delay := p.delay(attempt, err)

		if p.config.OnRetry != nil {
			p.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay computes the backoff before the attempt+1-th invocation.
func (p *RetryPolicy) delay(attempt int, err error) time.Duration {
	backoff := float64(p.config.BaseDelay) * math.Pow(p.config.BackoffFactor, float64(attempt-1))

	// Cap in float space. Converting a product past int64 nanoseconds to
	// time.Duration wraps negative, which would fire the timer immediately.
	delay := p.config.MaxDelay
	if backoff < float64(p.config.MaxDelay) {
		delay = time.Duration(backoff)
	}

	if !p.config.NoJitter && delay > 0 {
		// Full jitter: uniform in [0, delay].
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay = time.Duration(rand.Int63n(int64(delay) + 1))
	}

	// A rate-limit hint is a floor on the delay, never a ceiling: we respect
	// the server's minimum but keep any larger backoff we already computed.
	if hint, ok := retryAfterHint(err); ok {
		delay = max(delay, hint)
	}

	return delay
}

// Config returns the effective policy configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

// RetryWithBackoff runs op under a policy built from config. It is a
// convenience for one-off calls; construct a RetryPolicy to reuse one.
func RetryWithBackoff(ctx context.Context, config RetryConfig, op func(context.Context) error) error {
	return NewRetryPolicy(config).Execute(ctx, op)
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for retry and circuit-breaking decisions.
//
// The set is closed on purpose: callers tag concrete errors at the client
// boundary (via WithKind or RateLimited) and the combinators make value-level
// decisions from the tag instead of inspecting concrete error types.
type Kind int

const (
	// KindNonRetryable marks caller or validation errors that must never be
	// retried and never count against a circuit breaker. It is the catch-all
	// for untagged errors.
	KindNonRetryable Kind = iota
	// KindConnectionFailure marks transport-level failures (dial, reset, DNS).
	KindConnectionFailure
	// KindTimeout marks operations that exceeded a deadline.
	KindTimeout
	// KindRateLimited marks throttling responses, optionally carrying a
	// retry-after hint.
	KindRateLimited
	// KindServerFault marks remote 5xx-class failures.
	KindServerFault
	// KindCircuitOpen marks fail-fast rejections synthesized by a circuit
	// breaker. It is never produced by a wrapped operation.
	KindCircuitOpen
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNonRetryable:
		return "non-retryable"
	case KindConnectionFailure:
		return "connection-failure"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate-limited"
	case KindServerFault:
		return "server-fault"
	case KindCircuitOpen:
		return "circuit-open"
	default:
		return "unknown"
	}
}

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when a circuit breaker rejects a call
	// without invoking the operation.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrTimeout is returned when a bridged operation exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrExecutorClosed is returned by AsyncExecutor.Execute after Close.
	ErrExecutorClosed = errors.New("resilience: executor is closed")

	// ErrNilOperation is returned when a nil operation is submitted.
	ErrNilOperation = errors.New("resilience: operation is nil")
)

// KindSet is an immutable set of error kinds.
type KindSet struct {
	kinds map[Kind]struct{}
}

// NewKindSet creates a set containing the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	m := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return KindSet{kinds: m}
}

// Has reports whether k is in the set. The zero KindSet is empty.
func (s KindSet) Has(k Kind) bool {
	_, ok := s.kinds[k]
	return ok
}

// Len returns the number of kinds in the set.
func (s KindSet) Len() int {
	return len(s.kinds)
}

// kinder is implemented by errors that carry an explicit kind.
type kinder interface {
	ErrorKind() Kind
}

// kindError tags a wrapped error with a kind without altering its message.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() error   { return e.err }
func (e *kindError) ErrorKind() Kind { return e.kind }

// WithKind tags err with the given kind. The returned error is transparent:
// its message is err's message and errors.Is/As see through it.
// A nil err returns nil.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// RateLimitedError tags an error as rate-limited, optionally carrying the
// server's retry-after hint. A zero RetryAfter means no hint was provided.
type RateLimitedError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Err.Error(), e.RetryAfter)
	}
	return e.Err.Error()
}

func (e *RateLimitedError) Unwrap() error   { return e.Err }
func (e *RateLimitedError) ErrorKind() Kind { return KindRateLimited }

// RateLimited tags err as rate-limited with an optional retry-after hint.
// A nil err returns nil.
func RateLimited(err error, retryAfter time.Duration) error {
	if err == nil {
		return nil
	}
	return &RateLimitedError{Err: err, RetryAfter: retryAfter}
}

// KindOf classifies err into a Kind.
//
// Tagged errors (WithKind, RateLimited) report their own kind. Sentinels and
// context deadline errors map to their natural kinds. Everything else is
// KindNonRetryable: unclassified errors are treated as caller errors rather
// than transient ones.
func KindOf(err error) Kind {
	if err == nil {
		return KindNonRetryable
	}

	var k kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindNonRetryable
	}
}

// retryAfterHint extracts the retry-after hint from err, if any.
func retryAfterHint(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

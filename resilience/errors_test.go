package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrTimeout", ErrTimeout},
		{"ErrExecutorClosed", ErrExecutorClosed},
		{"ErrNilOperation", ErrNilOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindNonRetryable, "non-retryable"},
		{KindConnectionFailure, "connection-failure"},
		{KindTimeout, "timeout"},
		{KindRateLimited, "rate-limited"},
		{KindServerFault, "server-fault"},
		{KindCircuitOpen, "circuit-open"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("Kind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithKind(t *testing.T) {
	base := errors.New("connection refused")
	tagged := WithKind(base, KindConnectionFailure)

	if KindOf(tagged) != KindConnectionFailure {
		t.Errorf("KindOf() = %v, want KindConnectionFailure", KindOf(tagged))
	}
	if tagged.Error() != base.Error() {
		t.Errorf("message = %q, want the original %q", tagged.Error(), base.Error())
	}
	if !errors.Is(tagged, base) {
		t.Error("errors.Is does not see through the tag")
	}
}

func TestWithKind_Nil(t *testing.T) {
	if WithKind(nil, KindServerFault) != nil {
		t.Error("WithKind(nil) != nil")
	}
	if RateLimited(nil, time.Second) != nil {
		t.Error("RateLimited(nil) != nil")
	}
}

func TestWithKind_WrappedDeep(t *testing.T) {
	base := errors.New("boom")
	tagged := WithKind(base, KindServerFault)
	wrapped := fmt.Errorf("calling upstream: %w", tagged)

	if KindOf(wrapped) != KindServerFault {
		t.Errorf("KindOf(wrapped) = %v, want KindServerFault", KindOf(wrapped))
	}
}

func TestRateLimited(t *testing.T) {
	base := errors.New("too many requests")
	err := RateLimited(base, 2*time.Second)

	if KindOf(err) != KindRateLimited {
		t.Errorf("KindOf() = %v, want KindRateLimited", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("errors.Is does not see through RateLimitedError")
	}

	hint, ok := retryAfterHint(err)
	if !ok || hint != 2*time.Second {
		t.Errorf("retryAfterHint() = %v, %v, want 2s, true", hint, ok)
	}
}

func TestRateLimited_NoHint(t *testing.T) {
	err := RateLimited(errors.New("too many requests"), 0)

	if _, ok := retryAfterHint(err); ok {
		t.Error("retryAfterHint() reported a hint for a zero RetryAfter")
	}
	if KindOf(err) != KindRateLimited {
		t.Errorf("KindOf() = %v, want KindRateLimited", KindOf(err))
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNonRetryable},
		{"untagged", errors.New("whatever"), KindNonRetryable},
		{"circuit open sentinel", ErrCircuitOpen, KindCircuitOpen},
		{"timeout sentinel", ErrTimeout, KindTimeout},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("rpc: %w", context.DeadlineExceeded), KindTimeout},
		{"tagged server fault", WithKind(errors.New("500"), KindServerFault), KindServerFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindSet(t *testing.T) {
	s := NewKindSet(KindTimeout, KindServerFault)

	if !s.Has(KindTimeout) || !s.Has(KindServerFault) {
		t.Error("set is missing members it was built with")
	}
	if s.Has(KindRateLimited) {
		t.Error("set contains a kind it was not built with")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	var zero KindSet
	if zero.Has(KindTimeout) || zero.Len() != 0 {
		t.Error("zero KindSet is not empty")
	}
}

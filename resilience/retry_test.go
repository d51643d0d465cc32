package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{})

	cfg := p.Config()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", cfg.BaseDelay)
	}
	if cfg.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", cfg.MaxDelay)
	}
	if cfg.BackoffFactor != 2.0 {
		t.Errorf("BackoffFactor = %v, want 2.0", cfg.BackoffFactor)
	}
	if cfg.NoJitter {
		t.Error("NoJitter = true, want jitter enabled by default")
	}

	for _, k := range []Kind{KindConnectionFailure, KindTimeout, KindRateLimited, KindServerFault} {
		if !cfg.RetryableKinds.Has(k) {
			t.Errorf("default RetryableKinds missing %v", k)
		}
	}
	for _, k := range []Kind{KindNonRetryable, KindCircuitOpen} {
		if cfg.RetryableKinds.Has(k) {
			t.Errorf("default RetryableKinds must not contain %v", k)
		}
	}
}

func TestRetryPolicy_SuccessInvokesOnce(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond})

	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if invocations != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

func TestRetryPolicy_EventualSuccess(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		NoJitter:   true,
	})

	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		if invocations <= 2 {
			return WithKind(errors.New("flaky"), KindConnectionFailure)
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if invocations != 3 {
		t.Errorf("invocations = %d, want 3", invocations)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 4,
		BaseDelay:  time.Millisecond,
		NoJitter:   true,
	})

	testErr := WithKind(errors.New("still down"), KindServerFault)
	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return testErr
	})

	if err != testErr {
		t.Errorf("Execute() error = %v, want the last error verbatim", err)
	}
	if invocations != 4 {
		t.Errorf("invocations = %d, want MaxRetries (4)", invocations)
	}
}

func TestRetryPolicy_NonRetryableInvokesOnce(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxRetries: 10, BaseDelay: time.Millisecond})

	callerErr := errors.New("validation failed")
	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return callerErr
	})

	if err != callerErr {
		t.Errorf("Execute() error = %v, want %v", err, callerErr)
	}
	if invocations != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

func TestRetryPolicy_ExcludedKindInvokesOnce(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries:    10,
		BaseDelay:     time.Millisecond,
		ExcludedKinds: NewKindSet(KindRateLimited),
	})

	testErr := RateLimited(errors.New("throttled"), 0)
	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return testErr
	})

	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if invocations != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

func TestRetryPolicy_CircuitOpenNotRetried(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{MaxRetries: 10, BaseDelay: time.Millisecond})

	invocations := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		invocations++
		return ErrCircuitOpen
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if invocations != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

func TestRetryPolicy_BackoffSchedule(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxRetries:    4,
		BaseDelay:     10 * time.Millisecond,
		MaxDelay:      15 * time.Millisecond,
		BackoffFactor: 2.0,
		NoJitter:      true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = p.Execute(context.Background(), func(ctx context.Context) error {
		return WithKind(errors.New("still down"), KindServerFault)
	})

	want := []time.Duration{10 * time.Millisecond, 15 * time.Millisecond, 15 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v (capped at MaxDelay)", i, delays[i], want[i])
		}
	}
}

func TestRetryPolicy_BackoffSaturatesAtMaxDelay(t *testing.T) {
	// Past ~2^33 seconds the exponential product no longer fits in int64
	// nanoseconds; the delay must saturate at MaxDelay, never go negative.
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 100,
		NoJitter:   true,
	})

	testErr := WithKind(errors.New("still down"), KindServerFault)

	for _, attempt := range []int{1, 7, 64, 100} {
		d := p.delay(attempt, testErr)
		if d <= 0 || d > p.config.MaxDelay {
			t.Errorf("delay(%d) = %v, want within (0, %v]", attempt, d, p.config.MaxDelay)
		}
	}

	if d := p.delay(64, testErr); d != 60*time.Second {
		t.Errorf("delay(64) = %v, want saturation at the 60s default MaxDelay", d)
	}
}

func TestRetryPolicy_JitterStaysWithinBound(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxRetries:    5,
		BaseDelay:     8 * time.Millisecond,
		MaxDelay:      20 * time.Millisecond,
		BackoffFactor: 2.0,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = p.Execute(context.Background(), func(ctx context.Context) error {
		return WithKind(errors.New("still down"), KindServerFault)
	})

	if len(delays) != 4 {
		t.Fatalf("got %d delays, want 4", len(delays))
	}
	for i, d := range delays {
		if d < 0 || d > 20*time.Millisecond {
			t.Errorf("jittered delay %d = %v, want within [0, MaxDelay]", i, d)
		}
	}
}

func TestRetryPolicy_RetryAfterHintIsFloor(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		NoJitter:   true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	hint := 25 * time.Millisecond
	_ = p.Execute(context.Background(), func(ctx context.Context) error {
		return RateLimited(errors.New("throttled"), hint)
	})

	if len(delays) != 1 {
		t.Fatalf("got %d delays, want 1", len(delays))
	}
	if delays[0] != hint {
		t.Errorf("delay = %v, want the retry-after hint %v", delays[0], hint)
	}
}

func TestRetryPolicy_RetryAfterKeepsLargerBackoff(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  40 * time.Millisecond,
		NoJitter:   true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = p.Execute(context.Background(), func(ctx context.Context) error {
		return RateLimited(errors.New("throttled"), 5*time.Millisecond)
	})

	if len(delays) != 1 {
		t.Fatalf("got %d delays, want 1", len(delays))
	}
	if delays[0] != 40*time.Millisecond {
		t.Errorf("delay = %v, want the larger computed backoff 40ms", delays[0])
	}
}

func TestRetryPolicy_CancelDuringDelay(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Hour,
		NoJitter:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())

	invocations := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Execute(ctx, func(ctx context.Context) error {
			invocations++
			return WithKind(errors.New("still down"), KindServerFault)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute() did not return after cancellation")
	}
	if invocations != 1 {
		t.Errorf("invocations = %d, want 1 (no attempt after cancel)", invocations)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	invocations := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		NoJitter:   true,
	}, func(ctx context.Context) error {
		invocations++
		if invocations < 2 {
			return WithKind(errors.New("flaky"), KindTimeout)
		}
		return nil
	})

	if err != nil {
		t.Errorf("RetryWithBackoff() error = %v", err)
	}
	if invocations != 2 {
		t.Errorf("invocations = %d, want 2", invocations)
	}
}

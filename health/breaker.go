package health

import (
	"context"
	"fmt"

	"github.com/khive-ai/guardrail/resilience"
)

// BreakerChecker derives a dependency's health from its circuit breaker.
//
// A closed circuit reports healthy, a half-open circuit reports degraded
// while the recovery trial is pending, and an open circuit reports
// unhealthy. The breaker's failure count and last failure time are exposed
// in the result details.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker backed by the given circuit breaker.
// The name identifies the guarded dependency in aggregated results.
func NewBreakerChecker(name string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Name returns the dependency name this checker reports on.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reads the breaker state and maps it to a health status.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	snap := c.breaker.Snapshot()

	details := map[string]any{
		"circuit_state": snap.State.String(),
		"failure_count": snap.Failures,
	}
	if !snap.LastFailure.IsZero() {
		details["last_failure"] = snap.LastFailure.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	switch snap.State {
	case resilience.StateOpen:
		return Unhealthy(
			fmt.Sprintf("circuit open after %d consecutive failures", snap.Failures),
			resilience.ErrCircuitOpen,
		).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, recovery trial pending").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

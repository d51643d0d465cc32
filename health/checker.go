package health

import (
	"context"
	"net/http"
	"time"
)

// Status represents the health status of a guarded dependency.
type Status int

const (
	// StatusHealthy indicates the dependency is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the dependency works but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the dependency is not usable.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the status to the response code served by the health
// endpoints. Degraded dependencies still serve traffic, so only unhealthy
// maps to 503.
func (s Status) HTTPStatus() int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Result contains the outcome of a single dependency health check.
type Result struct {
	// Status is the health status.
	Status Status

	// Message says why the dependency landed in this status.
	Message string

	// Details carries per-dependency metadata, e.g. circuit state.
	Details map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check was performed.
	Timestamp time.Time

	// Error is the error if the check failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result carrying the failure.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts an ordinary function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

package health

import (
	"context"
	"sync"
	"time"
)

// RegistryConfig configures the health registry.
type RegistryConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// Parallel runs health checks in parallel when true.
	// Default: true
	Parallel bool
}

// Registry aggregates per-dependency health checkers into a composite view.
type Registry struct {
	config   RegistryConfig
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string // registration order
}

// NewRegistry creates a new health registry.
func NewRegistry(config ...RegistryConfig) *Registry {
	cfg := RegistryConfig{
		Timeout:  10 * time.Second,
		Parallel: true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Registry{
		config:   cfg,
		checkers: make(map[string]Checker),
		order:    make([]string, 0),
	}
}

// Register adds a health checker under the given dependency name.
// Registering an existing name replaces its checker.
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checkers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checkers[name] = checker
}

// Unregister removes a health checker from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.checkers, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the registered dependency names in registration order.
func (r *Registry) CheckerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Check runs a single named health check.
func (r *Registry) Check(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	checker, ok := r.checkers[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	return r.runCheck(ctx, checker), nil
}

// CheckAll runs every registered health check and returns the results
// keyed by dependency name.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checkers := make(map[string]Checker, len(r.checkers))
	for name, checker := range r.checkers {
		checkers[name] = checker
	}
	r.mu.RUnlock()

	if len(checkers) == 0 {
		return make(map[string]Result)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))

	if r.config.Parallel {
		var wg sync.WaitGroup
		var mu sync.Mutex

		for name, checker := range checkers {
			wg.Add(1)
			go func(name string, checker Checker) {
				defer wg.Done()
				result := r.runCheck(ctx, checker)
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(name, checker)
		}

		wg.Wait()
	} else {
		for name, checker := range checkers {
			results[name] = r.runCheck(ctx, checker)
		}
	}

	return results
}

// OverallStatus computes the composite status from a set of results.
// Any unhealthy result makes the whole set unhealthy; otherwise any
// degraded result makes it degraded.
func (r *Registry) OverallStatus(results map[string]Result) Status {
	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (r *Registry) runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()

	resultCh := make(chan Result, 1)
	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}

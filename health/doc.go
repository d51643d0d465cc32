// Package health reports the health of guarded dependencies.
//
// A Checker is any component that can report its health status: Healthy,
// Degraded, or Unhealthy. The package ships a BreakerChecker that derives
// a dependency's health from its circuit breaker state, a Registry that
// aggregates checkers, and HTTP handlers for liveness and readiness probes.
//
// # Basic Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
//	check := health.NewBreakerChecker("billing-api", cb)
//
//	result := check.Check(ctx)
//	if result.Status == health.StatusUnhealthy {
//	    log.Printf("billing-api circuit open: %s", result.Message)
//	}
//
// # Aggregating Checks
//
//	reg := health.NewRegistry()
//	reg.Register("billing-api", health.NewBreakerChecker("billing-api", billingCB))
//	reg.Register("ledger-db", health.NewBreakerChecker("ledger-db", ledgerCB))
//
//	results := reg.CheckAll(ctx)
//	overall := reg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, reg)
//
// registers /healthz (liveness), /readyz (readiness) and /health (detailed
// JSON status per dependency).
package health

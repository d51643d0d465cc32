package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is failing fast without invoking operations.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of counted failures before opening.
	// Default: 5
	FailureThreshold int

	// RecoveryTime is the cool-down before a half-open probe is allowed.
	// Default: 30 seconds
	RecoveryTime time.Duration

	// ExcludedKinds are error kinds that never affect breaker health. The
	// breaker is fully transparent to them: no count, no transition.
	ExcludedKinds KindSet

	// Classify maps an error to its kind. Default: KindOf.
	Classify func(err error) Kind

	// OnStateChange is called, under the breaker lock, when the state changes.
	OnStateChange func(from, to State)
}

// CircuitBreaker implements the circuit breaker pattern around calls to a
// single unreliable dependency.
//
// A breaker is a long-lived supervisory object: create one per logical
// dependency and share it across callers. All bookkeeping is serialized
// behind an internal mutex; the wrapped operation itself runs outside the
// lock and may execute concurrently with other callers while closed.
//
// While half-open, exactly one trial call is admitted at a time; concurrent
// callers arriving during the trial are rejected with ErrCircuitOpen.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	trialInFlight bool
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTime <= 0 {
		config.RecoveryTime = 30 * time.Second
	}
	if config.Classify == nil {
		config.Classify = KindOf
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
//
// While open and inside the recovery window it returns ErrCircuitOpen without
// invoking the operation. Otherwise the operation's error, if any, is
// returned verbatim; the breaker only observes it.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	trial, err := cb.beforeCall()
	if err != nil {
		return err
	}

	err = op(ctx)
	cb.afterCall(trial, err)
	return err
}

// State returns the current circuit state. An open breaker whose recovery
// window has elapsed reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.RecoveryTime {
		return StateHalfOpen
	}
	return cb.state
}

// Snapshot contains externally observable circuit breaker statistics.
type Snapshot struct {
	State       State
	Failures    int
	LastFailure time.Time
}

// Snapshot returns the current breaker statistics for dashboards and alerts.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.state
	if state == StateOpen && time.Since(cb.lastFailure) >= cb.config.RecoveryTime {
		state = StateHalfOpen
	}

	return Snapshot{
		State:       state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
	}
}

// Reset forces the breaker back to closed and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	old := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.trialInFlight = false
	cb.notifyLocked(old, StateClosed)
}

// beforeCall decides whether the call may proceed. It reports whether the
// call was admitted as the half-open trial.
func (cb *CircuitBreaker) beforeCall() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.config.RecoveryTime {
			return false, ErrCircuitOpen
		}
		// Recovery window elapsed: this caller becomes the probe.
		cb.setStateLocked(StateHalfOpen)
		cb.trialInFlight = true
		return true, nil

	case StateHalfOpen:
		if cb.trialInFlight {
			return false, ErrCircuitOpen
		}
		cb.trialInFlight = true
		return true, nil
	}

	return false, nil
}

// afterCall records the outcome of an admitted call.
func (cb *CircuitBreaker) afterCall(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
	}

	if err == nil {
		if trial {
			// Successful probe closes the circuit.
			cb.setStateLocked(StateClosed)
			cb.failures = 0
		}
		return
	}

	if cb.config.ExcludedKinds.Has(cb.config.Classify(err)) {
		// Excluded errors leave the breaker untouched.
		return
	}

	cb.failures++
	cb.lastFailure = time.Now()

	if trial {
		// A single failed probe reopens regardless of the threshold.
		cb.setStateLocked(StateOpen)
		return
	}
	if cb.state == StateClosed && cb.failures >= cb.config.FailureThreshold {
		cb.setStateLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	old := cb.state
	cb.state = state
	cb.notifyLocked(old, state)
}

func (cb *CircuitBreaker) notifyLocked(from, to State) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

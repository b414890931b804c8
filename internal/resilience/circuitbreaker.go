// Package resilience protects the pipeline from flaky engines.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a provider after repeated failures. [Group] orders several
// instances of the same provider type, each behind its own breaker, and
// routes a call to the first one that answers. [LLMFallback] and
// [STTFallback] are the provider-shaped wrappers the application uses.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// Defaults for zero-valued [CircuitBreakerConfig] fields. Transcription and
// summarisation calls are slow, so the breaker trips after fewer failures and
// waits longer than a typical RPC breaker.
const (
	DefaultMaxFailures  = 3
	DefaultResetTimeout = time.Minute
	DefaultHalfOpenMax  = 1
)

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels log lines and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before letting a probe
	// through.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close again.
	HalfOpenMax int

	// OnStateChange, if set, is called after every transition. It runs with
	// the breaker unlocked.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	halfOpenMax   int
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	probesInFlight  int
	probeSuccesses  int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-valued config fields
// take the package defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultHalfOpenMax
	}
	return &CircuitBreaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenMax:   cfg.HalfOpenMax,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
		state:         StateClosed,
	}
}

// Execute runs fn if the breaker allows it.
//
// Errors caused by ctx ending (cancellation or deadline) are returned but
// not counted as provider failures: a user aborting a long transcription
// says nothing about the engine's health.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)

	var from, to State
	cb.mu.Lock()
	from = cb.state
	switch {
	case err == nil:
		cb.onSuccess(probe)
	case ctx.Err() != nil:
		if probe {
			cb.probesInFlight--
		}
	default:
		cb.onFailure(probe)
	}
	to = cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

// admit decides whether a call may proceed and reports whether it is a
// half-open probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	from := cb.state
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			cb.mu.Unlock()
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probesInFlight = 0
		cb.probeSuccesses = 0
	}
	if cb.state == StateHalfOpen {
		if cb.probesInFlight+cb.probeSuccesses >= cb.halfOpenMax {
			cb.mu.Unlock()
			cb.notify(from, StateHalfOpen)
			return false, ErrCircuitOpen
		}
		cb.probesInFlight++
		probe = true
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return probe, nil
}

// onFailure must be called with cb.mu held.
func (cb *CircuitBreaker) onFailure(probe bool) {
	if probe {
		cb.probesInFlight--
		cb.trip()
		return
	}
	cb.consecutiveFail++
	if cb.state == StateClosed && cb.consecutiveFail >= cb.maxFailures {
		cb.trip()
	}
}

// onSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) onSuccess(probe bool) {
	if !probe {
		cb.consecutiveFail = 0
		return
	}
	cb.probesInFlight--
	cb.probeSuccesses++
	if cb.state == StateHalfOpen && cb.probeSuccesses >= cb.halfOpenMax {
		cb.state = StateClosed
		cb.consecutiveFail = 0
		cb.probeSuccesses = 0
	}
}

// trip must be called with cb.mu held.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.consecutiveFail = 0
	cb.probesInFlight = 0
	cb.probeSuccesses = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to {
		return
	}
	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "circuit breaker state changed",
		"name", cb.name, "from", from.String(), "to", to.String())
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// State returns the current [State]. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed].
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.consecutiveFail = 0
	cb.probesInFlight = 0
	cb.probeSuccesses = 0
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

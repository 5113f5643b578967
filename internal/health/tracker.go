package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Tracker manages per-endpoint circuit breakers. It provides thread-safe
// access to circuit breakers and exposes IsHealthyFunc closures for
// integration with the substituter chain.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	settings map[string]BreakerSettings
	defaults BreakerSettings
	logger   *zerolog.Logger
	mu       sync.RWMutex
}

// NewTracker creates a Tracker. Settings registered via Register apply to
// the named endpoint; unknown endpoints fall back to defaults.
func NewTracker(defaults BreakerSettings, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		settings: make(map[string]BreakerSettings),
		defaults: defaults,
		logger:   logger,
	}
}

// Register records per-endpoint breaker settings. Must be called before the
// first lookup against the endpoint to take effect.
func (t *Tracker) Register(endpoint string, cfg BreakerSettings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings[endpoint] = cfg
}

// GetOrCreateCircuit returns the circuit breaker for an endpoint, creating
// it lazily on first use.
func (t *Tracker) GetOrCreateCircuit(endpoint string) *CircuitBreaker {
	// Fast path: check if circuit exists with read lock
	t.mu.RLock()
	cb, exists := t.circuits[endpoint]
	t.mu.RUnlock()

	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists = t.circuits[endpoint]; exists {
		return cb
	}

	cfg, ok := t.settings[endpoint]
	if !ok {
		cfg = t.defaults
	}
	cb = NewCircuitBreaker(endpoint, cfg, t.logger)
	t.circuits[endpoint] = cb

	if t.logger != nil {
		t.logger.Debug().
			Str("endpoint", endpoint).
			Msg("created circuit breaker")
	}

	return cb
}

// IsHealthyFunc returns a closure that checks if an endpoint is healthy.
//
// An endpoint is considered healthy if its circuit is:
//   - CLOSED: normal operation, lookups flow through
//   - HALF-OPEN: testing recovery, probe lookups are allowed
//
// An endpoint is unhealthy only if the circuit is OPEN.
func (t *Tracker) IsHealthyFunc(endpoint string) func() bool {
	return func() bool {
		cb := t.GetOrCreateCircuit(endpoint)
		return cb.State() != StateOpen
	}
}

// GetState returns the current state of an endpoint's circuit breaker.
// Returns StateClosed if no circuit exists yet (healthy by default).
func (t *Tracker) GetState(endpoint string) State {
	t.mu.RLock()
	cb, exists := t.circuits[endpoint]
	t.mu.RUnlock()

	if !exists {
		return StateClosed
	}
	return cb.State()
}

// RecordSuccess records a successful lookup for an endpoint.
func (t *Tracker) RecordSuccess(endpoint string) {
	cb := t.GetOrCreateCircuit(endpoint)
	cb.ReportSuccess()

	if t.logger != nil {
		t.logger.Debug().
			Str("endpoint", endpoint).
			Str("state", cb.State().String()).
			Msg("recorded success")
	}
}

// RecordFailure records a failed lookup for an endpoint.
func (t *Tracker) RecordFailure(endpoint string, err error) {
	cb := t.GetOrCreateCircuit(endpoint)
	cb.ReportFailure(err)

	if t.logger != nil {
		t.logger.Debug().
			Str("endpoint", endpoint).
			Str("state", cb.State().String()).
			Err(err).
			Msg("recorded failure")
	}
}

// AllStates returns a snapshot of all endpoint circuit states, keyed by
// endpoint name. Used by the status command.
func (t *Tracker) AllStates() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]State, len(t.circuits))
	for name, cb := range t.circuits {
		states[name] = cb.State()
	}
	return states
}

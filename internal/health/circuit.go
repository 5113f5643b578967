// Package health tracks the availability of binary cache endpoints.
//
// Each configured substituter gets a circuit breaker (CLOSED -> OPEN ->
// HALF-OPEN -> CLOSED). Lookups against an endpoint that keeps failing are
// short-circuited until the breaker's open window elapses, so a dead cache
// does not stall every resolution.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// DefaultHalfOpenProbes is the number of probe lookups allowed while a
// breaker is half-open.
const DefaultHalfOpenProbes = 3

// BreakerSettings configures a single endpoint breaker.
type BreakerSettings struct {
	// FailureThreshold is the consecutive-failure count that opens
	// the circuit.
	FailureThreshold int

	// OpenDuration is how long the circuit stays open before
	// transitioning to half-open.
	OpenDuration time.Duration

	// HalfOpenProbes is the number of probes allowed in half-open state.
	// Zero means DefaultHalfOpenProbes.
	HalfOpenProbes int
}

// CircuitBreaker wraps sony/gobreaker TwoStepCircuitBreaker for endpoint
// health tracking.
type CircuitBreaker struct {
	cb   *gobreaker.TwoStepCircuitBreaker[struct{}]
	name string
}

// NewCircuitBreaker creates a CircuitBreaker for the named endpoint.
func NewCircuitBreaker(name string, cfg BreakerSettings, logger *zerolog.Logger) *CircuitBreaker {
	probes := cfg.HalfOpenProbes
	if probes <= 0 {
		probes = DefaultHalfOpenProbes
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(probes), //nolint:gosec // validated positive above
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) //nolint:gosec // validated positive above
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger == nil {
				return
			}
			event := logger.Info()
			if to == gobreaker.StateOpen {
				event = logger.Warn()
			}
			event.
				Str("endpoint", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewTwoStepCircuitBreaker[struct{}](settings),
		name: name,
	}
}

// Allow checks if a lookup is allowed through the circuit breaker.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return d, nil
}

// State returns the current circuit breaker state.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Name returns the circuit breaker's name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// ReportSuccess reports a successful lookup to the circuit breaker.
// Returns true if the success was recorded, false if skipped.
//
// When the circuit is OPEN, gobreaker blocks all requests via Allow(),
// so successes cannot be recorded until the open window expires.
func (c *CircuitBreaker) ReportSuccess() bool {
	done, err := c.Allow()
	if err != nil {
		return false
	}
	done(nil)
	return true
}

// ReportFailure reports a failed lookup to the circuit breaker.
// Returns true if the failure was recorded, false if skipped.
func (c *CircuitBreaker) ReportFailure(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}

// ShouldCountAsFailure decides whether a cache response counts against the
// breaker. Cache misses (404) are normal operation, not endpoint failures.
func ShouldCountAsFailure(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return statusCode >= 500 || statusCode == 429
}

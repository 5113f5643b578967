package health

import "time"

// NewTestBreaker builds a breaker for a test endpoint with the given
// threshold, open duration in milliseconds, and half-open probes.
func NewTestBreaker(threshold, openMS, probes int) *CircuitBreaker {
	return NewCircuitBreaker("test-endpoint", BreakerSettings{
		FailureThreshold: threshold,
		OpenDuration:     time.Duration(openMS) * time.Millisecond,
		HalfOpenProbes:   probes,
	}, nil)
}

// HasCircuits returns whether the circuits map is initialized (for testing).
func (t *Tracker) HasCircuits() bool {
	return t.circuits != nil
}

package health

import "errors"

// Sentinel errors for endpoint health tracking.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and
	// rejecting lookups.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrEndpointUnhealthy is returned when an endpoint is marked as
	// unhealthy.
	ErrEndpointUnhealthy = errors.New("health: endpoint is unhealthy")
)

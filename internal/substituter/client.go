package substituter

import (
	"context"
	"errors"
	"io"
)

// Lookup and fetch errors.
var (
	// ErrNotFound is returned when an endpoint does not have the artifact.
	// A miss is normal operation, not an endpoint failure.
	ErrNotFound = errors.New("substituter: artifact not found")

	// ErrNoEndpoints is returned when no substituters are configured.
	ErrNoEndpoints = errors.New("substituter: no endpoints configured")

	// ErrAllEndpointsUnhealthy is returned when every endpoint's circuit
	// is open.
	ErrAllEndpointsUnhealthy = errors.New("substituter: all endpoints unhealthy")
)

// Client queries one binary cache endpoint.
// All implementations are safe for concurrent use.
type Client interface {
	// Name returns the endpoint name for logs and status output.
	Name() string

	// Lookup fetches the narinfo for a store hash.
	// Returns ErrNotFound when the endpoint does not carry the artifact.
	Lookup(ctx context.Context, storeHash string) (*NarInfo, error)

	// FetchNar streams the artifact named by a narinfo URL.
	// The caller must close the returned reader.
	FetchNar(ctx context.Context, narURL string) (io.ReadCloser, error)
}

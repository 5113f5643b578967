package substituter

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// raceTimeout bounds the parallel race across endpoints.
const raceTimeout = 30 * time.Second

// lookupResult carries one endpoint's answer in a parallel race.
type lookupResult struct {
	info *NarInfo
	err  error
	name string
}

// Chain queries endpoints in manifest declaration order.
//
// Lookup walks the chain sequentially: a miss moves to the next endpoint,
// an unhealthy endpoint is skipped. LookupRace queries every healthy
// endpoint in parallel and returns the first hit; RacingChain exposes it
// under the sequential signature for manifests that set
// provision.lookup_race.
type Chain struct {
	clients   []Client
	isHealthy func(name string) bool
}

// NewChain builds a chain over the given clients. isHealthy filters
// endpoints before each lookup; nil means all endpoints are considered
// healthy.
func NewChain(clients []Client, isHealthy func(name string) bool) *Chain {
	if isHealthy == nil {
		isHealthy = func(string) bool { return true }
	}
	return &Chain{clients: clients, isHealthy: isHealthy}
}

// Names returns the endpoint names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.clients))
	for i, client := range c.clients {
		names[i] = client.Name()
	}
	return names
}

// healthy returns the clients whose circuits are not open.
func (c *Chain) healthy() []Client {
	out := make([]Client, 0, len(c.clients))
	for _, client := range c.clients {
		if c.isHealthy(client.Name()) {
			out = append(out, client)
		}
	}
	return out
}

// Lookup tries each healthy endpoint in order and returns the first hit.
// Returns ErrNotFound when every endpoint misses, or the last transport
// error when no endpoint could answer.
func (c *Chain) Lookup(ctx context.Context, storeHash string) (*NarInfo, string, error) {
	if len(c.clients) == 0 {
		return nil, "", ErrNoEndpoints
	}

	healthy := c.healthy()
	if len(healthy) == 0 {
		return nil, "", ErrAllEndpointsUnhealthy
	}

	var lastErr error
	missed := false
	for _, client := range healthy {
		info, err := client.Lookup(ctx, storeHash)
		switch {
		case err == nil:
			return info, client.Name(), nil
		case errors.Is(err, ErrNotFound):
			missed = true
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, "", err
		default:
			lastErr = err
		}
	}

	if missed && lastErr == nil {
		return nil, "", ErrNotFound
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", ErrNotFound
}

// LookupRace queries all healthy endpoints in parallel and returns the
// first hit, canceling the rest. Misses and failures only surface when
// every endpoint has answered.
func (c *Chain) LookupRace(ctx context.Context, storeHash string) (*NarInfo, string, error) {
	if len(c.clients) == 0 {
		return nil, "", ErrNoEndpoints
	}

	healthy := c.healthy()
	if len(healthy) == 0 {
		return nil, "", ErrAllEndpointsUnhealthy
	}
	if len(healthy) == 1 {
		info, err := healthy[0].Lookup(ctx, storeHash)
		return info, healthy[0].Name(), err
	}

	raceCtx, cancel := context.WithTimeout(ctx, raceTimeout)
	defer cancel()

	resultCh := make(chan lookupResult, len(healthy))

	var wg sync.WaitGroup
	for _, client := range healthy {
		wg.Add(1)
		go func(client Client) {
			defer wg.Done()

			info, err := client.Lookup(raceCtx, storeHash)
			select {
			case resultCh <- lookupResult{info: info, err: err, name: client.Name()}:
			case <-raceCtx.Done():
			}
		}(client)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var lastErr error
	for result := range resultCh {
		if result.err == nil {
			cancel() // Cancel other attempts
			return result.info, result.name, nil
		}
		if !errors.Is(result.err, ErrNotFound) {
			lastErr = result.err
		}
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", ErrNotFound
}

// FetchNar streams the artifact from the named endpoint, which must be one
// returned by a prior Lookup.
func (c *Chain) FetchNar(ctx context.Context, endpoint, narURL string) (io.ReadCloser, error) {
	for _, client := range c.clients {
		if client.Name() == endpoint {
			return client.FetchNar(ctx, narURL)
		}
	}
	return nil, ErrNoEndpoints
}

// RacingChain is a view of a Chain whose Lookup fans out to every healthy
// endpoint in parallel. It trades endpoint ordering for latency; enabled
// per manifest via provision.lookup_race.
type RacingChain struct {
	*Chain
}

func (r RacingChain) Lookup(ctx context.Context, storeHash string) (*NarInfo, string, error) {
	return r.Chain.LookupRace(ctx, storeHash)
}

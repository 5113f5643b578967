package substituter

import (
	"context"
	"time"

	"github.com/devrig/devrig/internal/health"
	"github.com/devrig/devrig/internal/plancache"
)

// New creates a client for one endpoint based on its kind.
func New(ctx context.Context, cfg EndpointConfig, tracker *health.Tracker) (Client, error) {
	switch cfg.GetKind() {
	case KindS3:
		return NewS3Client(ctx, cfg, tracker)
	default:
		return NewHTTPClient(cfg, tracker)
	}
}

// NewChainFromConfig builds the full lookup chain for a manifest's
// substituter list: one client per endpoint, each wrapped with narinfo
// caching, filtered by the tracker's health view.
func NewChainFromConfig(
	ctx context.Context,
	endpoints []EndpointConfig,
	tracker *health.Tracker,
	cache plancache.Cache,
	narInfoTTL time.Duration,
) (*Chain, error) {
	clients := make([]Client, 0, len(endpoints))
	for _, cfg := range endpoints {
		client, err := New(ctx, cfg, tracker)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			client = NewCachedClient(client, cache, narInfoTTL)
		}
		clients = append(clients, client)

		log := logger()
		log.Debug().
			Str("endpoint", cfg.Name).
			Str("kind", cfg.GetKind()).
			Msg("configured substituter")
	}

	var isHealthy func(string) bool
	if tracker != nil {
		isHealthy = func(name string) bool {
			return tracker.GetState(name) != health.StateOpen
		}
	}
	return NewChain(clients, isHealthy), nil
}

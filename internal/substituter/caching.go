package substituter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/devrig/devrig/internal/plancache"
)

// CachedClient decorates a Client with plancache-backed narinfo caching.
// In team mode every developer's lookups warm one shared cache.
//
// Only positive results are cached; a miss today may be a hit after the
// next upstream build, so ErrNotFound is never stored.
type CachedClient struct {
	inner Client
	cache plancache.Cache
	ttl   time.Duration
}

// NewCachedClient wraps inner with narinfo caching.
func NewCachedClient(inner Client, cache plancache.Cache, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = plancache.DefaultNarInfoTTL
	}
	return &CachedClient{inner: inner, cache: cache, ttl: ttl}
}

// Name returns the wrapped endpoint name.
func (c *CachedClient) Name() string {
	return c.inner.Name()
}

// Lookup consults the cache before the endpoint. Cache errors degrade to
// a direct lookup; a flaky cache must not break substitution.
func (c *CachedClient) Lookup(ctx context.Context, storeHash string) (*NarInfo, error) {
	key := c.cacheKey(storeHash)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var info NarInfo
		if jsonErr := json.Unmarshal(data, &info); jsonErr == nil {
			log := logger()
			log.Debug().
				Str("endpoint", c.Name()).
				Str("hash", storeHash).
				Msg("narinfo cache hit")
			return &info, nil
		}
		// Corrupt entry; drop it and fall through to the endpoint.
		_ = c.cache.Delete(ctx, key)
	} else if !errors.Is(err, plancache.ErrNotFound) && !errors.Is(err, plancache.ErrClosed) {
		log := logger()
		log.Warn().Err(err).Msg("narinfo cache read failed")
	}

	info, err := c.inner.Lookup(ctx, storeHash)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(info); jsonErr == nil {
		if setErr := c.cache.SetWithTTL(ctx, key, data, c.ttl); setErr != nil && !errors.Is(setErr, plancache.ErrClosed) {
			log := logger()
			log.Warn().Err(setErr).Msg("narinfo cache write failed")
		}
	}
	return info, nil
}

// FetchNar delegates to the wrapped endpoint; artifacts are not cached.
func (c *CachedClient) FetchNar(ctx context.Context, narURL string) (io.ReadCloser, error) {
	return c.inner.FetchNar(ctx, narURL)
}

// cacheKey namespaces entries per endpoint so two caches carrying the same
// hash with different artifact URLs never collide.
func (c *CachedClient) cacheKey(storeHash string) string {
	return plancache.NarInfoKey(c.Name() + ":" + storeHash)
}

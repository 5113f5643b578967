package plancache

import (
	"context"
	"sync/atomic"
	"time"
)

// noopCache stores nothing. Writes succeed, reads miss.
type noopCache struct {
	closed atomic.Bool
}

func newNoopCache() *noopCache {
	log := logger()
	log.Debug().Msg("caching disabled")
	return &noopCache{}
}

func (c *noopCache) Get(_ context.Context, _ string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return nil, ErrNotFound
}

func (c *noopCache) Set(_ context.Context, _ string, _ []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *noopCache) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *noopCache) Delete(_ context.Context, _ string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *noopCache) Exists(_ context.Context, _ string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	return false, nil
}

func (c *noopCache) Close() error {
	c.closed.Store(true)
	return nil
}

var _ Cache = (*noopCache)(nil)

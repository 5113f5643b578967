// Package plancache caches resolved plans and substituter lookup results.
//
// Three backends are available:
//   - Single mode (Ristretto): local in-memory cache for one developer
//   - Team mode (Olric): distributed cache shared across a team, so one
//     machine's substituter lookups benefit everyone
//   - Disabled mode (Noop): passthrough when caching is off
//
// All implementations are safe for concurrent use. Values are opaque bytes;
// callers encode plans and narinfo records as JSON before storing them.
package plancache

import (
	"context"
	"time"
)

// Key namespaces. Keys are flat strings, prefixed so plan entries and
// substituter lookups never collide in a shared team cache.
const (
	planPrefix    = "plan:"
	narInfoPrefix = "narinfo:"
)

// PlanKey returns the cache key for a resolved plan digest.
func PlanKey(digest string) string {
	return planPrefix + digest
}

// NarInfoKey returns the cache key for a substituter lookup by store hash.
func NarInfoKey(storeHash string) string {
	return narInfoPrefix + storeHash
}

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on a miss and ErrClosed
	// after Close.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with no expiration.
	Set(ctx context.Context, key string, value []byte) error

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases backend resources. Close is idempotent; all later
	// operations return ErrClosed.
	Close() error
}

// Stats describes cache effectiveness for `devrig status`.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	BytesUsed uint64 `json:"bytes_used"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by backends that track statistics.
type StatsProvider interface {
	Stats() Stats
}

// Pinger is implemented by backends with a remote component. Local backends
// always report healthy.
type Pinger interface {
	Ping(ctx context.Context) error
}

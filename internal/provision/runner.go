// Package provision materializes a resolved plan on the host: substitute
// prebuilt artifacts where a binary cache has them, build the rest, link
// everything into the profile, and record a generation.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/devrig/devrig/internal/substituter"
)

// Runner executes the store-level operations for one package. The
// provisioner decides what to do; the runner does it. Implementations
// must be safe for concurrent use, one call per package at a time.
type Runner interface {
	// Substitute unpacks a prebuilt artifact fetched from the named
	// endpoint into the store.
	Substitute(ctx context.Context, pkg string, info *substituter.NarInfo, endpoint string) error

	// Build realizes the package from source.
	Build(ctx context.Context, pkg string) error

	// Link exposes the package in the profile directory.
	Link(ctx context.Context, pkg, profileDir string) error
}

// StoreHash derives the cache lookup hash for a package at a given plan
// digest. Pinning the digest into the hash means a plan change invalidates
// prior lookups without any explicit cache flush.
func StoreHash(pkg, planDigest string) string {
	sum := sha256.Sum256([]byte(pkg + "\x00" + planDigest))
	return hex.EncodeToString(sum[:16])
}

// Package ratelimit provides rate limiting for binary cache traffic.
//
// Lookups against a substituter are limited in two dimensions:
//   - RPS (requests per second): narinfo and artifact lookups
//   - BPS (bytes per second): download bandwidth
//
// Basic usage:
//
//	limiter := ratelimit.NewTokenBucketLimiter(50, 10<<20) // 50 RPS, 10 MiB/s
//
//	if !limiter.Allow(ctx) {
//		return ErrRateLimitExceeded
//	}
//
//	// Record actual bytes after the download completes
//	err := limiter.ConsumeBytes(ctx, n)
package ratelimit

import (
	"context"
	"errors"
)

// Common errors returned by rate limiters.
var (
	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	// ErrContextCancelled is returned when the context is canceled during a blocking operation.
	ErrContextCancelled = errors.New("ratelimit: context canceled")
)

// Usage represents the current usage and limits for a rate limiter.
type Usage struct {
	// RequestsUsed is the number of requests consumed in the current window.
	RequestsUsed int `json:"requests_used"`

	// RequestsLimit is the maximum number of requests allowed per second.
	RequestsLimit int `json:"requests_limit"`

	// BytesUsed is the number of bytes consumed in the current window.
	BytesUsed int `json:"bytes_used"`

	// BytesLimit is the maximum number of bytes allowed per second.
	BytesLimit int `json:"bytes_limit"`

	// RequestsRemaining is the number of requests remaining in the current window.
	RequestsRemaining int `json:"requests_remaining"`

	// BytesRemaining is the number of bytes remaining in the current window.
	BytesRemaining int `json:"bytes_remaining"`
}

// RateLimiter defines the interface for per-endpoint rate limiting.
// All implementations must be safe for concurrent use.
//
// Typical workflow:
//  1. Call Allow() or Wait() before issuing a lookup
//  2. Optionally call Reserve() with the expected artifact size
//  3. After the download, call ConsumeBytes() with the actual size
type RateLimiter interface {
	// Allow checks if a lookup is allowed under the current rate limits.
	// This is a non-blocking operation that returns immediately.
	Allow(ctx context.Context) bool

	// Wait blocks until a lookup is allowed or the context is canceled.
	// Returns ErrContextCancelled if the context is canceled before
	// capacity is available.
	Wait(ctx context.Context) error

	// SetLimit updates the rate limits dynamically.
	// rps: requests per second limit (0 = unlimited)
	// bps: bytes per second limit (0 = unlimited)
	SetLimit(rps, bps int)

	// GetUsage returns the current usage statistics.
	GetUsage() Usage

	// Reserve checks whether the given byte count could be consumed now.
	// Non-blocking optimistic check; consumption happens via ConsumeBytes.
	Reserve(bytes int) bool

	// ConsumeBytes records actual download size after a fetch completes.
	// Blocks if consuming would exceed the BPS limit.
	// Returns ErrContextCancelled if the context is canceled while waiting.
	ConsumeBytes(ctx context.Context, bytes int) error
}

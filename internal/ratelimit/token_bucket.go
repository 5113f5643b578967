package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements RateLimiter using golang.org/x/time/rate.
//
// It uses two separate token bucket limiters:
//   - requestLimiter: tracks lookups per second (RPS)
//   - byteLimiter: tracks download bytes per second (BPS)
//
// Burst is set equal to the limit so a full second's capacity can be
// consumed instantly, then refills gradually.
//
// Thread safety: all methods are safe for concurrent use.
type TokenBucketLimiter struct {
	requestLimiter *rate.Limiter
	byteLimiter    *rate.Limiter
	rpsLimit       int
	bpsLimit       int
	mu             sync.RWMutex // Protects limit fields and limiter updates
}

const unlimitedRate = 1_000_000_000

// NewTokenBucketLimiter creates a token bucket rate limiter.
//
// Parameters:
//   - rps: lookups per second limit (0 or negative = unlimited)
//   - bps: bytes per second limit (0 or negative = unlimited)
func NewTokenBucketLimiter(rps, bps int) *TokenBucketLimiter {
	if rps <= 0 {
		rps = unlimitedRate
	}
	if bps <= 0 {
		bps = unlimitedRate
	}

	return &TokenBucketLimiter{
		requestLimiter: rate.NewLimiter(rate.Limit(rps), rps),
		byteLimiter:    rate.NewLimiter(rate.Limit(bps), bps),
		rpsLimit:       rps,
		bpsLimit:       bps,
	}
}

// Allow checks if a lookup is allowed under the current RPS limit.
// Non-blocking; byte consumption is handled separately via ConsumeBytes.
func (l *TokenBucketLimiter) Allow(_ context.Context) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.requestLimiter.Allow()
}

// Wait blocks until a lookup is allowed or the context is canceled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.requestLimiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}

// SetLimit updates the rate limits dynamically, for example from
// Retry-After or bandwidth hints in cache responses.
// Zero or negative values are treated as unlimited.
func (l *TokenBucketLimiter) SetLimit(rps, bps int) {
	if rps <= 0 {
		rps = unlimitedRate
	}
	if bps <= 0 {
		bps = unlimitedRate
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.requestLimiter = rate.NewLimiter(rate.Limit(rps), rps)
	l.byteLimiter = rate.NewLimiter(rate.Limit(bps), bps)
	l.rpsLimit = rps
	l.bpsLimit = bps
}

// GetUsage returns the current usage statistics.
//
// golang.org/x/time/rate doesn't expose remaining tokens directly; we
// approximate from the limiter's token count. Accurate enough for status
// output and endpoint ordering.
func (l *TokenBucketLimiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	requestsRemaining := clampUsage(int(l.requestLimiter.Tokens()), l.rpsLimit)
	bytesRemaining := clampUsage(int(l.byteLimiter.Tokens()), l.bpsLimit)

	return Usage{
		RequestsUsed:      l.rpsLimit - requestsRemaining,
		RequestsLimit:     l.rpsLimit,
		BytesUsed:         l.bpsLimit - bytesRemaining,
		BytesLimit:        l.bpsLimit,
		RequestsRemaining: requestsRemaining,
		BytesRemaining:    bytesRemaining,
	}
}

func clampUsage(remaining, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}

// Reserve checks if the given byte count could be consumed now.
// The reservation is canceled immediately; actual consumption happens
// via ConsumeBytes after the download.
func (l *TokenBucketLimiter) Reserve(bytes int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	reservation := l.byteLimiter.ReserveN(time.Now(), bytes)
	if !reservation.OK() {
		return false
	}
	reservation.Cancel()
	return true
}

// ConsumeBytes records actual download size after a fetch completes.
// Blocks if consuming would exceed the BPS limit.
//
// WaitN rejects requests larger than the burst, and burst equals the
// per-second limit, so artifacts bigger than one second of bandwidth
// drain the bucket in burst-sized chunks instead of failing outright.
func (l *TokenBucketLimiter) ConsumeBytes(ctx context.Context, bytes int) error {
	l.mu.RLock()
	limiter := l.byteLimiter
	unlimited := l.bpsLimit >= unlimitedRate
	l.mu.RUnlock()

	if unlimited || bytes <= 0 {
		return nil
	}

	burst := limiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := limiter.WaitN(ctx, n); err != nil {
			if ctx.Err() != nil {
				return ErrContextCancelled
			}
			return err
		}
		bytes -= n
	}
	return nil
}

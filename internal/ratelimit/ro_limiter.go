// This file provides reactive rate limiting using samber/ro.
//
// Reactive rate limiting is an alternative to TokenBucket for stream
// processing: the provision journal emits event streams, and consumers
// (log sinks, status displays) throttle them with these operators.
// Use TokenBucket for synchronous lookup/download paths.
package ratelimit

import (
	"time"

	"github.com/samber/ro"
	roratelimit "github.com/samber/ro/plugins/ratelimit/native"
)

// ROLimiterConfig holds configuration for reactive rate limiting.
type ROLimiterConfig struct {
	// Count is the maximum number of items allowed per interval.
	Count int64

	// Interval is the time window for rate limiting.
	// Defaults to time.Second if zero.
	Interval time.Duration
}

// DefaultInterval is the default rate limit interval.
const DefaultInterval = time.Second

// normalizeInterval returns the interval, defaulting to DefaultInterval if zero.
func normalizeInterval(interval time.Duration) time.Duration {
	if interval == 0 {
		return DefaultInterval
	}
	return interval
}

// Limit applies rate limiting to an observable stream using the ro native
// plugin. Items exceeding the rate limit are delayed (backpressure).
//
// The keyGetter function extracts a key from each item; items with the
// same key share a bucket. Use an empty string key for global limiting.
//
// Example:
//
//	// Rate limit journal events per package
//	limited := ratelimit.Limit(events, 10, time.Second, func(e Event) string {
//	    return e.Package
//	})
func Limit[T any](
	source ro.Observable[T],
	count int64,
	interval time.Duration,
	keyGetter func(T) string,
) ro.Observable[T] {
	return ro.Pipe1(
		source,
		roratelimit.NewRateLimiter[T](count, normalizeInterval(interval), keyGetter),
	)
}

// LimitGlobal applies a global rate limit to all items in the stream.
// All items share a single bucket.
func LimitGlobal[T any](
	source ro.Observable[T],
	count int64,
	interval time.Duration,
) ro.Observable[T] {
	return Limit(source, count, interval, func(_ T) string { return "" })
}

// LimitWithConfig applies rate limiting using an ROLimiterConfig.
func LimitWithConfig[T any](
	source ro.Observable[T],
	cfg ROLimiterConfig,
	keyGetter func(T) string,
) ro.Observable[T] {
	return Limit(source, cfg.Count, cfg.Interval, keyGetter)
}

// NewLimitOperator creates a reusable rate limiter operator, for applying
// the same limit to multiple streams.
func NewLimitOperator[T any](
	count int64,
	interval time.Duration,
	keyGetter func(T) string,
) func(ro.Observable[T]) ro.Observable[T] {
	return roratelimit.NewRateLimiter[T](count, normalizeInterval(interval), keyGetter)
}

// NewGlobalLimitOperator creates a reusable global rate limiter operator.
func NewGlobalLimitOperator[T any](
	count int64,
	interval time.Duration,
) func(ro.Observable[T]) ro.Observable[T] {
	return NewLimitOperator[T](count, interval, func(_ T) string { return "" })
}

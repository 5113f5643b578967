package journal

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/ro"
	rozerolog "github.com/samber/ro/plugins/observability/zerolog"

	"github.com/devrig/devrig/internal/ratelimit"
)

// Throttled caps an event stream at maxPerSecond, delaying excess events.
// Verbose provisioning output and the watch command run their streams
// through this so a burst of lookups does not flood the terminal.
func Throttled(source ro.Observable[Event], maxPerSecond int64) ro.Observable[Event] {
	return ratelimit.LimitGlobal(source, maxPerSecond, time.Second)
}

// OnlyKind filters a stream to events of one kind.
func OnlyKind(source ro.Observable[Event], kind Kind) ro.Observable[Event] {
	return ro.Pipe1(source, ro.Filter(func(ev Event) bool {
		return ev.Kind == kind
	}))
}

// PerPackage throttles a stream per package, so one noisy build cannot
// starve events about the rest of the plan.
func PerPackage(source ro.Observable[Event], maxPerSecond int64) ro.Observable[Event] {
	return ratelimit.Limit(source, maxPerSecond, time.Second, func(ev Event) string {
		return ev.Package
	})
}

// Logged emits each event through the zerolog plugin at the given level
// without modifying the stream.
func Logged(source ro.Observable[Event], logger *zerolog.Logger, level zerolog.Level) ro.Observable[Event] {
	return ro.Pipe1(source, rozerolog.Log[Event](logger, level))
}

// Batched groups events into slices of up to count, flushing at least
// every interval. Used by the status display to repaint once per batch.
func Batched(source ro.Observable[Event], count int, interval time.Duration) ro.Observable[[]Event] {
	return ro.Pipe1(source, ro.BufferWithTimeOrCount[Event](count, interval))
}

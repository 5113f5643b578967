// Package journal records provisioning activity as an event stream.
//
// Events flow two ways: a bounded lock-free ring buffers recent events for
// drain-on-read consumers (the status command), and live subscribers get a
// reactive stream built on samber/ro. Publishing never blocks: slow
// subscribers drop events rather than stalling the provisioner.
package journal

import (
	"sync"
	"time"

	"github.com/samber/ro"

	"github.com/devrig/devrig/internal/lockfree"
)

// Kind classifies a journal event.
type Kind string

// Event kinds emitted by the provisioner and substituter chain.
const (
	KindLookup     Kind = "lookup"
	KindFetch      Kind = "fetch"
	KindBuild      Kind = "build"
	KindLink       Kind = "link"
	KindGeneration Kind = "generation"
	KindDrift      Kind = "drift"
	KindReload     Kind = "reload"
)

// Event is one provisioning occurrence.
type Event struct {
	Time       time.Time `json:"time"`
	Kind       Kind      `json:"kind"`
	Package    string    `json:"package,omitempty"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Generation string    `json:"generation,omitempty"`
	Message    string    `json:"message,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// DefaultCapacity is the ring capacity used when New is given zero.
const DefaultCapacity = 256

// subBuffer is the per-subscriber channel depth before events are dropped.
const subBuffer = 64

// Journal buffers and fans out provisioning events.
// All methods are safe for concurrent use.
type Journal struct {
	recent *lockfree.Ring[Event]

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// New creates a Journal retaining up to capacity recent events.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{
		recent: lockfree.NewRing[Event](capacity),
		subs:   make(map[int]chan Event),
	}
}

// Publish records an event. A zero Time is stamped with the current time.
// When the ring is full the oldest event is dropped to make room.
func (j *Journal) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	for !j.recent.Push(ev) {
		j.recent.Pop()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	for _, ch := range j.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; drop rather than block the publisher.
		}
	}
}

// Drain removes and returns all buffered events in arrival order.
// Live subscriptions are unaffected.
func (j *Journal) Drain() []Event {
	var out []Event
	for {
		ev, ok := j.recent.Pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

// Subscribe returns a live observable of future events plus a cancel
// function. Cancel must be called to release the subscription.
func (j *Journal) Subscribe() (ro.Observable[Event], func()) {
	ch := make(chan Event, subBuffer)

	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		close(ch)
		return ro.FromChannel(ch), func() {}
	}
	id := j.nextID
	j.nextID++
	j.subs[id] = ch
	j.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			j.mu.Lock()
			if _, ok := j.subs[id]; ok {
				delete(j.subs, id)
				close(ch)
			}
			j.mu.Unlock()
		})
	}
	return ro.FromChannel(ch), cancel
}

// Close completes all live subscriptions. Publish becomes a ring-only
// operation afterward. Close is idempotent.
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.closed = true
	for id, ch := range j.subs {
		delete(j.subs, id)
		close(ch)
	}
}

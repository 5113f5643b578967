package lockfree

import "sync/atomic"

// Ring is a bounded lock-free MPMC ring buffer. Each slot carries a
// sequence counter so producers and consumers claim slots with a single
// CAS on the shared cursors and never touch a slot out of turn.
//
// Capacity is rounded up to the next power of two so index wrapping is a
// mask instead of a modulo.
type Ring[T any] struct {
	slots []ringSlot[T]
	mask  uint64
	enq   atomic.Uint64
	deq   atomic.Uint64
}

type ringSlot[T any] struct {
	seq   atomic.Uint64
	value T
}

// NewRing creates a ring buffer holding at least capacity elements.
// Panics if capacity is not positive; a zero-capacity ring is a
// programming error, not a runtime condition.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("lockfree: ring capacity must be positive")
	}

	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}

	r := &Ring[T]{
		slots: make([]ringSlot[T], size),
		mask:  size - 1,
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Cap returns the ring's capacity (the rounded-up power of two).
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Len returns the approximate number of buffered elements.
func (r *Ring[T]) Len() int {
	enq := r.enq.Load()
	deq := r.deq.Load()
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}

// Push inserts a value. Returns false when the ring is full.
func (r *Ring[T]) Push(value T) bool {
	for {
		pos := r.enq.Load()
		slot := &r.slots[pos&r.mask]
		seq := slot.seq.Load()

		switch {
		case seq == pos:
			// Slot is free for this position; claim it.
			if r.enq.CompareAndSwap(pos, pos+1) {
				slot.value = value
				slot.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			// The slot still holds an unconsumed value one lap behind.
			return false
		default:
			// Another producer claimed this position; retry.
		}
	}
}

// Pop removes and returns the oldest value. The second return is false
// when the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	for {
		pos := r.deq.Load()
		slot := &r.slots[pos&r.mask]
		seq := slot.seq.Load()

		switch {
		case seq == pos+1:
			// Slot holds a published value for this position; claim it.
			if r.deq.CompareAndSwap(pos, pos+1) {
				value := slot.value
				var zero T
				slot.value = zero // Drop the reference for the GC.
				slot.seq.Store(pos + r.mask + 1)
				return value, true
			}
		case seq <= pos:
			var zero T
			return zero, false
		default:
			// Another consumer claimed this position; retry.
		}
	}
}

// Clear drains the ring, discarding all buffered elements.
func (r *Ring[T]) Clear() {
	for {
		if _, ok := r.Pop(); !ok {
			return
		}
	}
}

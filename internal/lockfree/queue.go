package lockfree

import "sync/atomic"

type queueNode[T any] struct {
	value T
	next  atomic.Pointer[queueNode[T]]
}

// Queue is an unbounded lock-free FIFO (Michael-Scott queue). head always
// points at a dummy node; the first real element is head.next.
type Queue[T any] struct {
	head atomic.Pointer[queueNode[T]]
	tail atomic.Pointer[queueNode[T]]
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	dummy := &queueNode[T]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends a value to the tail of the queue.
func (q *Queue[T]) Enqueue(value T) {
	n := &queueNode[T]{value: value}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail is lagging behind; help it forward and retry.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			// Swing tail to the new node. Failure is fine: another
			// enqueuer already helped.
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// Dequeue removes and returns the head value. The second return is false
// when the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				var zero T
				return zero, false
			}
			// Tail lagging at the dummy node; help it forward.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			return value, true
		}
	}
}

// Empty reports whether the queue had no elements at the time of the call.
func (q *Queue[T]) Empty() bool {
	head := q.head.Load()
	return head.next.Load() == nil
}

// Package lockfree provides lock-free data structures used by the
// provisioning pipeline: a Treiber stack, a Michael-Scott queue, and a
// bounded ring buffer. All types are safe for concurrent use without
// external locking. Node reclamation is left to the garbage collector,
// which also rules out ABA problems on the CAS loops.
package lockfree

import "sync/atomic"

type stackNode[T any] struct {
	value T
	next  *stackNode[T]
}

// Stack is an unbounded lock-free LIFO (Treiber stack).
// The zero value is an empty stack ready for use.
type Stack[T any] struct {
	head atomic.Pointer[stackNode[T]]
}

// Push adds a value to the top of the stack.
func (s *Stack[T]) Push(value T) {
	n := &stackNode[T]{value: value}
	for {
		head := s.head.Load()
		n.next = head
		if s.head.CompareAndSwap(head, n) {
			return
		}
	}
}

// Pop removes and returns the top value. The second return is false when
// the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		head := s.head.Load()
		if head == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(head, head.next) {
			return head.value, true
		}
	}
}

// Empty reports whether the stack had no elements at the time of the call.
func (s *Stack[T]) Empty() bool {
	return s.head.Load() == nil
}

package waitq

import "sync/atomic"

// node is a single queue link. next is nil at the tail.
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is an unbounded lock-free FIFO queue (Michael–Scott algorithm).
// Enqueue and Dequeue are safe under arbitrary concurrent use and never
// block; each enqueued value is delivered to exactly one dequeuer, in
// insertion order. The zero Queue is not usable; construct with New.
type Queue[T any] struct {
	head atomic.Pointer[node[T]] // sentinel; head.next is the oldest element
	tail atomic.Pointer[node[T]]
	size atomic.Int64
}

// New constructs an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	sentinel := &node[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue inserts v at the tail. It always succeeds.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail is lagging; help it forward and retry.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.size.Add(1)
			return
		}
	}
}

// Dequeue removes and returns the oldest value. The second result is false
// if the queue was observed empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			return zero, false
		}
		if head == tail {
			// Tail is lagging behind a concurrent enqueue.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		// Read the value before the CAS: after it another dequeuer may
		// advance past next and the node gets recycled by the GC.
		v := next.value
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			return v, true
		}
	}
}

// Len reports the approximate number of queued values. It is exact only
// when no operations are in flight; use it for monitoring, not decisions.
func (q *Queue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

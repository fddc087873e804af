// Package queue provides the bounded FIFO that holds each channel's pending signals.
package queue

import (
	"sync"
)

// DefaultMaxDepth is the per-channel queue depth.
const DefaultMaxDepth = 200

// Bounded is a thread-safe fixed-capacity ring buffer. When full, Push
// discards the oldest item so the queue favors freshness over completeness.
//
// TakeOldest is the only read primitive: there is no peek, index or
// iteration, so a consumer sees items exactly in arrival order and never
// observes the same slot twice.
type Bounded[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // read position
	tail  int // write position
	count int

	// Stats
	totalPushed  int64
	totalTaken   int64
	totalEvicted int64
}

// NewBounded creates a queue holding at most maxDepth items.
func NewBounded[T any](maxDepth int) *Bounded[T] {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Bounded[T]{
		buf: make([]T, maxDepth),
	}
}

// Push appends item at the tail. If the queue was full, the head is evicted
// and Push returns true.
func (q *Bounded[T]) Push(item T) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	capacity := len(q.buf)
	if q.count == capacity {
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % capacity
		q.count--
		q.totalEvicted++
		evicted = true
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % capacity
	q.count++
	q.totalPushed++

	return evicted
}

// TakeOldest removes and returns the head item. It returns the zero value and
// false when the queue is empty, without mutating state. It never blocks.
func (q *Bounded[T]) TakeOldest() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}

	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.totalTaken++

	return item, true
}

// Len returns the current number of items.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// MaxDepth returns the configured capacity.
func (q *Bounded[T]) MaxDepth() int {
	return len(q.buf)
}

// Stats returns queue statistics.
func (q *Bounded[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Depth:        q.count,
		MaxDepth:     len(q.buf),
		TotalPushed:  q.totalPushed,
		TotalTaken:   q.totalTaken,
		TotalEvicted: q.totalEvicted,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Depth        int
	MaxDepth     int
	TotalPushed  int64
	TotalTaken   int64
	TotalEvicted int64
}

package router

import (
	"context"
	"sync"
)

// growThreshold is the fill percentage at which a Queue doubles.
const growThreshold = 70

// Queue is an unbounded FIFO backed by a ring that doubles its capacity
// when it reaches 70% full. Send never blocks.
type Queue[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int
	count  int
	closed bool
	ready  chan struct{} // capacity 1; closed by Close

	received int64
	sent     int64
	resizes  int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue[T]{
		ring:  make([]T, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

// Send appends item. It returns false once the queue is closed.
func (q *Queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	limit := len(q.ring) * growThreshold / 100
	if limit < 1 {
		limit = 1
	}
	if q.count+1 >= limit {
		q.grow()
	}

	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.received++
	q.signal()
	return true
}

// Receive removes the oldest item, waiting until one is available. ok is
// false when the queue is closed and empty or ctx is done.
func (q *Queue[T]) Receive(ctx context.Context) (item T, ok bool) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			item = q.pop()
			if q.count > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return item, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return item, false
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return item, false
		}
	}
}

// TryReceive removes the oldest item without waiting.
func (q *Queue[T]) TryReceive() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return item, false
	}
	return q.pop(), true
}

// DrainTo removes up to max items (all when max <= 0) in order.
func (q *Queue[T]) DrainTo(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = q.pop()
	}
	return out
}

// Close stops accepting items. Receivers get what remains, then ok=false.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:         q.count,
		Capacity:      len(q.ring),
		TotalReceived: q.received,
		TotalSent:     q.sent,
		ResizeCount:   q.resizes,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// pop removes the head item. Must be called with lock held and count > 0.
func (q *Queue[T]) pop() T {
	var zero T
	item := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.sent++
	return item
}

// signal wakes one receiver. Must be called with lock held.
func (q *Queue[T]) signal() {
	if q.closed {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// grow doubles the ring, unwrapping it. Must be called with lock held.
func (q *Queue[T]) grow() {
	ring := make([]T, len(q.ring)*2)
	for i := 0; i < q.count; i++ {
		ring[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = ring
	q.head = 0
	q.resizes++
}

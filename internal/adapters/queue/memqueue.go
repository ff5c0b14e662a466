package queue

import (
	"sync"

	"github.com/ghalamif/AegisFeed/internal/domain"
	"github.com/ghalamif/AegisFeed/internal/ports"
)

// MemQueue is a bounded in-memory queue that preserves FIFO ordering.
type MemQueue[T any] struct {
	mu   sync.Mutex
	data []T
	cap  int
}

func NewMemQueue[T any](capacity int) *MemQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue[T]{
		data: make([]T, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, item)
	return true
}

func (q *MemQueue[T]) DequeueBatch(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]T, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

// PushFront puts items back ahead of everything queued, keeping their
// order. When that overflows the capacity the oldest items are dropped;
// it returns how many.
func (q *MemQueue[T]) PushFront(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.data))
	merged = append(merged, items...)
	merged = append(merged, q.data...)
	dropped := 0
	if len(merged) > q.cap {
		dropped = len(merged) - q.cap
		merged = merged[dropped:]
	}
	q.data = append(q.data[:0], merged...)
	return dropped
}

// Drain empties the queue and returns everything it held.
func (q *MemQueue[T]) Drain() []T {
	return q.DequeueBatch(0)
}

func (q *MemQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

func (q *MemQueue[T]) Cap() int { return q.cap }

var (
	_ ports.SnapshotQueue = (*MemQueue[ports.QueuedSnapshot])(nil)
	_ ports.CommandQueue  = (*MemQueue[domain.Command])(nil)
)

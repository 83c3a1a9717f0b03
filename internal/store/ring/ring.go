// Package ring provides the fixed-capacity sample buffer backing every
// stored series. One generic implementation serves both scalar and vector
// samples.
package ring

import (
	"sync"
	"sync/atomic"
)

// Item constrains buffer elements to types exposing their sample timestamp
// in unix milliseconds, which Range filtering needs.
type Item interface {
	UnixMs() int64
}

// Buffer is a thread-safe circular buffer with overwrite-on-full semantics.
// Capacity is fixed at construction; once full, each push evicts the oldest
// element, so retention is by sample count rather than wall clock.
type Buffer[T Item] struct {
	mu       sync.RWMutex
	data     []T
	head     int64 // Next write position
	count    int64 // Current number of elements
	capacity int64

	// Statistics
	pushCount atomic.Int64
	dropCount atomic.Int64
}

// New creates a Buffer with the given capacity. Capacities below one are
// clamped to one so a series can always hold its latest sample.
func New[T Item](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		data:     make([]T, capacity),
		capacity: int64(capacity),
	}
}

// Push appends an element, overwriting the oldest when full.
func (rb *Buffer[T]) Push(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count >= rb.capacity {
		rb.count--
		rb.dropCount.Add(1)
	}

	rb.data[rb.head%rb.capacity] = item
	rb.head++
	rb.count++
	rb.pushCount.Add(1)
}

// Snapshot returns all elements in insertion order, oldest to newest.
func (rb *Buffer[T]) Snapshot() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	result := make([]T, rb.count)
	start := rb.head - rb.count
	for i := int64(0); i < rb.count; i++ {
		result[i] = rb.data[(start+i)%rb.capacity]
	}
	return result
}

// Range returns elements with fromMs <= timestamp <= toMs, oldest to
// newest. Both bounds are inclusive. An empty window returns nil.
func (rb *Buffer[T]) Range(fromMs, toMs int64) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	var result []T
	start := rb.head - rb.count
	for i := int64(0); i < rb.count; i++ {
		item := rb.data[(start+i)%rb.capacity]
		ts := item.UnixMs()
		if ts >= fromMs && ts <= toMs {
			result = append(result, item)
		}
	}
	return result
}

// First returns the oldest element without removing it.
func (rb *Buffer[T]) First() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var zero T
	if rb.count == 0 {
		return zero, false
	}
	return rb.data[(rb.head-rb.count)%rb.capacity], true
}

// Last returns the newest element without removing it.
func (rb *Buffer[T]) Last() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var zero T
	if rb.count == 0 {
		return zero, false
	}
	return rb.data[(rb.head-1)%rb.capacity], true
}

// Len returns the current number of elements in the buffer.
func (rb *Buffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(rb.count)
}

// Cap returns the capacity of the buffer.
func (rb *Buffer[T]) Cap() int {
	return int(rb.capacity)
}

// IsEmpty returns true if the buffer is empty.
func (rb *Buffer[T]) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count == 0
}

// IsFull returns true if the buffer is full.
func (rb *Buffer[T]) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count >= rb.capacity
}

// TimeRange returns the timestamps of the oldest and newest elements.
// Returns (0, 0) if the buffer is empty.
func (rb *Buffer[T]) TimeRange() (oldest, newest int64) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return 0, 0
	}

	return rb.data[(rb.head-rb.count)%rb.capacity].UnixMs(),
		rb.data[(rb.head-1)%rb.capacity].UnixMs()
}

// Clear removes all elements from the buffer.
func (rb *Buffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T
	for i := range rb.data {
		rb.data[i] = zero
	}
	rb.head = 0
	rb.count = 0
}

// Stats returns buffer statistics.
func (rb *Buffer[T]) Stats() BufferStats {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return BufferStats{
		Capacity:  int(rb.capacity),
		Count:     int(rb.count),
		PushCount: rb.pushCount.Load(),
		DropCount: rb.dropCount.Load(),
	}
}

// BufferStats holds buffer statistics.
type BufferStats struct {
	Capacity  int
	Count     int
	PushCount int64
	DropCount int64
}

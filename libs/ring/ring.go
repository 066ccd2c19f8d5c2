// Package ring provides the fixed-capacity single-producer single-consumer
// queue used to cross every goroutine boundary on the hot path. Exactly one
// goroutine may call Write and exactly one may call Read; the atomic cursor
// stores provide the happens-before edge between the two.
package ring

import "sync/atomic"

// Ring is a bounded SPSC queue. Capacity is rounded up to a power of two so
// the monotonically increasing cursors can be masked down to slot indices.
type Ring[T any] struct {
	// head and tail live on separate cache lines so the producer and the
	// consumer do not false-share.
	head uint64 // next write position, owned by the producer
	_    [56]byte
	tail uint64 // next read position, owned by the consumer
	_    [56]byte

	buf  []T
	mask uint64
}

// New allocates a ring with at least the requested capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	n := uint64(1)
	for n < uint64(capacity) {
		n <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: n - 1,
	}
}

// Write appends v to the ring. It returns false when the ring is full; the
// caller decides whether that is fatal, logged and dropped, or retried.
func (r *Ring[T]) Write(v T) bool {
	h := r.head
	t := atomic.LoadUint64(&r.tail)
	if h-t == uint64(len(r.buf)) {
		return false
	}
	r.buf[h&r.mask] = v
	atomic.StoreUint64(&r.head, h+1)
	return true
}

// Read pops the next value. It returns false when the ring is empty.
func (r *Ring[T]) Read() (T, bool) {
	t := r.tail
	h := atomic.LoadUint64(&r.head)
	if t == h {
		var zero T
		return zero, false
	}
	v := r.buf[t&r.mask]
	var zero T
	r.buf[t&r.mask] = zero
	atomic.StoreUint64(&r.tail, t+1)
	return v, true
}

// Len returns the number of values currently queued.
func (r *Ring[T]) Len() int {
	h := atomic.LoadUint64(&r.head)
	t := atomic.LoadUint64(&r.tail)
	return int(h - t)
}

// Cap returns the rounded-up capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Empty reports whether the ring holds no values.
func (r *Ring[T]) Empty() bool {
	return r.Len() == 0
}

// Package pool provides a fixed-capacity slab allocator. Every order and
// price level on the hot path comes from one of these; running out means the
// process was provisioned wrong and callers treat it as fatal.
package pool

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrExhausted is returned by Acquire when every slot is in use.
	ErrExhausted = errors.New("pool exhausted")
	// ErrForeignPointer is returned by Release for a pointer outside the slab.
	ErrForeignPointer = errors.New("pointer does not belong to this pool")
	// ErrDoubleRelease is returned by Release for a slot that is already free.
	ErrDoubleRelease = errors.New("slot already released")
)

// Pool hands out pointers into a preallocated slab. Pointers stay stable for
// the lifetime of the pool, so intrusive links between pooled values are safe.
// Not goroutine safe: each pool is owned by exactly one component. InUse is
// the exception, kept on an atomic counter so metrics samplers on other
// goroutines can read it.
type Pool[T any] struct {
	slab  []T
	free  []int // stack of free slot indices
	inUse []bool
	used  atomic.Int64
	esize uintptr
	base  uintptr
}

// New allocates a pool of the given capacity.
func New[T any](capacity int) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool[T]{
		slab:  make([]T, capacity),
		free:  make([]int, capacity),
		inUse: make([]bool, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free[i] = capacity - 1 - i
	}
	p.esize = unsafe.Sizeof(p.slab[0])
	p.base = uintptr(unsafe.Pointer(&p.slab[0]))
	return p
}

// Acquire returns a zeroed slot from the slab.
func (p *Pool[T]) Acquire() (*T, error) {
	if len(p.free) == 0 {
		return nil, ErrExhausted
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse[idx] = true
	p.used.Inc()
	var zero T
	p.slab[idx] = zero
	return &p.slab[idx], nil
}

// Release returns a slot to the pool.
func (p *Pool[T]) Release(v *T) error {
	idx, err := p.index(v)
	if err != nil {
		return err
	}
	if !p.inUse[idx] {
		return ErrDoubleRelease
	}
	p.inUse[idx] = false
	p.free = append(p.free, idx)
	p.used.Dec()
	return nil
}

// InUse returns the number of slots currently acquired. Safe to call from
// any goroutine.
func (p *Pool[T]) InUse() int {
	return int(p.used.Load())
}

// Cap returns the pool capacity.
func (p *Pool[T]) Cap() int {
	return len(p.slab)
}

func (p *Pool[T]) index(v *T) (int, error) {
	off := uintptr(unsafe.Pointer(v)) - p.base
	if off%p.esize != 0 {
		return 0, ErrForeignPointer
	}
	idx := int(off / p.esize)
	if idx < 0 || idx >= len(p.slab) {
		return 0, ErrForeignPointer
	}
	return idx, nil
}

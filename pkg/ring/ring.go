// Package ring implements a fixed-capacity, lock-free single-producer /
// single-consumer queue.
//
// Semantics
//   - Exactly one goroutine may call TryPush; exactly one (possibly
//     different) goroutine may call TryPop. Two producers or two consumers
//     racing is undefined behavior — this is enforced by convention, not
//     by the type system.
//   - Usable capacity is N-1 of the N-slot backing array; one slot is
//     always kept empty to disambiguate full from empty without a separate
//     counter. New allocates capacity+1 slots, so the capacity it is given
//     is all usable.
//   - head and tail are padded to their own cache line so the producer and
//     consumer never invalidate each other's cache line on a plain write.
//
// Go's sync/atomic provides sequentially-consistent loads and stores,
// which is a strictly stronger guarantee than the relaxed/acquire/release
// mix this structure is specified against, so the happens-before contract
// (a slot write is visible before the corresponding slot read) holds.
package ring

import "sync/atomic"

const cacheLinePad = 64 - 8 // one uint64 counter already occupies 8 bytes

// Buffer is a fixed-capacity SPSC queue of T.
type Buffer[T any] struct {
	buf []T
	n   uint64 // len(buf), a power is not required; modulo is used throughout

	tail atomic.Uint64
	_    [cacheLinePad]byte
	head atomic.Uint64
	_    [cacheLinePad]byte
}

// New allocates a Buffer whose usable capacity is capacity (the backing
// array holds capacity+1 slots). Panics if capacity < 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{
		buf: make([]T, capacity+1),
		n:   uint64(capacity + 1),
	}
}

// TryPush attempts to enqueue v. It returns false without blocking when the
// buffer is full — the caller (the real-time emulation thread) must not
// retry; a dropped push is a normal, expected condition under load.
func (b *Buffer[T]) TryPush(v T) bool {
	tail := b.tail.Load()
	next := (tail + 1) % b.n
	if next == b.head.Load() {
		return false // full
	}
	b.buf[tail] = v
	b.tail.Store(next)
	return true
}

// TryPop attempts to dequeue the oldest item. It returns (zero, false)
// without blocking when the buffer is empty.
func (b *Buffer[T]) TryPop() (T, bool) {
	head := b.head.Load()
	if head == b.tail.Load() {
		var zero T
		return zero, false // empty
	}
	v := b.buf[head]
	var zero T
	b.buf[head] = zero // drop the reference so a pointer-typed T can be GC'd
	b.head.Store((head + 1) % b.n)
	return v, true
}

// IsEmpty is a best-effort snapshot; the result may be stale by the time
// the caller observes it.
func (b *Buffer[T]) IsEmpty() bool {
	return b.head.Load() == b.tail.Load()
}

// Size is a best-effort snapshot of the number of queued items.
func (b *Buffer[T]) Size() int {
	h, t := b.head.Load(), b.tail.Load()
	if t >= h {
		return int(t - h)
	}
	return int(b.n - h + t)
}

// Capacity returns the usable capacity (N-1 of the backing array).
func (b *Buffer[T]) Capacity() int {
	return int(b.n) - 1
}

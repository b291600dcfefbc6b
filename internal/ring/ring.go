// Package ring provides a fixed-capacity history buffer.
package ring

// Buffer keeps the most recent values pushed into it. Once full, each Push
// overwrites the oldest value. A Buffer is not safe for concurrent use; owners
// guard it with their own lock.
type Buffer[T any] struct {
	items []T
	next  int
	full  bool
}

// New returns a buffer holding at most capacity values.
// A capacity below 1 is raised to 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest value when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.items[b.next] = v
	b.next = (b.next + 1) % len(b.items)
	if b.next == 0 {
		b.full = true
	}
}

// Len returns the number of values currently held.
func (b *Buffer[T]) Len() int {
	if b.full {
		return len(b.items)
	}
	return b.next
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Newest returns up to limit values, newest first.
// A limit of zero or less returns everything held.
func (b *Buffer[T]) Newest(limit int) []T {
	n := b.Len()
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]T, 0, limit)
	idx := b.next
	for i := 0; i < limit; i++ {
		idx = (idx - 1 + len(b.items)) % len(b.items)
		out = append(out, b.items[idx])
	}
	return out
}

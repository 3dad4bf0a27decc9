package structure

// Ring is a bounded FIFO. Pushing into a full ring evicts the oldest element.
// Index 0 is always the oldest element still held.
//
// Ring is not safe for concurrent use.
type Ring[T any] struct {
	buffer []T
	head   int // index of the oldest element
	count  int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}

	return &Ring[T]{
		buffer: make([]T, capacity),
	}
}

// Push appends v and reports whether the oldest element was evicted to make room.
func (r *Ring[T]) Push(v T) bool {
	capacity := len(r.buffer)

	if r.count < capacity {
		r.buffer[(r.head+r.count)%capacity] = v
		r.count++
		return false
	}

	// full: overwrite the oldest slot and advance head
	r.buffer[r.head] = v
	r.head = (r.head + 1) % capacity
	return true
}

// At returns the i-th element, oldest first.
func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, false
	}

	return r.buffer[(r.head+i)%len(r.buffer)], true
}

// Back returns the most recently pushed element.
func (r *Ring[T]) Back() (T, bool) {
	return r.At(r.count - 1)
}

// Front returns the oldest element.
func (r *Ring[T]) Front() (T, bool) {
	return r.At(0)
}

// Len returns the number of elements held.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the maximum number of elements.
func (r *Ring[T]) Cap() int {
	return len(r.buffer)
}

// Clear drops every element and releases references held by the buffer.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buffer {
		r.buffer[i] = zero
	}
	r.head = 0
	r.count = 0
}

// Slice copies the elements into a new slice, oldest first.
func (r *Ring[T]) Slice() []T {
	result := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		result[i] = r.buffer[(r.head+i)%len(r.buffer)]
	}
	return result
}

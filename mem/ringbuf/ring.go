// Package ringbuf provides a fixed-capacity circular buffer over
// caller-owned storage, addressed by relative index.
//
// Relative index 0 is always the oldest live element. Before the buffer has
// wrapped that is storage slot 0; afterwards it is the slot the next Push will
// overwrite. Elements are overwritten in place and never individually removed.
//
// Ring has no internal locking; see package spin.
package ringbuf

import (
	"errors"
	"fmt"

	"github.com/joshuapare/mcukit/mem/region"
)

var (
	// ErrEmpty indicates a read from a buffer nothing has been pushed to.
	ErrEmpty = errors.New("ringbuf: empty")

	// ErrNotYetWritten indicates a relative index the buffer has not reached yet.
	ErrNotYetWritten = errors.New("ringbuf: index not yet written")

	// ErrOutOfRange indicates a relative index outside [0, capacity).
	ErrOutOfRange = errors.New("ringbuf: index out of range")

	// ErrZeroCapacity indicates storage with no room for an element.
	ErrZeroCapacity = errors.New("ringbuf: zero capacity")
)

// Ring is a circular buffer of T.
type Ring[T any] struct {
	storage []T
	cursor  int
	wrapped bool
}

// New returns a ring writing into storage. The ring does not copy storage.
func New[T any](storage []T) (*Ring[T], error) {
	if len(storage) == 0 {
		return nil, ErrZeroCapacity
	}
	return &Ring[T]{storage: storage}, nil
}

// FromRegion returns a ring over r reinterpreted as elements of T.
// T must not contain pointers.
func FromRegion[T any](r region.Region) (*Ring[T], error) {
	storage, err := region.Cast[T](r)
	if err != nil {
		return nil, fmt.Errorf("ringbuf: %w", err)
	}
	return New(storage)
}

// Absolute maps a relative index to a storage slot. It is the pure core of
// Get: before wrapping, indexes at or past cursor fail with ErrNotYetWritten;
// after wrapping, indexes at or past capacity fail with ErrOutOfRange.
func Absolute(rel, cursor, capacity int, wrapped bool) (int, error) {
	if rel < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, rel)
	}
	if !wrapped {
		if rel >= cursor {
			return 0, fmt.Errorf("%w: %d, %d written", ErrNotYetWritten, rel, cursor)
		}
		return rel, nil
	}
	if rel >= capacity {
		return 0, fmt.Errorf("%w: %d >= capacity %d", ErrOutOfRange, rel, capacity)
	}
	return (cursor + rel) % capacity, nil
}

// Push writes v at the cursor and advances it, wrapping to slot 0 after the
// last slot.
func (r *Ring[T]) Push(v T) {
	r.storage[r.cursor] = v
	r.cursor++
	if r.cursor == len(r.storage) {
		r.cursor = 0
		r.wrapped = true
	}
}

// Get returns the element at relative index rel.
func (r *Ring[T]) Get(rel int) (T, error) {
	slot, err := Absolute(rel, r.cursor, len(r.storage), r.wrapped)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.storage[slot], nil
}

// Oldest returns the element at relative index 0.
func (r *Ring[T]) Oldest() (T, error) {
	if r.empty() {
		var zero T
		return zero, ErrEmpty
	}
	return r.Get(0)
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (T, error) {
	if r.empty() {
		var zero T
		return zero, ErrEmpty
	}
	slot := r.cursor - 1
	if slot < 0 {
		slot = len(r.storage) - 1
	}
	return r.storage[slot], nil
}

// Len returns the number of live elements.
func (r *Ring[T]) Len() int {
	if r.wrapped {
		return len(r.storage)
	}
	return r.cursor
}

// Cap returns the capacity in elements.
func (r *Ring[T]) Cap() int { return len(r.storage) }

// Wrapped reports whether the buffer has wrapped at least once.
func (r *Ring[T]) Wrapped() bool { return r.wrapped }

// Snapshot copies the live elements, oldest first.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, 0, r.Len())
	if r.wrapped {
		out = append(out, r.storage[r.cursor:]...)
	}
	return append(out, r.storage[:r.cursor]...)
}

func (r *Ring[T]) empty() bool {
	return r.cursor == 0 && !r.wrapped
}

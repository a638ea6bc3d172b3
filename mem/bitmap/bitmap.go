// Package bitmap provides a fixed-capacity bit vector stored in a
// caller-supplied memory region.
//
// Bit i lives in bit i%8 of byte i/8. The bitmap counts set bits as it goes;
// the unchecked Set and Clear adjust that count without looking at the
// previous state of the bit, so setting a bit twice counts it twice. Use
// CheckedSet / CheckedClear where the prior state is not known.
//
// A Bitmap has no internal locking. Callers sharing one between goroutines
// or interrupt handlers must hold a spin.Lock around every mutating call.
package bitmap

import (
	"fmt"
	"strings"

	"github.com/joshuapare/mcukit/mem/memops"
	"github.com/joshuapare/mcukit/mem/region"
)

// Bitmap tracks len(region)*8 bits.
type Bitmap struct {
	region region.Region
	bits   []byte
	total  int
	used   int
}

// New claims r for a bitmap, zero-filling it.
func New(r region.Region) *Bitmap {
	// Set only fails when n exceeds the region.
	_ = memops.Set(r, 0, r.Len())
	return &Bitmap{
		region: r,
		bits:   r.Bytes(),
		total:  r.Len() * 8,
	}
}

// Region returns the storage backing the bitmap.
func (b *Bitmap) Region() region.Region { return b.region }

// Count returns the number of bits tracked.
func (b *Bitmap) Count() int { return b.total }

// Used returns the number of bits recorded as set.
func (b *Bitmap) Used() int { return b.used }

// Free returns Count() - Used().
func (b *Bitmap) Free() int { return b.total - b.used }

// IsSet reports whether bit i is set. i is not bounds checked beyond the
// storage itself; callers must keep i < Count().
func (b *Bitmap) IsSet(i int) bool {
	return b.bits[i/8]&(1<<(i%8)) != 0
}

// Set sets bit i and increments Used, whatever the bit's previous state.
func (b *Bitmap) Set(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.bits[i/8] |= 1 << (i % 8)
	b.used++
	return nil
}

// Clear clears bit i and decrements Used, whatever the bit's previous state.
func (b *Bitmap) Clear(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.bits[i/8] &^= 1 << (i % 8)
	b.used--
	return nil
}

// CheckedSet sets bit i, failing with ErrAlreadySet if it is set.
func (b *Bitmap) CheckedSet(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	if b.IsSet(i) {
		return fmt.Errorf("%w: %d", ErrAlreadySet, i)
	}
	return b.Set(i)
}

// CheckedClear clears bit i, failing with ErrAlreadyClear if it is clear.
func (b *Bitmap) CheckedClear(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	if !b.IsSet(i) {
		return fmt.Errorf("%w: %d", ErrAlreadyClear, i)
	}
	return b.Clear(i)
}

// SetRange sets bits [i, i+n) in order. It stops at the first failure;
// bits before the failing index stay set.
func (b *Bitmap) SetRange(i, n int) error {
	for j := i; j < i+n; j++ {
		if err := b.Set(j); err != nil {
			return err
		}
	}
	return nil
}

// ClearRange clears bits [i, i+n) in order. It stops at the first failure;
// bits before the failing index stay cleared.
func (b *Bitmap) ClearRange(i, n int) error {
	for j := i; j < i+n; j++ {
		if err := b.Clear(j); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll clears every bit and resets Used to zero.
func (b *Bitmap) ClearAll() {
	// len(b.bits) is the region length, so Set cannot fail.
	_ = memops.Set(b.region, 0, len(b.bits))
	b.used = 0
}

// Find returns the lowest index starting a run of n clear bits.
// ok is false when no such run exists or n < 1.
func (b *Bitmap) Find(n int) (int, bool) {
	if n < 1 || n > b.total {
		return 0, false
	}
	start, run := 0, 0
	for byteIdx, v := range b.bits {
		if v == 0xFF {
			run = 0
			continue
		}
		if v == 0 && run+8 < n {
			if run == 0 {
				start = byteIdx * 8
			}
			run += 8
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if v&(1<<bit) != 0 {
				run = 0
				continue
			}
			if run == 0 {
				start = byteIdx*8 + bit
			}
			run++
			if run == n {
				return start, true
			}
		}
	}
	return 0, false
}

// FindAndSet finds a run of n clear bits and sets it with the unchecked Set.
func (b *Bitmap) FindAndSet(n int) (int, error) {
	idx, ok := b.Find(n)
	if !ok {
		return 0, fmt.Errorf("%w: %d bits", ErrNotFound, n)
	}
	if err := b.SetRange(idx, n); err != nil {
		return 0, err
	}
	return idx, nil
}

// BoundedFindAndSet is FindAndSet restricted to runs whose last bit is at
// most bound. bound itself must be a valid index.
func (b *Bitmap) BoundedFindAndSet(n, bound int) (int, error) {
	if bound < 0 || bound >= b.total {
		return 0, fmt.Errorf("%w: bound %d >= %d bits", ErrOutOfBounds, bound, b.total)
	}
	idx, ok := b.Find(n)
	if !ok {
		return 0, fmt.Errorf("%w: %d bits", ErrNotFound, n)
	}
	if last := idx + n - 1; last > bound {
		return 0, fmt.Errorf("%w: run [%d, %d] past bound %d", ErrOutOfBounds, idx, last, bound)
	}
	if err := b.SetRange(idx, n); err != nil {
		return 0, err
	}
	return idx, nil
}

// String renders one character per bit, '#' for set and '.' for clear.
func (b *Bitmap) String() string {
	var sb strings.Builder
	sb.Grow(b.total)
	for i := 0; i < b.total; i++ {
		if b.IsSet(i) {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

func (b *Bitmap) check(i int) error {
	if i < 0 || i >= b.total {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, i, b.total)
	}
	return nil
}

package region

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/mcukit/internal/buf"
)

// Region is a non-owning view over length bytes starting at Addr.
type Region struct {
	addr uintptr
	data []byte
}

// FromBytes returns a region over b addressed by b's host address.
func FromBytes(b []byte) Region {
	return Region{addr: hostAddr(b), data: b[:len(b):len(b)]}
}

// Of returns a region over the elements of s. The length is in bytes.
func Of[T any](s []T) Region {
	if len(s) == 0 {
		return Region{}
	}
	var zero T
	n := len(s) * int(unsafe.Sizeof(zero))
	b := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), n)
	return FromBytes(b)
}

// Cast reinterprets r as a slice of T holding len(r)/sizeof(T) elements.
// Trailing bytes that do not fill a whole element are not covered.
// T must not contain pointers: the collector does not scan the region.
func Cast[T any](r Region) ([]T, error) {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized element type", ErrInvalidRange)
	}
	n := r.Len() / int(size)
	if n == 0 {
		return []T{}, nil
	}
	if !buf.IsAligned(r.hostStart(), unsafe.Alignof(zero)) {
		return nil, fmt.Errorf("%w: %s for %d-byte alignment", ErrUnaligned, r, unsafe.Alignof(zero))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(r.data))), n), nil
}

// Addr returns the logical address of the first byte.
func (r Region) Addr() uintptr { return r.addr }

// Len returns the length in bytes.
func (r Region) Len() int { return len(r.data) }

// End returns the logical address one past the last byte.
func (r Region) End() uintptr { return r.addr + uintptr(len(r.data)) }

// IsEmpty reports whether the region covers no bytes.
func (r Region) IsEmpty() bool { return len(r.data) == 0 }

// Bytes returns the backing bytes. Writes through the slice mutate the region.
func (r Region) Bytes() []byte { return r.data }

// Sub returns the n-byte region starting off bytes into r.
func (r Region) Sub(off, n int) (Region, error) {
	if _, err := buf.CheckSpan(len(r.data), off, n, 1); err != nil {
		return Region{}, fmt.Errorf("%w: sub(%d, %d) of %s: %w", ErrOutOfRange, off, n, r, err)
	}
	return Region{addr: r.addr + uintptr(off), data: r.data[off : off+n : off+n]}, nil
}

// Tail returns everything from off to the end of r.
func (r Region) Tail(off int) (Region, error) {
	if off < 0 || off > len(r.data) {
		return Region{}, fmt.Errorf("%w: tail(%d) of %s", ErrOutOfRange, off, r)
	}
	return r.Sub(off, len(r.data)-off)
}

// SplitAt splits r into [0, off) and [off, len).
func (r Region) SplitAt(off int) (Region, Region, error) {
	head, err := r.Sub(0, off)
	if err != nil {
		return Region{}, Region{}, err
	}
	tail, err := r.Tail(off)
	if err != nil {
		return Region{}, Region{}, err
	}
	return head, tail, nil
}

// Between returns the sub-region of r spanning logical addresses [begin, end).
// It fails with ErrInvalidRange when end < begin.
func (r Region) Between(begin, end uintptr) (Region, error) {
	if end < begin {
		return Region{}, fmt.Errorf("%w: end 0x%x before begin 0x%x", ErrInvalidRange, end, begin)
	}
	off, err := r.OffsetOf(begin)
	if err != nil {
		return Region{}, err
	}
	return r.Sub(off, int(end-begin))
}

// Contains reports whether the logical address addr falls inside r.
func (r Region) Contains(addr uintptr) bool {
	return addr >= r.addr && addr < r.End()
}

// OffsetOf returns addr's offset from the start of r. The end address
// itself is accepted so that empty tails can be expressed.
func (r Region) OffsetOf(addr uintptr) (int, error) {
	if addr < r.addr || addr > r.End() {
		return 0, fmt.Errorf("%w: address 0x%x outside %s", ErrOutOfRange, addr, r)
	}
	return int(addr - r.addr), nil
}

// Overlaps reports whether r and o share any backing bytes.
func (r Region) Overlaps(o Region) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	a, b := r.hostStart(), o.hostStart()
	return a < b+uintptr(o.Len()) && b < a+uintptr(r.Len())
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%x+%d]", r.addr, len(r.data))
}

// HostAddr returns the host address of the backing memory, or 0 for a
// region without backing. Only meaningful for ordering and overlap tests.
func (r Region) HostAddr() uintptr {
	return r.hostStart()
}

func (r Region) hostStart() uintptr {
	return hostAddr(r.data)
}

func hostAddr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

package region

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/mcukit/internal/buf"
)

var nativeLittle = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// Space is a contiguous segment of an address map (SRAM, the system control
// space, a peripheral bridge) backed by host memory.
type Space struct {
	name string
	base uintptr
	mem  []byte
}

// NewSpace maps mem at logical address base. It fails with ErrInvalidRange
// when base+len(mem) would wrap past the top of the address space.
func NewSpace(name string, base uintptr, mem []byte) (*Space, error) {
	if _, ok := buf.AddrOverflowSafe(base, len(mem)); !ok {
		return nil, fmt.Errorf("%w: %s at 0x%x+%d wraps the address space", ErrInvalidRange, name, base, len(mem))
	}
	return &Space{name: name, base: base, mem: mem[:len(mem):len(mem)]}, nil
}

// Name returns the label given at construction.
func (s *Space) Name() string { return s.name }

// Base returns the first logical address of the space.
func (s *Space) Base() uintptr { return s.base }

// Len returns the size of the space in bytes.
func (s *Space) Len() int { return len(s.mem) }

// All returns a region covering the whole space.
func (s *Space) All() Region {
	return Region{addr: s.base, data: s.mem}
}

// Region returns the n-byte region at logical address addr.
func (s *Space) Region(addr uintptr, n int) (Region, error) {
	if _, ok := buf.AddrOverflowSafe(addr, n); !ok {
		return Region{}, fmt.Errorf("%w: 0x%x+%d", ErrInvalidRange, addr, n)
	}
	off, err := s.offset(addr)
	if err != nil {
		return Region{}, err
	}
	return s.All().Sub(off, n)
}

// Between returns the region [begin, end). It fails with ErrInvalidRange
// when end < begin.
func (s *Space) Between(begin, end uintptr) (Region, error) {
	return s.All().Between(begin, end)
}

// Load32 atomically reads the 32-bit word at addr. addr must be 4-byte aligned.
func (s *Space) Load32(addr uintptr) (uint32, error) {
	p, err := s.word(addr, 4)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// Store32 atomically writes v to the 32-bit word at addr.
func (s *Space) Store32(addr uintptr, v uint32) error {
	p, err := s.word(addr, 4)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, v)
	return nil
}

// Load16 reads the halfword at addr through an atomic load of its containing word.
func (s *Space) Load16(addr uintptr) (uint16, error) {
	p, shift, err := s.half(addr)
	if err != nil {
		return 0, err
	}
	return uint16(atomic.LoadUint32(p) >> shift), nil
}

// Store16 writes the halfword at addr with a compare-and-swap on its
// containing word, leaving the neighbouring halfword untouched.
func (s *Space) Store16(addr uintptr, v uint16) error {
	p, shift, err := s.half(addr)
	if err != nil {
		return err
	}
	mask := uint32(0xFFFF) << shift
	for {
		old := atomic.LoadUint32(p)
		next := old&^mask | uint32(v)<<shift
		if atomic.CompareAndSwapUint32(p, old, next) {
			return nil
		}
	}
}

func (s *Space) String() string {
	return fmt.Sprintf("%s[0x%x+%d]", s.name, s.base, len(s.mem))
}

func (s *Space) offset(addr uintptr) (int, error) {
	if addr < s.base || addr-s.base > uintptr(len(s.mem)) {
		return 0, fmt.Errorf("%w: address 0x%x outside %s", ErrOutOfRange, addr, s)
	}
	return int(addr - s.base), nil
}

func (s *Space) word(addr uintptr, size int) (*uint32, error) {
	if !buf.IsAligned(addr, uintptr(size)) {
		return nil, fmt.Errorf("%w: 0x%x for %d-byte access", ErrUnaligned, addr, size)
	}
	off, err := s.offset(addr)
	if err != nil {
		return nil, err
	}
	if !buf.Has(s.mem, off, 4) {
		return nil, fmt.Errorf("%w: 0x%x+4 outside %s", ErrOutOfRange, addr, s)
	}
	p := unsafe.Pointer(&s.mem[off])
	if !buf.IsAligned(uintptr(p), 4) {
		return nil, fmt.Errorf("%w: host backing of %s is not word aligned", ErrUnaligned, s)
	}
	return (*uint32)(p), nil
}

func (s *Space) half(addr uintptr) (*uint32, uint, error) {
	if !buf.IsAligned(addr, 2) {
		return nil, 0, fmt.Errorf("%w: 0x%x for 2-byte access", ErrUnaligned, addr)
	}
	wordAddr := buf.AlignDown(addr, 4)
	p, err := s.word(wordAddr, 4)
	if err != nil {
		return nil, 0, err
	}
	upper := addr != wordAddr
	if upper == nativeLittle {
		return p, 16, nil
	}
	return p, 0, nil
}

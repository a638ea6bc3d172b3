// Package reg provides field-level access to memory-mapped registers.
//
// A register is a fixed address on a Bus; a Field names a run of bits inside
// it. Drivers are plain structs holding Reg32/Reg16 values at fixed offsets
// from a peripheral base address.
package reg

import (
	"errors"
	"fmt"
)

// ErrFieldOverflow indicates a value wider than the field it is written to.
var ErrFieldOverflow = errors.New("reg: value does not fit field")

// Bus performs non-elidable register accesses. *region.Space implements it.
type Bus interface {
	Load32(addr uintptr) (uint32, error)
	Store32(addr uintptr, v uint32) error
	Load16(addr uintptr) (uint16, error)
	Store16(addr uintptr, v uint16) error
}

// Field is Width bits starting at bit Shift.
type Field struct {
	Shift uint
	Width uint
}

// Bit returns the one-bit field at position n.
func Bit(n uint) Field { return Field{Shift: n, Width: 1} }

// Mask returns the field's bits in register position.
func (f Field) Mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Shift
}

func (f Field) extract(v uint32) uint32 {
	return (v & f.Mask()) >> f.Shift
}

func (f Field) insert(v, x uint32) (uint32, error) {
	if x > f.Mask()>>f.Shift {
		return 0, fmt.Errorf("%w: 0x%x into %d bits", ErrFieldOverflow, x, f.Width)
	}
	return v&^f.Mask() | x<<f.Shift, nil
}

// Reg32 is a 32-bit register.
type Reg32 struct {
	bus  Bus
	addr uintptr
}

// At32 returns the 32-bit register at addr.
func At32(bus Bus, addr uintptr) Reg32 { return Reg32{bus: bus, addr: addr} }

// Addr returns the register's address.
func (r Reg32) Addr() uintptr { return r.addr }

func (r Reg32) Read() (uint32, error) { return r.bus.Load32(r.addr) }

func (r Reg32) Write(v uint32) error { return r.bus.Store32(r.addr, v) }

// Modify reads the register, applies fn, and writes the result back.
func (r Reg32) Modify(fn func(uint32) uint32) error {
	v, err := r.Read()
	if err != nil {
		return err
	}
	return r.Write(fn(v))
}

// Get returns field f.
func (r Reg32) Get(f Field) (uint32, error) {
	v, err := r.Read()
	if err != nil {
		return 0, err
	}
	return f.extract(v), nil
}

// Set writes x into field f, leaving the other bits unchanged.
func (r Reg32) Set(f Field, x uint32) error {
	v, err := r.Read()
	if err != nil {
		return err
	}
	nv, err := f.insert(v, x)
	if err != nil {
		return err
	}
	return r.Write(nv)
}

// Reg16 is a 16-bit register.
type Reg16 struct {
	bus  Bus
	addr uintptr
}

// At16 returns the 16-bit register at addr.
func At16(bus Bus, addr uintptr) Reg16 { return Reg16{bus: bus, addr: addr} }

func (r Reg16) Addr() uintptr { return r.addr }

func (r Reg16) Read() (uint16, error) { return r.bus.Load16(r.addr) }

func (r Reg16) Write(v uint16) error { return r.bus.Store16(r.addr, v) }

func (r Reg16) Get(f Field) (uint16, error) {
	v, err := r.Read()
	if err != nil {
		return 0, err
	}
	return uint16(f.extract(uint32(v))), nil
}

func (r Reg16) Set(f Field, x uint16) error {
	v, err := r.Read()
	if err != nil {
		return err
	}
	nv, err := f.insert(uint32(v), uint32(x))
	if err != nil {
		return err
	}
	if nv > 0xFFFF {
		return fmt.Errorf("%w: field past bit 15", ErrFieldOverflow)
	}
	return r.Write(uint16(nv))
}

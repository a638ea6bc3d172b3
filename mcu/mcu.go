// Package mcu describes the capabilities a microcontroller exposes to the
// runtime: the memory it reserves for the stack and the heap, and its
// nested vectored interrupt controller.
//
// The memory packages consume the regions an MCU hands out but never call
// back into it. Implementations live elsewhere; mcu/sim provides a host-side
// one for tests and tooling.
package mcu

import (
	"errors"

	"github.com/joshuapare/mcukit/mem/region"
)

// ErrBadIRQ indicates an interrupt number the controller does not implement.
var ErrBadIRQ = errors.New("mcu: no such interrupt")

// IRQ is an external interrupt number (exception number minus 16).
type IRQ uint16

// MCU is the capability surface of a microcontroller.
type MCU interface {
	// StackMemory returns the region reserved for the main stack.
	StackMemory() region.Region
	// HeapMemory returns the region available for allocators.
	HeapMemory() region.Region
	// NVIC returns the interrupt controller.
	NVIC() NVIC
	// EnableInterrupts clears PRIMASK.
	EnableInterrupts()
	// DisableInterrupts sets PRIMASK.
	DisableInterrupts()
	// InterruptsEnabled reports whether PRIMASK is clear.
	InterruptsEnabled() bool
}

// NVIC controls external interrupts. Lower priority values preempt higher ones.
type NVIC interface {
	Enable(irq IRQ) error
	Disable(irq IRQ) error
	IsEnabled(irq IRQ) bool
	SetPending(irq IRQ) error
	ClearPending(irq IRQ) error
	IsPending(irq IRQ) bool
	SetPriority(irq IRQ, prio uint8) error
	Priority(irq IRQ) (uint8, error)
}

// Package sim provides a host-side simulated microcontroller.
//
// A Board maps SRAM, the system control space and the peripheral bridge into
// anonymous host memory and exposes them as region.Spaces at their Cortex-M
// addresses. Peripheral drivers (periph/...) run against those spaces
// unchanged, and the memory packages allocate from the board's heap region.
//
// Interrupts are modelled, not raised asynchronously: handlers run when
// Dispatch is called and PRIMASK is clear.
package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/joshuapare/mcukit/internal/mmfile"
	"github.com/joshuapare/mcukit/mcu"
	"github.com/joshuapare/mcukit/mem/region"
)

// ErrConfig indicates an unusable board configuration.
var ErrConfig = errors.New("sim: invalid config")

// Board is a simulated microcontroller.
type Board struct {
	cfg Config
	log *slog.Logger

	sram   *region.Space
	scs    *region.Space
	bridge *region.Space
	stack  region.Region
	heap   region.Region

	nvic    *NVIC
	primask atomic.Bool
	unmaps  []func() error
}

var _ mcu.MCU = (*Board)(nil)

// New maps the board's memory and returns it with interrupts disabled,
// as after reset.
func New(cfg Config) (*Board, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Board{cfg: cfg, log: cfg.logger()}

	var err error
	if b.sram, err = b.mapSpace("sram", cfg.SRAMBase, cfg.SRAMSize); err != nil {
		_ = b.Close()
		return nil, err
	}
	if b.scs, err = b.mapSpace("scs", SCSBase, SCSSize); err != nil {
		_ = b.Close()
		return nil, err
	}
	if b.bridge, err = b.mapSpace("bridge", BridgeBase, BridgeSize); err != nil {
		_ = b.Close()
		return nil, err
	}

	all := b.sram.All()
	if b.heap, b.stack, err = all.SplitAt(cfg.SRAMSize - cfg.StackSize); err != nil {
		_ = b.Close()
		return nil, err
	}

	b.nvic = newNVIC(cfg.NumIRQs, cfg.PriorityBits, b.log)
	b.primask.Store(true)

	b.log.Debug("board up",
		"sram", b.sram.String(),
		"heap", b.heap.String(),
		"stack", b.stack.String(),
		"irqs", cfg.NumIRQs)
	return b, nil
}

func (b *Board) StackMemory() region.Region { return b.stack }

func (b *Board) HeapMemory() region.Region { return b.heap }

func (b *Board) NVIC() mcu.NVIC { return b.nvic }

// Controller returns the concrete NVIC, which adds handler attachment.
func (b *Board) Controller() *NVIC { return b.nvic }

func (b *Board) EnableInterrupts() { b.primask.Store(false) }

func (b *Board) DisableInterrupts() { b.primask.Store(true) }

func (b *Board) InterruptsEnabled() bool { return !b.primask.Load() }

// SRAM returns the SRAM address space.
func (b *Board) SRAM() *region.Space { return b.sram }

// SystemControl returns the system control space (SysTick, NVIC registers).
func (b *Board) SystemControl() *region.Space { return b.scs }

// Peripherals returns the peripheral bridge address space.
func (b *Board) Peripherals() *region.Space { return b.bridge }

// Dispatch runs the handlers of pending, enabled interrupts in priority
// order until none remain, and returns how many ran. Handlers may pend
// further interrupts. Nothing runs while interrupts are disabled.
func (b *Board) Dispatch() int {
	n := 0
	for b.InterruptsEnabled() {
		irq, handler, ok := b.nvic.next()
		if !ok {
			break
		}
		n++
		if handler == nil {
			b.log.Warn("unhandled interrupt", "irq", irq)
			continue
		}
		b.log.Debug("dispatch", "irq", irq)
		handler()
	}
	return n
}

// Close releases the board's memory. Regions handed out earlier must not
// be used afterwards.
func (b *Board) Close() error {
	var errs []error
	for _, unmap := range b.unmaps {
		errs = append(errs, unmap())
	}
	b.unmaps = nil
	return errors.Join(errs...)
}

func (b *Board) mapSpace(name string, base uintptr, size int) (*region.Space, error) {
	mem, unmap, err := mmfile.Anon(size)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: %w", name, err)
	}
	b.unmaps = append(b.unmaps, unmap)
	return region.NewSpace(name, base, mem)
}

func (c Config) validate() error {
	switch {
	case c.SRAMSize <= 0:
		return fmt.Errorf("%w: SRAM size %d", ErrConfig, c.SRAMSize)
	case c.StackSize < 0 || c.StackSize > c.SRAMSize:
		return fmt.Errorf("%w: stack size %d with %d bytes of SRAM", ErrConfig, c.StackSize, c.SRAMSize)
	case c.NumIRQs <= 0 || c.NumIRQs > 496:
		return fmt.Errorf("%w: %d interrupts", ErrConfig, c.NumIRQs)
	case c.PriorityBits < 1 || c.PriorityBits > 8:
		return fmt.Errorf("%w: %d priority bits", ErrConfig, c.PriorityBits)
	}
	return nil
}

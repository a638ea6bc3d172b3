package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/mcukit/internal/buf"
	"github.com/joshuapare/mcukit/mcu"
	"github.com/joshuapare/mcukit/mem/bitmap"
	"github.com/joshuapare/mcukit/mem/region"
	"github.com/joshuapare/mcukit/spin"
)

// NVIC models the enable, pending and priority state of the interrupt
// controller. Enable and pending state are kept in bitmaps; all state is
// guarded by a spin lock so handlers and other goroutines may pend
// interrupts while Dispatch runs.
type NVIC struct {
	lock     spin.Lock
	enabled  *bitmap.Bitmap
	pending  *bitmap.Bitmap
	prio     []uint8
	prioMask uint8
	handlers []func()
	log      *slog.Logger
}

var _ mcu.NVIC = (*NVIC)(nil)

func newNVIC(n, priorityBits int, log *slog.Logger) *NVIC {
	size := buf.CeilDiv(n, 8)
	store := region.FromBytes(make([]byte, 2*size))
	en, pend, _ := store.SplitAt(size)
	return &NVIC{
		enabled:  bitmap.New(en),
		pending:  bitmap.New(pend),
		prio:     make([]uint8, n),
		prioMask: uint8(0xFF << (8 - priorityBits)),
		handlers: make([]func(), n),
		log:      log,
	}
}

// Lines returns the number of implemented interrupts.
func (v *NVIC) Lines() int { return len(v.prio) }

func (v *NVIC) Enable(irq mcu.IRQ) error {
	return v.mutate(irq, v.enabled.CheckedSet, bitmap.ErrAlreadySet)
}

func (v *NVIC) Disable(irq mcu.IRQ) error {
	return v.mutate(irq, v.enabled.CheckedClear, bitmap.ErrAlreadyClear)
}

func (v *NVIC) IsEnabled(irq mcu.IRQ) bool {
	return v.test(irq, v.enabled)
}

func (v *NVIC) SetPending(irq mcu.IRQ) error {
	return v.mutate(irq, v.pending.CheckedSet, bitmap.ErrAlreadySet)
}

func (v *NVIC) ClearPending(irq mcu.IRQ) error {
	return v.mutate(irq, v.pending.CheckedClear, bitmap.ErrAlreadyClear)
}

func (v *NVIC) IsPending(irq mcu.IRQ) bool {
	return v.test(irq, v.pending)
}

// SetPriority stores prio with the unimplemented low bits cleared.
func (v *NVIC) SetPriority(irq mcu.IRQ, prio uint8) error {
	if err := v.check(irq); err != nil {
		return err
	}
	v.lock.Acquire()
	v.prio[irq] = prio & v.prioMask
	v.lock.Unlock()
	return nil
}

func (v *NVIC) Priority(irq mcu.IRQ) (uint8, error) {
	if err := v.check(irq); err != nil {
		return 0, err
	}
	v.lock.Acquire()
	defer v.lock.Unlock()
	return v.prio[irq], nil
}

// Attach installs fn as the handler for irq, replacing any previous one.
func (v *NVIC) Attach(irq mcu.IRQ, fn func()) error {
	if err := v.check(irq); err != nil {
		return err
	}
	v.lock.Acquire()
	v.handlers[irq] = fn
	v.lock.Unlock()
	return nil
}

// next claims the most urgent interrupt that is both pending and enabled:
// lowest priority value first, then lowest number. Its pending bit is
// cleared before the handler is returned.
func (v *NVIC) next() (mcu.IRQ, func(), bool) {
	v.lock.Acquire()
	defer v.lock.Unlock()

	best := -1
	for i := range v.prio {
		if !v.pending.IsSet(i) || !v.enabled.IsSet(i) {
			continue
		}
		if best < 0 || v.prio[i] < v.prio[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, nil, false
	}
	if err := v.pending.CheckedClear(best); err != nil {
		v.log.Error("clear pending", "irq", best, "err", err)
		return 0, nil, false
	}
	return mcu.IRQ(best), v.handlers[best], true
}

func (v *NVIC) mutate(irq mcu.IRQ, op func(int) error, idempotent error) error {
	if err := v.check(irq); err != nil {
		return err
	}
	v.lock.Acquire()
	err := op(int(irq))
	v.lock.Unlock()
	if err != nil && !errors.Is(err, idempotent) {
		return err
	}
	return nil
}

func (v *NVIC) test(irq mcu.IRQ, bm *bitmap.Bitmap) bool {
	if v.check(irq) != nil {
		return false
	}
	v.lock.Acquire()
	defer v.lock.Unlock()
	return bm.IsSet(int(irq))
}

func (v *NVIC) check(irq mcu.IRQ) error {
	if int(irq) >= len(v.prio) {
		return fmt.Errorf("%w: %d of %d", mcu.ErrBadIRQ, irq, len(v.prio))
	}
	return nil
}

// Package systick drives the Cortex-M SysTick timer.
package systick

import (
	"errors"
	"fmt"

	"github.com/joshuapare/mcukit/periph/reg"
)

// Base is the SysTick block's address in the system control space.
const Base uintptr = 0xE000E010

// MaxReload is the largest value the 24-bit reload register holds.
const MaxReload = 0x00FFFFFF

// ErrReload indicates a reload value that does not fit 24 bits.
var ErrReload = errors.New("systick: reload out of range")

var (
	csrEnable    = reg.Bit(0)
	csrTickInt   = reg.Bit(1)
	csrClkSource = reg.Bit(2)
	csrCountFlag = reg.Bit(16)
	rvrReload    = reg.Field{Shift: 0, Width: 24}
	cvrCurrent   = reg.Field{Shift: 0, Width: 24}
	calibTenMS   = reg.Field{Shift: 0, Width: 24}
	calibNoRef   = reg.Bit(31)
)

// Timer is the SysTick register block.
type Timer struct {
	CSR   reg.Reg32 // control and status
	RVR   reg.Reg32 // reload value
	CVR   reg.Reg32 // current value
	CALIB reg.Reg32 // calibration
}

// New returns the timer whose registers start at base.
func New(bus reg.Bus, base uintptr) *Timer {
	return &Timer{
		CSR:   reg.At32(bus, base),
		RVR:   reg.At32(bus, base+0x4),
		CVR:   reg.At32(bus, base+0x8),
		CALIB: reg.At32(bus, base+0xC),
	}
}

// Options selects the clock source and whether reaching zero raises the
// SysTick exception.
type Options struct {
	CoreClock bool
	Interrupt bool
}

// Configure stops the timer, loads reload, clears the current value and
// applies opts. The timer is left disabled.
func (t *Timer) Configure(reload uint32, opts Options) error {
	if reload == 0 || reload > MaxReload {
		return fmt.Errorf("%w: %d", ErrReload, reload)
	}
	if err := t.Disable(); err != nil {
		return err
	}
	if err := t.RVR.Set(rvrReload, reload); err != nil {
		return err
	}
	// Any write to CVR clears it and COUNTFLAG.
	if err := t.CVR.Write(0); err != nil {
		return err
	}
	if err := t.CSR.Set(csrClkSource, boolBit(opts.CoreClock)); err != nil {
		return err
	}
	return t.CSR.Set(csrTickInt, boolBit(opts.Interrupt))
}

func (t *Timer) Enable() error { return t.CSR.Set(csrEnable, 1) }

func (t *Timer) Disable() error { return t.CSR.Set(csrEnable, 0) }

func (t *Timer) Enabled() (bool, error) {
	v, err := t.CSR.Get(csrEnable)
	return v == 1, err
}

// Current returns the counter value.
func (t *Timer) Current() (uint32, error) { return t.CVR.Get(cvrCurrent) }

// Reload returns the programmed reload value.
func (t *Timer) Reload() (uint32, error) { return t.RVR.Get(rvrReload) }

// CountFlag reports whether the counter reached zero since CSR was last read.
func (t *Timer) CountFlag() (bool, error) {
	v, err := t.CSR.Get(csrCountFlag)
	return v == 1, err
}

// TenMS returns the calibration reload for a 10 ms period, and whether a
// reference clock is implemented.
func (t *Timer) TenMS() (uint32, bool, error) {
	v, err := t.CALIB.Read()
	if err != nil {
		return 0, false, err
	}
	noRef := v&calibNoRef.Mask() != 0
	return (v & calibTenMS.Mask()) >> calibTenMS.Shift, !noRef, nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

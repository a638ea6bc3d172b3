// Package wdog drives the Kinetis K-series watchdog.
//
// Configuration registers are write-protected: software must write the
// unlock sequence to UNLOCK before changing them, and the update window
// closes again shortly after on real hardware.
package wdog

import "github.com/joshuapare/mcukit/periph/reg"

// Base is the watchdog's address on the peripheral bridge.
const Base uintptr = 0x40052000

const (
	unlockKey1  = 0xC520
	unlockKey2  = 0xD928
	refreshKey1 = 0xA602
	refreshKey2 = 0xB480
)

var (
	stctrlhEnable      = reg.Bit(0)
	stctrlhAllowUpdate = reg.Bit(4)
)

// Watchdog is the watchdog register block.
type Watchdog struct {
	STCTRLH reg.Reg16
	STCTRLL reg.Reg16
	TOVALH  reg.Reg16
	TOVALL  reg.Reg16
	REFRESH reg.Reg16
	UNLOCK  reg.Reg16
}

// New returns the watchdog whose registers start at base.
func New(bus reg.Bus, base uintptr) *Watchdog {
	return &Watchdog{
		STCTRLH: reg.At16(bus, base),
		STCTRLL: reg.At16(bus, base+0x2),
		TOVALH:  reg.At16(bus, base+0x4),
		TOVALL:  reg.At16(bus, base+0x6),
		REFRESH: reg.At16(bus, base+0xC),
		UNLOCK:  reg.At16(bus, base+0xE),
	}
}

// Unlock writes the two-word unlock sequence.
func (w *Watchdog) Unlock() error {
	if err := w.UNLOCK.Write(unlockKey1); err != nil {
		return err
	}
	return w.UNLOCK.Write(unlockKey2)
}

// Disable unlocks the watchdog and clears its enable bit, keeping further
// updates allowed.
func (w *Watchdog) Disable() error {
	if err := w.Unlock(); err != nil {
		return err
	}
	if err := w.STCTRLH.Set(stctrlhAllowUpdate, 1); err != nil {
		return err
	}
	return w.STCTRLH.Set(stctrlhEnable, 0)
}

// Enabled reports whether the watchdog is running.
func (w *Watchdog) Enabled() (bool, error) {
	v, err := w.STCTRLH.Get(stctrlhEnable)
	return v == 1, err
}

// SetTimeout unlocks the watchdog and programs its timeout in watchdog clock cycles.
func (w *Watchdog) SetTimeout(cycles uint32) error {
	if err := w.Unlock(); err != nil {
		return err
	}
	if err := w.TOVALH.Write(uint16(cycles >> 16)); err != nil {
		return err
	}
	return w.TOVALL.Write(uint16(cycles))
}

// Timeout returns the programmed timeout.
func (w *Watchdog) Timeout() (uint32, error) {
	hi, err := w.TOVALH.Read()
	if err != nil {
		return 0, err
	}
	lo, err := w.TOVALL.Read()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// Refresh writes the service sequence that restarts the timeout.
func (w *Watchdog) Refresh() error {
	if err := w.REFRESH.Write(refreshKey1); err != nil {
		return err
	}
	return w.REFRESH.Write(refreshKey2)
}

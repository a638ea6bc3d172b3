package sim

import (
	"io"
	"log/slog"
)

// Default memory map, modelled on a Cortex-M4 part with 64 KiB of SRAM.
const (
	DefaultSRAMBase  uintptr = 0x20000000
	DefaultSRAMSize          = 64 * 1024
	DefaultStackSize         = 4 * 1024
	DefaultNumIRQs           = 96

	// SCSBase is the start of the Cortex-M system control space.
	SCSBase uintptr = 0xE000E000
	SCSSize         = 0x1000

	// BridgeBase is the start of the peripheral bridge.
	BridgeBase uintptr = 0x40000000
	BridgeSize         = 0x80000
)

// Config controls the simulated board.
type Config struct {
	// SRAMBase is the logical address SRAM is mapped at.
	SRAMBase uintptr

	// SRAMSize is the amount of SRAM in bytes. Stack and heap are carved from it.
	SRAMSize int

	// StackSize is reserved at the top of SRAM for the main stack.
	// The rest of SRAM is handed out as heap memory.
	StackSize int

	// NumIRQs is the number of external interrupts the NVIC implements.
	NumIRQs int

	// PriorityBits is the number of implemented priority bits (1-8).
	// Unimplemented low bits read back as zero, as on hardware.
	PriorityBits int

	// Logger receives debug output. If nil, logging is discarded.
	Logger *slog.Logger
}

// DefaultConfig returns the default board configuration.
func DefaultConfig() Config {
	return Config{
		SRAMBase:     DefaultSRAMBase,
		SRAMSize:     DefaultSRAMSize,
		StackSize:    DefaultStackSize,
		NumIRQs:      DefaultNumIRQs,
		PriorityBits: 4,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

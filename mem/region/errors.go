package region

import "errors"

var (
	// ErrOutOfRange indicates an offset or length that falls outside the region or space.
	ErrOutOfRange = errors.New("region: out of range")

	// ErrInvalidRange indicates a malformed range: end before begin, or an
	// address span that would wrap past the top of the address space.
	ErrInvalidRange = errors.New("region: invalid range")

	// ErrUnaligned indicates an address that is not aligned for the requested access.
	ErrUnaligned = errors.New("region: unaligned access")
)

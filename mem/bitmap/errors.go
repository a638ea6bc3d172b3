package bitmap

import "errors"

var (
	// ErrOutOfRange indicates a bit index at or beyond Count().
	ErrOutOfRange = errors.New("bitmap: index out of range")

	// ErrAlreadySet indicates a checked set of a bit that was already set.
	ErrAlreadySet = errors.New("bitmap: bit already set")

	// ErrAlreadyClear indicates a checked clear of a bit that was already clear.
	ErrAlreadyClear = errors.New("bitmap: bit already clear")

	// ErrNotFound indicates no run of clear bits long enough exists.
	ErrNotFound = errors.New("bitmap: no free run found")

	// ErrOutOfBounds indicates a bound past the bitmap, or a found run ending past the bound.
	ErrOutOfBounds = errors.New("bitmap: run exceeds bound")
)

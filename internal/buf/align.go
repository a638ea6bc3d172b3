package buf

// Alignment utilities for region and register addressing.

// IsAligned reports whether addr is a multiple of align. align must be a power of two.
func IsAligned(addr uintptr, align uintptr) bool {
	return addr&(align-1) == 0
}

// AlignUp returns n aligned up to the next multiple of align (a power of two).
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
func AlignUp[T ~int | ~uintptr](n, align T) T {
	return (n + align - 1) &^ (align - 1)
}

// AlignDown returns n aligned down to a multiple of align (a power of two).
func AlignDown[T ~int | ~uintptr](n, align T) T {
	return n &^ (align - 1)
}

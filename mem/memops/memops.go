// Package memops implements fill, compare and copy over memory regions.
//
// All writes go through non-inlined store helpers so the compiler cannot
// merge or drop them, which keeps the routines usable on memory that is
// observed from outside the program (DMA buffers, simulated peripherals).
//
// Copy detects overlap between source and destination and switches to a
// direction-aware byte loop (memmove semantics); disjoint copies take a
// word-at-a-time path.
package memops

import (
	"errors"
	"fmt"

	"github.com/joshuapare/mcukit/internal/buf"
	"github.com/joshuapare/mcukit/mem/region"
)

var (
	// ErrOutOfRange indicates a byte count larger than one of the regions.
	ErrOutOfRange = errors.New("memops: count exceeds region")

	// ErrInvalidStep indicates a comparison step width other than 1, 2, 4 or 8.
	ErrInvalidStep = errors.New("memops: invalid step width")
)

// Step is the number of bytes Compare consumes per iteration.
type Step int

const (
	Step1 Step = 1
	Step2 Step = 2
	Step4 Step = 4
	Step8 Step = 8
)

// Set writes v to the first n bytes of r.
func Set(r region.Region, v byte, n int) error {
	if err := checkCount(r, n); err != nil {
		return err
	}
	b := r.Bytes()
	for i := 0; i < n; i++ {
		store8(&b[i], v)
	}
	return nil
}

// Compare lexicographically compares the first n bytes of a and b, eight
// bytes at a time. It returns -1, 0 or +1.
func Compare(a, b region.Region, n int) (int, error) {
	return CompareStep(a, b, n, Step8)
}

// Equal reports whether the first n bytes of a and b match.
func Equal(a, b region.Region, n int) (bool, error) {
	c, err := Compare(a, b, n)
	return c == 0, err
}

// CompareStep is Compare with an explicit step width. Words are read
// big-endian so that numeric order equals byte order; a remainder shorter
// than step is compared byte by byte. The result does not depend on step.
func CompareStep(a, b region.Region, n int, step Step) (int, error) {
	switch step {
	case Step1, Step2, Step4, Step8:
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	if err := checkCount(a, n); err != nil {
		return 0, err
	}
	if err := checkCount(b, n); err != nil {
		return 0, err
	}

	x, y := a.Bytes()[:n], b.Bytes()[:n]
	w := int(step)
	i := 0
	for ; w > 1 && i+w <= n; i += w {
		xa, ya := loadBE(x[i:i+w], step), loadBE(y[i:i+w], step)
		if xa != ya {
			if xa < ya {
				return -1, nil
			}
			return 1, nil
		}
	}
	for ; i < n; i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Copy copies n bytes from src to dst. When the two ranges overlap the copy
// runs in the direction that reads every source byte before it is
// overwritten; otherwise it copies a word at a time.
func Copy(dst, src region.Region, n int) error {
	if err := checkCount(dst, n); err != nil {
		return err
	}
	if err := checkCount(src, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	d, s := dst.Bytes()[:n], src.Bytes()[:n]
	dr, _ := dst.Sub(0, n)
	sr, _ := src.Sub(0, n)
	if dr.Overlaps(sr) {
		if dr.HostAddr() == sr.HostAddr() {
			return nil
		}
		if dr.HostAddr() < sr.HostAddr() {
			for i := 0; i < n; i++ {
				store8(&d[i], s[i])
			}
		} else {
			for i := n - 1; i >= 0; i-- {
				store8(&d[i], s[i])
			}
		}
		return nil
	}

	i := 0
	for ; i+8 <= n; i += 8 {
		store64(d[i:i+8], buf.U64LE(s[i:i+8]))
	}
	for ; i < n; i++ {
		store8(&d[i], s[i])
	}
	return nil
}

func checkCount(r region.Region, n int) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("%w: %d bytes over %s", ErrOutOfRange, n, r)
	}
	return nil
}

func loadBE(b []byte, step Step) uint64 {
	switch step {
	case Step2:
		return uint64(buf.U16BE(b))
	case Step4:
		return uint64(buf.U32BE(b))
	default:
		return buf.U64BE(b)
	}
}

//go:noinline
func store8(p *byte, v byte) {
	*p = v
}

//go:noinline
func store64(b []byte, v uint64) {
	buf.PutU64LE(b, v)
}

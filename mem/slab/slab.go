package slab

import (
	"fmt"

	"github.com/joshuapare/mcukit/internal/buf"
	"github.com/joshuapare/mcukit/mem/bitmap"
	"github.com/joshuapare/mcukit/mem/memops"
	"github.com/joshuapare/mcukit/mem/region"
)

// Placement records where the occupancy bitmap is stored.
type Placement uint8

const (
	// PlacementDead stores the bitmap in the slop after the last block.
	PlacementDead Placement = iota + 1
	// PlacementLeading stores the bitmap in the first blocks of the region.
	PlacementLeading
)

func (p Placement) String() string {
	switch p {
	case PlacementDead:
		return "dead"
	case PlacementLeading:
		return "leading"
	default:
		return fmt.Sprintf("Placement(%d)", uint8(p))
	}
}

// Allocator hands out runs of fixed-size blocks from a region.
type Allocator struct {
	whole     region.Region
	data      region.Region
	occupancy *bitmap.Bitmap
	blockSize int
	blocks    int
	placement Placement

	bitmapBlocks int
	slop         int
}

// Stats is a point-in-time snapshot of an allocator.
type Stats struct {
	BlockSize    int
	Blocks       int
	Free         int
	Used         int
	Placement    Placement
	BitmapBytes  int
	BitmapBlocks int
	Slop         int
}

// New builds an allocator over r with blocks of blockSize bytes. It fails
// with ErrInvalidSize when blockSize is not positive or when no block would
// be left once the bitmap is placed.
func New(r region.Region, blockSize int) (*Allocator, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidSize, blockSize)
	}
	raw := r.Len() / blockSize
	if raw == 0 {
		return nil, fmt.Errorf("%w: %s holds no %d-byte block", ErrInvalidSize, r, blockSize)
	}
	bitmapBytes := buf.CeilDiv(raw, 8)
	bitmapBlocks := buf.CeilDiv(bitmapBytes, blockSize)
	slop := r.Len() - raw*blockSize

	a := &Allocator{whole: r, blockSize: blockSize, slop: slop}
	var bm region.Region
	var err error
	if bitmapBlocks == 1 && slop >= bitmapBytes {
		a.placement = PlacementDead
		if bm, err = r.Sub(raw*blockSize, bitmapBytes); err != nil {
			return nil, err
		}
		if a.data, err = r.Sub(0, raw*blockSize); err != nil {
			return nil, err
		}
	} else {
		if bitmapBlocks >= raw {
			return nil, fmt.Errorf("%w: bitmap needs %d of %d blocks", ErrInvalidSize, bitmapBlocks, raw)
		}
		a.placement = PlacementLeading
		a.bitmapBlocks = bitmapBlocks
		if bm, err = r.Sub(0, bitmapBytes); err != nil {
			return nil, err
		}
		if a.data, err = r.Sub(bitmapBlocks*blockSize, (raw-bitmapBlocks)*blockSize); err != nil {
			return nil, err
		}
	}
	a.blocks = raw - a.bitmapBlocks
	a.occupancy = bitmap.New(bm)
	return a, nil
}

// BlockSize returns the size of one block in bytes.
func (a *Allocator) BlockSize() int { return a.blockSize }

// Blocks returns the number of blocks managed.
func (a *Allocator) Blocks() int { return a.blocks }

// UsedBlocks returns the number of allocated blocks.
func (a *Allocator) UsedBlocks() int { return a.occupancy.Used() }

// FreeBlocks returns the number of unallocated blocks. Bitmap bits past the
// last block are never handed out and are not counted.
func (a *Allocator) FreeBlocks() int {
	return a.occupancy.Free() - (a.occupancy.Count() - a.blocks)
}

// Placement reports where the occupancy bitmap lives.
func (a *Allocator) Placement() Placement { return a.placement }

// Data returns the region blocks are carved from.
func (a *Allocator) Data() region.Region { return a.data }

// Occupancy returns the bitmap tracking allocated blocks. Mutating it
// directly desynchronizes the allocator.
func (a *Allocator) Occupancy() *bitmap.Bitmap { return a.occupancy }

// Stats returns a snapshot of the allocator's counters and layout.
func (a *Allocator) Stats() Stats {
	return Stats{
		BlockSize:    a.blockSize,
		Blocks:       a.blocks,
		Free:         a.FreeBlocks(),
		Used:         a.UsedBlocks(),
		Placement:    a.placement,
		BitmapBytes:  a.occupancy.Region().Len(),
		BitmapBlocks: a.bitmapBlocks,
		Slop:         a.slop,
	}
}

// Alloc allocates n contiguous blocks and returns the region they cover.
// A request larger than the free count fails with ErrInsufficientFree even
// when it also exceeds the managed total.
func (a *Allocator) Alloc(n int) (region.Region, error) {
	if n <= 0 {
		return region.Region{}, fmt.Errorf("%w: %d blocks", ErrInvalidSize, n)
	}
	if n > a.FreeBlocks() {
		return region.Region{}, fmt.Errorf("%w: want %d, %d free", ErrInsufficientFree, n, a.FreeBlocks())
	}
	if n > a.blocks {
		return region.Region{}, fmt.Errorf("%w: %d blocks of %d", ErrInvalidSize, n, a.blocks)
	}
	idx, err := a.occupancy.BoundedFindAndSet(n, a.blocks-1)
	if err != nil {
		return region.Region{}, fmt.Errorf("slab: alloc %d blocks: %w", n, err)
	}
	return a.data.Sub(idx*a.blockSize, n*a.blockSize)
}

// AllocZeroed is Alloc followed by zero-filling the returned blocks.
func (a *Allocator) AllocZeroed(n int) (region.Region, error) {
	r, err := a.Alloc(n)
	if err != nil {
		return region.Region{}, err
	}
	if err := memops.Set(r, 0, r.Len()); err != nil {
		return region.Region{}, err
	}
	return r, nil
}

// Owns reports whether r lies entirely within the data region.
func (a *Allocator) Owns(r region.Region) bool {
	return r.Addr() >= a.data.Addr() && r.End() <= a.data.End()
}

// Free releases the blocks covered by r. r must start on a block boundary
// and span whole blocks. Alignment is judged from the data base for any
// region inside the managed region, so a misaligned pointer into the leading
// bitmap blocks reports ErrUnaligned; aligned regions outside the data blocks
// report ErrForeign. Blocks are released in order with a checked clear; on
// the first failure the remaining blocks of the run stay allocated.
func (a *Allocator) Free(r region.Region) error {
	if r.Addr() < a.whole.Addr() || r.End() > a.whole.End() {
		return fmt.Errorf("%w: %s outside %s", ErrForeign, r, a.whole)
	}
	off := int(r.Addr()) - int(a.data.Addr())
	if off%a.blockSize != 0 || r.Len()%a.blockSize != 0 {
		return fmt.Errorf("%w: %s with %d-byte blocks", ErrUnaligned, r, a.blockSize)
	}
	if !a.Owns(r) {
		return fmt.Errorf("%w: %s outside data blocks %s", ErrForeign, r, a.data)
	}
	n := r.Len() / a.blockSize
	if n == 0 || n > a.UsedBlocks() || n > a.blocks {
		return fmt.Errorf("%w: free %d blocks, %d in use", ErrInvalidSize, n, a.UsedBlocks())
	}
	first := off / a.blockSize
	for i := first; i < first+n; i++ {
		if err := a.occupancy.CheckedClear(i); err != nil {
			return fmt.Errorf("slab: free block %d: %w", i, err)
		}
	}
	return nil
}

// Package slab provides a fixed-block allocator over a memory region.
//
// # Overview
//
// New carves a region into equal blocks of blockSize bytes and tracks their
// occupancy in a bitmap.Bitmap: bit i is set exactly when block i of the data
// region is allocated. Alloc hands out runs of contiguous blocks, always the
// lowest-addressed run that fits; Free returns them.
//
// # Layout
//
// The raw block count is len(region)/blockSize; a trailing partial block
// ("slop") is never handed out. The bitmap needs ceil(raw/8) bytes. Where it
// lives is decided once, at construction:
//
//	PlacementDead:    the bitmap fits in one block AND in the slop.
//	                  It is stored in the slop and every raw block is usable.
//
//	    | blk 0 | blk 1 | blk 2 | blk 3 |bm| slop |
//
//	PlacementLeading: otherwise the bitmap takes the first
//	                  ceil(bitmapBytes/blockSize) blocks.
//
//	    | bitmap | bitmap | blk 0 | ... | blk 125 |
//
// A 4200-byte region with 1024-byte blocks yields 4 usable blocks (dead
// placement); a 1024-byte region with 8-byte blocks yields 126 (two blocks
// hold the 16-byte bitmap).
//
// The bitmap is sized from the raw block count, so it may carry bits past
// the last usable block. Those padding bits stay clear and are subtracted
// from the bitmap's free count when reporting free blocks.
//
// # Partial failure
//
// Free clears blocks one at a time with a checked clear and stops at the
// first error. If a block in the middle of the run was already free, the
// blocks before it are released and the ones after it stay allocated.
//
// # Thread Safety
//
// Allocator does no locking. Wrap every call in a spin.Lock, or use Shared,
// which does exactly that.
package slab

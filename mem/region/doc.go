// Package region provides non-owning views over spans of memory.
//
// # Overview
//
// A Region is a (address, length) pair backed by a byte slice. It never owns
// the memory it describes: the storage must outlive every region derived from
// it, and nothing tracks that at runtime. Regions derived from one another
// (Sub, Tail, SplitAt) share storage and addressing.
//
// # Addresses
//
// Every region carries a logical address. Regions built from host memory
// (FromBytes, Of) use the host address of the first byte. Regions carved from
// a Space use the space's address map, so a simulated SRAM mapped at
// 0x20000000 hands out regions whose Addr starts at 0x20000000 regardless of
// where the host placed the backing bytes.
//
// Overlap detection (Overlaps) always compares the host backing memory, so
// two regions alias exactly when they share bytes.
//
// # Construction
//
//	r := region.FromBytes(make([]byte, 4096))
//	words := region.Of(make([]uint32, 16))   // length is 64 bytes
//
//	sram, _ := region.NewSpace("sram", 0x20000000, backing)
//	heap, _ := sram.Between(0x20000400, 0x20008000)
//
// Between fails with ErrInvalidRange when end is before begin.
//
// # Thread Safety
//
// Regions are plain values with no internal locking. Aliased or overlapping
// regions handed to different callers can silently corrupt each other; that
// is the caller's responsibility.
package region

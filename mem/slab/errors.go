package slab

import "errors"

var (
	// ErrInsufficientFree indicates a request for more blocks than are currently free.
	ErrInsufficientFree = errors.New("slab: insufficient free blocks")

	// ErrInvalidSize indicates a block count or block size the allocator cannot serve:
	// zero, more than the managed total, or more than are in use on free.
	ErrInvalidSize = errors.New("slab: invalid size")

	// ErrUnaligned indicates a freed region whose offset or length is not a
	// whole number of blocks.
	ErrUnaligned = errors.New("slab: region not block aligned")

	// ErrForeign indicates a freed region outside the allocator's data region.
	ErrForeign = errors.New("slab: region not owned by allocator")
)

package slab

import (
	"github.com/joshuapare/mcukit/mem/region"
	"github.com/joshuapare/mcukit/spin"
)

// Shared serializes every call to an Allocator through a spin.Lock.
type Shared struct {
	lock  spin.Lock
	alloc *Allocator
}

// NewShared wraps a. a must not be used directly afterwards.
func NewShared(a *Allocator) *Shared {
	return &Shared{alloc: a}
}

func (s *Shared) Alloc(n int) (region.Region, error) {
	s.lock.Acquire()
	defer s.lock.Unlock()
	return s.alloc.Alloc(n)
}

func (s *Shared) AllocZeroed(n int) (region.Region, error) {
	s.lock.Acquire()
	defer s.lock.Unlock()
	return s.alloc.AllocZeroed(n)
}

func (s *Shared) Free(r region.Region) error {
	s.lock.Acquire()
	defer s.lock.Unlock()
	return s.alloc.Free(r)
}

func (s *Shared) Stats() Stats {
	s.lock.Acquire()
	defer s.lock.Unlock()
	return s.alloc.Stats()
}

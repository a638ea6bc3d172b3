// Package spin provides a busy-waiting mutual exclusion lock.
//
// Lock is a single flag flipped with compare-and-swap. Acquire spins until
// the swap succeeds: there is no queue, no backoff and no fairness between
// contenders, and no timeout. A caller stuck in Acquire or Wait stays there
// until some other context releases the lock.
//
// The lock does not know what it protects. The memory packages (bitmap,
// slab, ringbuf) do no locking of their own; code sharing them across
// goroutines or interrupt handlers pairs Acquire/Release around every
// mutating call:
//
//	l.Acquire()
//	blk, err := a.Alloc(1)
//	_ = l.Release()
package spin

import (
	"errors"

	"go.uber.org/atomic"
)

// ErrNotLocked indicates Release was called on an unlocked Lock.
var ErrNotLocked = errors.New("spin: release of unlocked lock")

// Lock is a spin lock. The zero value is unlocked.
type Lock struct {
	locked atomic.Bool
}

// Acquire spins until the lock moves from unlocked to locked.
func (l *Lock) Acquire() {
	for !l.locked.CompareAndSwap(false, true) {
	}
}

// TryAcquire makes a single attempt to take the lock.
func (l *Lock) TryAcquire() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Release unlocks the lock. It fails with ErrNotLocked when the lock is not held.
func (l *Lock) Release() error {
	if !l.locked.CompareAndSwap(true, false) {
		return ErrNotLocked
	}
	return nil
}

// Wait spins until the lock is observed unlocked, without taking it.
// Another context may re-acquire the lock before Wait's caller acts on
// the observation.
func (l *Lock) Wait() {
	for l.locked.Load() {
	}
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	return l.locked.Load()
}

// Lock acquires l; with Unlock it satisfies sync.Locker.
func (l *Lock) Lock() {
	l.Acquire()
}

// Unlock releases l. Like sync.Mutex, unlocking an unlocked Lock panics.
func (l *Lock) Unlock() {
	if err := l.Release(); err != nil {
		panic(err)
	}
}

// Package sync provides the synchronization primitives used throughout the
// kernel. Every subsystem reachable from both interrupt handlers and the
// syscall dispatcher must only ever use the try-lock API: blocking here
// would deadlock a handler that re-enters a lock already held by the
// dispatcher it interrupted.
package sync

import (
	"sync/atomic"

	"ringzero/kernel"
)

// Spinlock implements a non-blocking mutual-exclusion primitive. Unlike a
// traditional spinlock it never busy-waits; every acquisition attempt either
// succeeds immediately or reports kernel.ErrMutexBusy so the caller can
// decide whether to retry, drop the work, or fail the syscall that is
// currently being serviced.
type Spinlock struct {
	state uint32
}

// TryLock attempts to acquire the lock. It returns nil on success or
// kernel.ErrMutexBusy if the lock is currently held.
func (l *Spinlock) TryLock() *kernel.Error {
	if atomic.SwapUint32(&l.state, 1) != 0 {
		return kernel.ErrMutexBusy
	}
	return nil
}

// Unlock releases a held lock. Calling Unlock while the lock is free has no
// effect.
func (l *Spinlock) Unlock() {
	atomic.StoreUint32(&l.state, 0)
}

// Locked reports whether the lock is currently held. It is intended for
// diagnostics only; the result may be stale by the time the caller observes
// it.
func (l *Spinlock) Locked() bool {
	return atomic.LoadUint32(&l.state) != 0
}

// Package executor implements the cooperative background-coroutine runner
// that the kernel task drives between timer ticks (§2 step 8, §5
// "Scheduling model"): console flush, network poll, and driver
// bottom-halves. Every coroutine yields explicitly and never blocks, so the
// runner itself never blocks either; it bounds how many coroutines may be
// mid-poll at once with a weighted semaphore acquired via TryAcquire,
// matching the kernel's try-lock-not-block discipline (§5, §9).
package executor

import (
	"golang.org/x/sync/semaphore"

	"ringzero/kernel/kfmt/early"
)

// Coroutine is one background bottom-half. Poll is called once per
// executor tick and must return quickly without blocking; it reports
// whether it did any work, purely for diagnostics.
type Coroutine interface {
	Name() string
	Poll() (didWork bool)
}

// maxInFlight is the weight of the semaphore that Tick takes one unit of
// around each Poll. Tick releases that unit before polling the next
// coroutine, so it does not limit how many coroutines one tick polls; a
// coroutine is skipped only when other holders have taken every unit.
const maxInFlight = 8

var (
	coroutines []Coroutine
	sem        = semaphore.NewWeighted(maxInFlight)
)

// Register adds a coroutine to the rotation. Called during driver init,
// before the scheduling loop starts.
func Register(c Coroutine) {
	coroutines = append(coroutines, c)
}

// Tick runs one pass over every registered coroutine. A coroutine whose
// semaphore slot is not immediately available is skipped for this tick
// rather than waited on -- the executor itself must never block, since it
// runs on the kernel task between interrupts.
func Tick() {
	for _, c := range coroutines {
		if !sem.TryAcquire(1) {
			early.Printf("[executor] %s skipped, no slot this tick\n", c.Name())
			continue
		}
		c.Poll()
		sem.Release(1)
	}
}

// Package timer declares the tick-source collaborator interface: the local
// APIC timer calibrated against the ACPI PM timer during boot (§2 step 5).
// The calibration and the driver that owns the APIC registers are external
// (§1); this package only exposes the uptime reading and tick-counter
// primitives the rest of the kernel (the `uptime` syscall, driver timeout
// loops per §5) are written against.
package timer

import "time"

// Source is implemented by the calibrated local APIC timer driver.
type Source interface {
	// Uptime returns the duration elapsed since the timer was calibrated.
	Uptime() time.Duration

	// Ticks returns a monotonically increasing tick counter, used by
	// driver busy-wait loops to detect a Timeout deadline without
	// depending on Uptime's resolution.
	Ticks() uint64
}

var active Source

// Register installs the calibrated timer source.
func Register(src Source) { active = src }

// Uptime returns the duration since boot-time calibration, or zero if no
// timer source has been registered yet.
func Uptime() time.Duration {
	if active == nil {
		return 0
	}
	return active.Uptime()
}

// Ticks returns the current tick counter, or zero if unregistered.
func Ticks() uint64 {
	if active == nil {
		return 0
	}
	return active.Ticks()
}

package task

import (
	"ringzero/kernel/cpu"
	"ringzero/kernel/gdt"
)

// userCodeSelFn and userDataSelFn are package-level so tests can stub the
// GDT selectors without depending on a real descriptor table; in the
// kernel build they are simply gdt.UserCode/gdt.UserData.
var (
	userCodeSelFn = func() uint16 { return gdt.UserCode }
	userDataSelFn = func() uint16 { return gdt.UserData }
	activePDTFn   = cpu.ActivePDT

	// switchContextFn is switchContext itself in the kernel build; tests
	// substitute a fake that simulates the task actually running (e.g. by
	// immediately invoking ReturnTask) without a real ring transition.
	switchContextFn = switchContext
)

// switchContext is the context-switch primitive described in §4.5 and §9's
// "inline assembly islands" note. It saves every callee-relevant register
// of the outgoing context into *from, restores *to, and transfers control --
// synthesizing an IRETQ frame on the kernel stack when to.Mode is ModeUser
// so the transition can cross from ring 0 into ring 3.
//
// The same primitive handles both directions described in §4.5: pushing a
// new task on top (from = suspending context, to = the new task) and
// popping back to a suspended one (from = the exiting context, to = the
// resumed one). Implemented in hand-written amd64 assembly; this
// declaration exists only to pin down the exact calling contract.
func switchContext(from, to *Context)

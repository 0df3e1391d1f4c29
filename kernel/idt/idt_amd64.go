// Package idt installs the interrupt descriptor table described in §4.3:
// the seven statically claimed vectors (debug, breakpoint, double fault,
// GPF, page fault, keyboard and mouse IRQs), the legacy 8259A PIC
// reprogramming sequence, and ClaimVector for drivers that need a free
// vector of their own.
//
// The actual gate-entry trampolines and the LIDT instruction are hand
// assembled, following the same declared-but-asm-implemented contract the
// rest of the kernel uses for privileged primitives (cpu.FlushTLBEntry):
// installIDT, dispatchInterrupt and interruptGateEntries below have no Go
// body.
package idt

import (
	"ringzero/kernel"
	"ringzero/kernel/kfmt"
	"ringzero/kernel/sync"
)

// GateType distinguishes an interrupt gate (which clears IF on entry) from a
// trap gate (which does not), matching the `type` field of §3's
// InterruptGate.
type GateType uint8

const (
	GateInterrupt GateType = iota
	GateTrap
)

// Ring is the minimum privilege level allowed to invoke a gate via the INT
// instruction; it backs the gate's DPL field.
type Ring uint8

const (
	Ring0 Ring = 0
	Ring3 Ring = 3
)

// Statically claimed vectors, per the table in §4.3.
const (
	VectorDebug        uint8 = 0x01
	VectorBreakpoint   uint8 = 0x03
	VectorDoubleFault  uint8 = 0x08
	VectorGPF          uint8 = 0x0D
	VectorPageFault    uint8 = 0x0E
	VectorKeyboardIRQ  uint8 = 0x21
	VectorMouseIRQ     uint8 = 0x2C
)

// dynamicClaimBase is the first vector ClaimVector considers; everything
// below it is reserved for CPU exceptions.
const dynamicClaimBase uint8 = 0x20

const gateCount = 256

// Registers is the full register snapshot delivered to a handler: the
// general-purpose registers saved by the entry trampoline followed by the
// hardware-pushed exception frame (and, for vectors that push one, the
// error code).
type Registers struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64

	// ErrorCode is the CPU-pushed error code for vectors that have one
	// (double fault, GPF, page fault); zero otherwise.
	ErrorCode uint64

	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo writes a register dump in the teacher's layout to w.
func (r *Registers) DumpTo(w interface{ Write([]byte) (int, error) }) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x ERR = %16x\n", r.RIP, r.CS, r.ErrorCode)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// Handler is invoked by dispatchInterrupt when its claimed vector fires.
// Returning lets the trampoline IRETQ back to the interrupted context;
// handlers that need to abandon it entirely (a fatal fault) call
// kernel.Panic or task.ReturnTask instead of returning.
type Handler func(vector uint8, regs *Registers)

// gate is the Go-side record of one vector: its handler, gate type,
// privilege ring and present flag. installIDT packs the table of these
// into the hardware 16-byte descriptors consulted by LIDT.
type gate struct {
	handler  Handler
	gateType GateType
	ring     Ring
	present  bool
}

var (
	table [gateCount]gate
	lock  sync.Spinlock
)

// RegisterStatic installs handler at one of the vectors statically claimed
// by §4.3's table. It fails with ErrAlreadyBound if that slot already holds
// a handler; callers must not retry with a different handler.
func RegisterStatic(vector uint8, gateType GateType, ring Ring, handler Handler) *kernel.Error {
	if lerr := lock.TryLock(); lerr != nil {
		return lerr
	}
	defer lock.Unlock()

	if table[vector].present {
		return kernel.ErrAlreadyBound
	}
	table[vector] = gate{handler: handler, gateType: gateType, ring: ring, present: true}
	return nil
}

// ClaimVector scans vectors from 0x20 upward for the first unassigned slot,
// installs handler there, and returns the claimed vector number. It fails
// with ErrNoFreeVector if every dynamic vector is already bound.
func ClaimVector(handler Handler, gateType GateType) (uint8, *kernel.Error) {
	if lerr := lock.TryLock(); lerr != nil {
		return 0, lerr
	}
	defer lock.Unlock()

	for v := int(dynamicClaimBase); v < gateCount; v++ {
		if !table[v].present {
			table[v] = gate{handler: handler, gateType: gateType, ring: Ring0, present: true}
			return uint8(v), nil
		}
	}
	return 0, kernel.ErrNoFreeVector
}

// IsBound reports whether vector currently holds a handler; it exists for
// assertions in §8's IDT invariant.
func IsBound(vector uint8) bool {
	return table[vector].present
}

// Init installs the statically claimed exception and IRQ vectors, remaps
// the legacy PICs, and loads the resulting table via LIDT, per step 3 of
// the boot sequence.
func Init() *kernel.Error {
	statics := []struct {
		vector   uint8
		gateType GateType
		ring     Ring
		handler  Handler
	}{
		{VectorDebug, GateTrap, Ring3, handleDebug},
		{VectorBreakpoint, GateTrap, Ring3, handleBreakpoint},
		{VectorDoubleFault, GateInterrupt, Ring0, handleDoubleFault},
		{VectorGPF, GateInterrupt, Ring3, handleGPF},
		{VectorPageFault, GateInterrupt, Ring3, handlePageFault},
		{VectorKeyboardIRQ, GateInterrupt, Ring0, handleKeyboardIRQ},
		{VectorMouseIRQ, GateInterrupt, Ring0, handleMouseIRQ},
	}

	for _, s := range statics {
		if err := RegisterStatic(s.vector, s.gateType, s.ring, s.handler); err != nil {
			return err
		}
	}

	remapPIC()
	installIDT()
	return nil
}

// dispatch is called by the asm entry trampolines (by way of the body-less
// dispatchInterrupt contract below) for every vector that fires. A vector
// whose slot is not present, or has no handler, is ignored.
func dispatch(vector uint8, regs *Registers) {
	g := table[vector]
	if !g.present || g.handler == nil {
		return
	}
	g.handler(vector, regs)

	if vector >= 0x20 {
		eoi(vector)
	}
}

// installIDT packs the Go-side `table` into the hardware IDT layout and
// executes LIDT. Implemented in hand-written amd64 assembly.
func installIDT()

// dispatchInterrupt is the entrypoint every generated gate trampoline calls
// with the vector number and a pointer to the register snapshot it pushed.
// It is declared here purely to document the contract the assembly islands
// rely on: the real call happens directly from asm into the unexported
// dispatch function above via a linker symbol, not through this stub.
func dispatchInterrupt()

// interruptGateEntries emits the 256 per-vector trampolines that save
// Registers, call dispatch, and IRETQ. Implemented in hand-written amd64
// assembly.
func interruptGateEntries()

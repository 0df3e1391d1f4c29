package kernel

import (
	"ringzero/kernel/cpu"
	"ringzero/kernel/debug"
	"ringzero/kernel/kfmt/early"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the
	// compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}
)

// FaultContext carries the faulting instruction pointer, and a way to read
// the code bytes at it, at the time a CPU exception triggered a panic, so that
// Panic can print a disassembled instruction alongside the error.
type FaultContext struct {
	RIP    uintptr
	CodeAt func(rip uintptr) []byte
}

// activeFaultCtx is set by the IDT exception handlers immediately before
// calling Panic so that the disassembly can be attached to the printed
// report; it is cleared again once Panic has consumed it.
var activeFaultCtx *FaultContext

// SetFaultContext records the register/instruction context of the exception
// currently being handled. Passing nil clears it.
func SetFaultContext(ctx *FaultContext) {
	activeFaultCtx = ctx
}

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return. Panic also works as a redirection target
// for calls to panic() (resolved via runtime.gopanic).
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	early.Printf("\n-----------------------------------\n")
	if err != nil {
		early.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}

	if ctx := activeFaultCtx; ctx != nil && ctx.CodeAt != nil {
		if code := ctx.CodeAt(ctx.RIP); code != nil {
			if inst, ok := debug.Decode(code); ok {
				early.Printf("faulting instruction at %16x: %s\n", ctx.RIP, inst)
			}
		}
		activeFaultCtx = nil
	}

	early.Printf("*** kernel panic: system halted ***")
	early.Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

package idt

import (
	"ringzero/kernel"
	"ringzero/kernel/cpu"
	"ringzero/kernel/debug"
	"ringzero/kernel/kfmt/early"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/vmm"
	"ringzero/kernel/task"
)

// codeAtFn resolves the bytes at a faulting instruction pointer for
// disassembly; it is a package-level function variable purely so tests can
// stub it without touching real memory.
var codeAtFn = debug.CodeAt

func faultCtx(rip uint64) *kernel.FaultContext {
	return &kernel.FaultContext{RIP: uintptr(rip), CodeAt: codeAtFn}
}

// handleDebug implements vector 0x01 (§4.3): if the current top task carries
// debug info, enter its user-task debugger; otherwise this is a stray
// single-step and the kernel simply quits whatever debug mode it was in.
func handleDebug(_ uint8, regs *Registers) {
	if top := task.Current(); top != nil && top.DebugInfo != nil {
		task.EnterDebugger(top, uintptr(regs.RIP))
		return
	}
	task.QuitDebugMode()
}

// handleBreakpoint implements vector 0x03: panic with the saved frame for
// diagnostics. This vector is also how the `break` syscall asks the task
// model to raise a visible fault in the calling task.
func handleBreakpoint(_ uint8, regs *Registers) {
	kernel.SetFaultContext(faultCtx(regs.RIP))
	kernel.Panic(&kernel.Error{Module: "idt", Message: "breakpoint hit"})
}

// handleDoubleFault implements vector 0x08: always fatal.
func handleDoubleFault(_ uint8, regs *Registers) {
	kernel.SetFaultContext(faultCtx(regs.RIP))
	kernel.Panic(&kernel.Error{Module: "idt", Message: "double fault"})
}

// handleGPF implements vector 0x0D: if a user task is running, dump its
// debug state and return_task(122) without returning to the faulting
// instruction; if the kernel itself faulted, this is unrecoverable.
func handleGPF(_ uint8, regs *Registers) {
	if top := task.Current(); top != nil && top.IsUser() {
		early.Printf("[idt] general protection fault in user task %d at rip=%16x\n", top.ID, regs.RIP)
		task.DumpDebugState(top)
		task.ReturnTask(122)
		return
	}
	kernel.SetFaultContext(faultCtx(regs.RIP))
	kernel.Panic(&kernel.Error{Module: "idt", Message: "general protection fault in kernel context"})
}

// handlePageFault implements vector 0x0E: read CR2, resolve the faulting
// page via the paging editor for diagnostic context, log it, and either
// return_task(123) for a user fault or panic for a kernel fault.
func handlePageFault(_ uint8, regs *Registers) {
	faultAddr := mem.VirtualAddress(cpu.ReadCR2())
	resolved, resolveErr := vmm.Resolve(faultAddr.Page())

	present := regs.ErrorCode&0x1 != 0
	write := regs.ErrorCode&0x2 != 0
	user := regs.ErrorCode&0x4 != 0

	if resolveErr != nil {
		early.Printf("[idt] page fault at %16x (rip=%16x present=%t write=%t user=%t): not mapped\n",
			faultAddr, regs.RIP, present, write, user)
	} else {
		early.Printf("[idt] page fault at %16x (rip=%16x present=%t write=%t user=%t): resolves to %16x\n",
			faultAddr, regs.RIP, present, write, user, resolved.PhysAddr)
	}

	if top := task.Current(); top != nil && top.IsUser() {
		task.ReturnTask(123)
		return
	}

	kernel.SetFaultContext(faultCtx(regs.RIP))
	kernel.Panic(&kernel.Error{Module: "idt", Message: "page fault in kernel context"})
}

// keyboardHandlerFn and mouseHandlerFn are delegated to by the PS/2 IRQ
// vectors. They default to no-ops so the IDT can be brought up before the
// driver layer attaches; device/ps2 (external, §1) overwrites them via
// SetKeyboardHandler/SetMouseHandler during its own init.
var (
	keyboardHandlerFn func()
	mouseHandlerFn    func()
)

// SetKeyboardHandler installs the PS/2 keyboard driver's IRQ bottom half.
func SetKeyboardHandler(fn func()) { keyboardHandlerFn = fn }

// SetMouseHandler installs the PS/2 mouse driver's IRQ bottom half.
func SetMouseHandler(fn func()) { mouseHandlerFn = fn }

func handleKeyboardIRQ(_ uint8, _ *Registers) {
	if keyboardHandlerFn != nil {
		keyboardHandlerFn()
	}
}

func handleMouseIRQ(_ uint8, _ *Registers) {
	if mouseHandlerFn != nil {
		mouseHandlerFn()
	}
}

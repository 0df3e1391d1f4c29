// Package kmain assembles the boot sequence described in §2: it is the one
// place allowed to import every subsystem package, since kernel.Error and
// kernel.Panic (package kernel, the root package) are themselves imported
// by almost all of those subsystems. Keeping the root kernel package free
// of subsystem imports avoids an import cycle; kmain is where the cycle
// would otherwise have to close, so the boot sequence lives here instead of
// in package kernel.
package kmain

import (
	"ringzero/kernel"
	"ringzero/kernel/executor"
	"ringzero/kernel/gdt"
	"ringzero/kernel/hal"
	"ringzero/kernel/hal/bootinfo"
	"ringzero/kernel/idt"
	"ringzero/kernel/kfmt/early"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
	"ringzero/kernel/mem/vmm"
	"ringzero/kernel/msr"
	"ringzero/kernel/syscall"
	"ringzero/kernel/task"
)

// Fixed virtual addresses the boot sequence carves out before any task
// exists. They sit well above any range the firmware's memory map will ever
// report, mirroring the teacher's habit of picking an arbitrary-but-fixed
// high-half layout rather than computing one from the memory map.
const (
	directPhysMapBase mem.VirtualAddress = 0xffff_8000_0000_0000
	kernelHeapBase    mem.VirtualAddress = 0xffff_c000_0000_0000
	kernelHeapSize    mem.Size           = 16 * mem.Mb
	kernelStackTop    mem.VirtualAddress = 0xffff_e000_0000_0000
	doubleFaultStack  mem.VirtualAddress = 0xffff_e000_0010_0000
)

// Kmain is the kernel entrypoint, called by main, the Go symbol the rt0
// trampoline jumps to. It runs the
// eight-step boot sequence from §2: bring up the boot console, the frame
// allocator, the GDT/TSS, the IDT/PIC, the paging editor's identity map and
// kernel heap, the SYSCALL MSRs, the task stack, and finally the background
// executor, then enters the scheduling loop.
//
// Kmain is not expected to return. If it does, the rt0 code halts the CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	bootinfo.Init(bootInfoPtr)

	hal.InitTerminal()
	early.Printf("ringzero: starting\n")

	if err := pmm.Init(); err != nil {
		kernel.Panic(err)
	}

	gdt.Init(kernelStackTop, doubleFaultStack)

	if err := idt.Init(); err != nil {
		kernel.Panic(err)
	}

	if err := vmm.Init(directPhysMapBase, kernelHeapBase, kernelHeapSize); err != nil {
		kernel.Panic(err)
	}

	msr.EnableSyscall(gdt.KernelCode, gdt.UserCode32, syscall.SyscallEntryAddr())

	task.Init()

	early.Printf("ringzero: boot sequence complete, entering scheduling loop\n")
	for {
		executor.Tick()
	}
}

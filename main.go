package main

import "ringzero/kernel/kmain"

// bootInfoPtr is overwritten by the rt0 assembly trampoline before it jumps
// into main, with the physical address of the boot information structure
// handed off by the UEFI loader. It is a package-level variable, rather
// than an argument, so the Go compiler cannot inline main away and strip
// the real kernel code out of the generated object file.
var bootInfoPtr uintptr

// main is the only Go symbol visible from the rt0 initialization code. It
// is a trampoline for the actual kernel entrypoint, kmain.Kmain, invoked
// once rt0 has set up the GDT and a minimal g0 struct so Go code can run on
// the small bootstrap stack the assembly allocated.
//
// main is not expected to return. If it does, the rt0 code halts the CPU.
func main() {
	kmain.Kmain(bootInfoPtr)
}

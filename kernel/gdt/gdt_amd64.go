// Package gdt installs the kernel's global descriptor table: the kernel and
// user code/data segments plus the single TSS used to hold the privileged
// stack pointer the CPU switches to on a ring3 -> ring0 transition, per
// step 3 of the boot sequence (§2).
package gdt

import (
	"ringzero/kernel/cpu"
	"ringzero/kernel/mem"
)

// Selector values. The low two bits of a selector encode the requested
// privilege level, so the user selectors below already carry RPL=3.
const (
	// KernelCode is the ring-0 code segment selector, loaded into CS by
	// the SYSCALL entry and by every interrupt/exception gate.
	KernelCode uint16 = 0x08

	// KernelData is the ring-0 stack/data segment selector.
	KernelData uint16 = 0x10

	// UserCode32 is an unused 32-bit compatibility code segment kept only
	// so the user selectors below land at the SYSRET-required offsets
	// (SYSRET loads SS from STAR's base+8 and the 64-bit CS from base+16,
	// so the base is followed by the data selector and then the code
	// selector).
	UserCode32 uint16 = 0x18

	// UserData is the ring-3 stack/data segment selector (RPL=3).
	UserData uint16 = 0x20 | 3

	// UserCode is the ring-3 64-bit code segment selector (RPL=3).
	UserCode uint16 = 0x28 | 3

	// TSSSelector addresses the single TSS descriptor, which occupies two
	// consecutive 8-byte slots in long mode.
	TSSSelector uint16 = 0x30
)

// entryCount is the number of 8-byte slots in the table: null, kernel code,
// kernel data, user code32 (padding), user data, user code, and two slots
// for the 16-byte TSS descriptor.
const entryCount = 8

// descriptor is one 8-byte GDT entry in the flat, access-byte-driven layout
// x86_64 long mode actually consults (base/limit are ignored for code/data
// segments in long mode except for the TSS descriptor).
type descriptor uint64

func flatDescriptor(access uint8, longMode bool) descriptor {
	var d uint64
	d |= uint64(access) << 40
	if longMode {
		d |= 1 << 53 // L bit: 64-bit code segment
	}
	d |= 1 << 44 // S bit: code/data (not a system segment)
	d |= 1 << 47 // P bit: present
	return descriptor(d)
}

const (
	accessExecutable = 1 << 3
	accessReadWrite  = 1 << 1
	accessDPL3       = 3 << 5
)

// tss is the 64-bit task state segment. The kernel never uses hardware task
// switching; the only fields that matter are RSP0 (the stack the CPU loads
// on a privilege-level change into ring 0) and the first IST slot, which
// Init points at a dedicated double-fault stack. No IDT gate selects an IST
// slot, so the CPU does not switch to that stack on its own.
type tss struct {
	reserved0 uint32
	rsp       [3]uint64
	reserved1 uint64
	ist       [7]uint64
	reserved2 uint64
	reserved3 uint16
	ioMapBase uint16
}

var (
	table   [entryCount]descriptor
	theTSS  tss
	pseudo  [10]byte // {limit uint16, base uint64}, little-endian
	loadFn  = cpu.LoadGDT
	loadTSS = cpu.LoadTSS
)

func tssDescriptor(base uintptr, limit uint32) (descriptor, descriptor) {
	var low uint64
	low |= uint64(limit & 0xffff)
	low |= (uint64(base) & 0xffffff) << 16
	low |= uint64(0x89) << 40 // present, DPL0, type=available 64-bit TSS
	low |= (uint64(limit>>16) & 0xf) << 48
	low |= (uint64(base>>24) & 0xff) << 56

	high := uint64(base) >> 32
	return descriptor(low), descriptor(high)
}

// Init builds the kernel's flat GDT, installs the TSS with the supplied
// ring-0 stack top as RSP0 and the double-fault stack as IST1, and loads
// both via the CPU's privileged LGDT/LTR instructions.
func Init(kernelStackTop, doubleFaultStackTop mem.VirtualAddress) {
	theTSS = tss{}
	theTSS.rsp[0] = uint64(kernelStackTop)
	theTSS.ist[0] = uint64(doubleFaultStackTop)
	theTSS.ioMapBase = uint16(unsafeSizeofTSS())

	table[0] = 0
	table[1] = flatDescriptor(accessExecutable|accessReadWrite, true)
	table[2] = flatDescriptor(accessReadWrite, false)
	table[3] = flatDescriptor(accessExecutable|accessReadWrite, false)
	table[4] = flatDescriptor(accessReadWrite|accessDPL3, false)
	table[5] = flatDescriptor(accessExecutable|accessReadWrite|accessDPL3, true)
	table[6], table[7] = tssDescriptor(tssAddr(), uint32(unsafeSizeofTSS()-1))

	limit := uint16(len(table)*8 - 1)
	base := tableAddr()
	pseudo[0] = byte(limit)
	pseudo[1] = byte(limit >> 8)
	for i := 0; i < 8; i++ {
		pseudo[2+i] = byte(base >> (8 * uint(i)))
	}

	loadFn(pseudoAddr(), KernelData)
	loadTSS(TSSSelector)
}

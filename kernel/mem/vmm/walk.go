package vmm

import (
	"unsafe"

	"ringzero/kernel/mem"
)

// pageLevels is the depth of the x86_64 paging hierarchy: PML4, PDPT, PD, PT.
const pageLevels = 4

// pageLevelBits holds the number of virtual-address bits consumed by each
// paging level's index.
var pageLevelBits = [pageLevels]uint8{9, 9, 9, 9}

// pageLevelShifts holds the bit position of the least-significant bit of
// each level's index field within a virtual address.
var pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}

// pdtVirtualAddr is the virtual address of the top-level table reached
// through the recursive mapping trick: the last PML4 entry points back to
// the PML4 itself, so indexing through it one extra time for each paging
// level yields the table at that level for any virtual address.
const pdtVirtualAddr uintptr = 0xffff_ffff_ffff_f000

// ptePtrFn is used by tests to override the generated page table entry
// pointers; it is automatically inlined by the compiler in the kernel
// build.
var ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
	return unsafe.Pointer(entryAddr)
}

// pageTableWalker is invoked by walk for the page table entry at each
// paging level along the path to a virtual address. Returning false aborts
// the walk.
type pageTableWalker func(level uint8, pte *pageTableEntry) bool

// walk traverses the active page tables from PML4 down to the PT entry that
// would map virtAddr, invoking walkFn at each level via the recursive
// mapping established by pdtVirtualAddr.
func walk(virtAddr uintptr, walkFn pageTableWalker) {
	var (
		level                            uint8
		tableAddr, entryAddr, entryIndex uintptr
	)

	for level, tableAddr = 0, pdtVirtualAddr; level < pageLevels; level, tableAddr = level+1, entryAddr {
		entryIndex = (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entryAddr = tableAddr + (entryIndex << mem.PointerShift)

		if !walkFn(level, (*pageTableEntry)(ptePtrFn(entryAddr))) {
			return
		}

		entryAddr <<= pageLevelBits[level]
	}
}

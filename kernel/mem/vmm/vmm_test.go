package vmm

import (
	"testing"
	"unsafe"

	"ringzero/kernel"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
)

// withFakePageTables wires ptePtrFn, nextAddrFn, frameAllocFn and
// flushTLBEntryFn to a small array of in-process page tables, following the
// same fixture shape the teacher's map_test.go uses to exercise Map without
// privileged instructions or real physical memory.
func withFakePageTables(t *testing.T) (physPages *[pageLevels][mem.PageSize >> mem.PointerShift]pageTableEntry, restore func()) {
	t.Helper()

	origPtePtr, origNextAddr, origFlush, origAlloc := ptePtrFn, nextAddrFn, flushTLBEntryFn, frameAllocFn

	var pages [pageLevels][mem.PageSize >> mem.PointerShift]pageTableEntry
	nextPhysPage := 0

	frameAllocFn = func() (pmm.Frame, *kernel.Error) {
		nextPhysPage++
		return pmm.Frame(uintptr(unsafe.Pointer(&pages[nextPhysPage][0])) >> mem.PageShift), nil
	}

	pteCallCount := 0
	ptePtrFn = func(entry uintptr) unsafe.Pointer {
		pteCallCount++
		pteIndex := (entry & uintptr(mem.PageSize-1)) >> mem.PointerShift
		return unsafe.Pointer(&pages[pteCallCount-1][pteIndex])
	}

	nextAddrFn = func(uintptr) uintptr {
		return uintptr(unsafe.Pointer(&pages[nextPhysPage][0]))
	}

	flushTLBEntryFn = func(uintptr) {}

	restore = func() {
		ptePtrFn, nextAddrFn, flushTLBEntryFn, frameAllocFn = origPtePtr, origNextAddr, origFlush, origAlloc
	}
	return &pages, restore
}

func TestMapSetsLeafAndIntermediateEntries(t *testing.T) {
	pages, restore := withFakePageTables(t)
	defer restore()

	// The address breaks down to p4:256 p3:0 p2:1 p1:0. The
	// fixture's ptePtrFn walks one physPages slot per level
	// regardless of the actual virtual address, so any
	// non-zero, page-aligned address exercises the same four levels.
	va := mem.VirtualAddress(0xffff_8000_0020_0000)

	req := MappingRequest{
		Start:     va,
		End:       va.Offset(uintptr(mem.PageSize)),
		PhysStart: mem.PhysicalAddress(0x30_0000),
		Writable:  true,
		User:      true,
	}

	if err := Map(req); err != nil {
		t.Fatalf("map: %v", err)
	}

	lastLevelEntry := pages[pageLevels-1][(uintptr(va)>>pageLevelShifts[pageLevels-1])&((1<<pageLevelBits[pageLevels-1])-1)]
	if !lastLevelEntry.HasFlags(FlagPresent | FlagRW | FlagUser) {
		t.Fatal("leaf entry missing requested flags")
	}
	if got, want := lastLevelEntry.Frame(), pmm.Frame(0x30_0000>>mem.PageShift); got != want {
		t.Fatalf("leaf entry frame = %d, want %d", got, want)
	}

	for level := 0; level < pageLevels-1; level++ {
		idx := (uintptr(va) >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entry := pages[level][idx]
		if !entry.HasFlags(FlagPresent | FlagRW | FlagUser) {
			t.Fatalf("intermediate entry at level %d missing union permissions", level)
		}
	}
}

func TestMapRejectsMisalignedRange(t *testing.T) {
	req := MappingRequest{
		Start: mem.VirtualAddress(0x1001),
		End:   mem.VirtualAddress(0x2000),
	}
	if err := Map(req); err != kernel.ErrMisalignedRange {
		t.Fatalf("expected ErrMisalignedRange, got %v", err)
	}
}

func TestMapRejectsEmptyRange(t *testing.T) {
	req := MappingRequest{
		Start: mem.VirtualAddress(0x1000),
		End:   mem.VirtualAddress(0x1000),
	}
	if err := Map(req); err != kernel.ErrMisalignedRange {
		t.Fatalf("expected ErrMisalignedRange for empty range, got %v", err)
	}
}

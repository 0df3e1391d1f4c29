package vmm

import (
	"ringzero/kernel"
	"ringzero/kernel/hal/bootinfo"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
)

// Init performs boot step 4 (§2): it identity-maps every region the
// firmware memory map reports as available at directMapBase, records that
// base so mem.PhysicalAddress.GetVirtAddr resolves correctly from this
// point on, and carves out a fixed-size kernel heap region the kernel's own
// allocations live in, separate from any task's address space.
//
// Init must run after pmm.Init (so FrameAllocator.Alloc is usable for the
// heap's backing frames) and before any code calls GetVirtAddr.
func Init(directMapBase mem.VirtualAddress, heapBase mem.VirtualAddress, heapSize mem.Size) *kernel.Error {
	var mapErr *kernel.Error

	bootinfo.VisitMemRegions(func(entry *bootinfo.MemoryMapEntry) bool {
		if entry.Kind != bootinfo.MemAvailable {
			return true
		}

		req := MappingRequest{
			Start:     directMapBase.Offset(uintptr(entry.PhysStart)),
			End:       directMapBase.Offset(uintptr(entry.PhysStart + entry.PageCount*uint64(mem.PageSize))),
			PhysStart: mem.PhysicalAddress(entry.PhysStart),
			Writable:  true,
			NoExecute: true,
		}
		if err := Map(req); err != nil {
			mapErr = err
			return false
		}
		return true
	})
	if mapErr != nil {
		return mapErr
	}

	mem.SetDirectPhysMapBase(directMapBase)

	return initHeap(heapBase, heapSize)
}

// initHeap allocates and maps the frames backing the kernel heap region,
// writable and non-executable, never user-accessible.
func initHeap(heapBase mem.VirtualAddress, heapSize mem.Size) *kernel.Error {
	if heapSize == 0 {
		return nil
	}

	frameCount := (uint64(heapSize) + uint64(mem.PageSize) - 1) / uint64(mem.PageSize)
	run, err := pmm.FrameAllocator.Alloc(frameCount)
	if err != nil {
		return err
	}
	pmm.FrameAllocator.Zero(run)

	req := MappingRequest{
		Start:     heapBase,
		End:       heapBase.Offset(uintptr(frameCount) * uintptr(mem.PageSize)),
		PhysStart: run.PhysStart(),
		Writable:  true,
		NoExecute: true,
	}
	if err := Map(req); err != nil {
		pmm.FrameAllocator.Free(run)
		return err
	}
	return nil
}

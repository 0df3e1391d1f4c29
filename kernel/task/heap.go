package task

import (
	"ringzero/kernel"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
	"ringzero/kernel/mem/vmm"
)

// heapBase is the fixed virtual address a task's sbrk arena starts from,
// positioned past the stack and a generous reserve for the argv area so the
// two regions never collide.
const heapBase = userImageBase + mem.VirtualAddress(stackSize) + mem.VirtualAddress(64*mem.Kb)

// Sbrk implements the `sbrk` syscall (§6, #5): it grows the current task's
// heap by a fresh, zeroed, user-accessible frame run sized to hold len
// bytes and returns its virtual address. A failed Sbrk creates no mapping
// and leaves the task's heap ledger untouched (§7).
func Sbrk(len uint64) (mem.VirtualAddress, *kernel.Error) {
	t := Current()
	if t == nil || !t.IsUser() {
		return 0, kernel.ErrNotInitialized
	}
	if len == 0 {
		return 0, kernel.ErrInvalidLength
	}

	if t.heapNext == 0 {
		t.heapNext = heapBase
	}

	frameCount := (len + uint64(mem.PageSize) - 1) / uint64(mem.PageSize)
	run, err := pmm.FrameAllocator.Alloc(frameCount)
	if err != nil {
		return 0, err
	}
	pmm.FrameAllocator.Zero(run)

	vaStart := t.heapNext
	mapping := vmm.MappingRequest{
		Start:     vaStart,
		End:       vaStart.Offset(uintptr(frameCount) * uintptr(mem.PageSize)),
		PhysStart: run.PhysStart(),
		Writable:  true,
		User:      true,
	}
	if err := vmm.Map(mapping); err != nil {
		pmm.FrameAllocator.Free(run)
		return 0, err
	}

	t.HeapFrames = append(t.HeapFrames, ImageMapping{Frame: run, Mapping: mapping})
	t.heapNext = mapping.End
	return vaStart, nil
}

// FreeHeap implements the `free` syscall (§6, #13): it releases the heap
// run that was returned by a prior Sbrk call starting at ptr. A ptr that
// does not match any live sbrk allocation reports ErrNotMapped.
func FreeHeap(ptr mem.VirtualAddress) *kernel.Error {
	t := Current()
	if t == nil || !t.IsUser() {
		return kernel.ErrNotInitialized
	}

	for i, hm := range t.HeapFrames {
		if hm.Mapping.Start == ptr {
			restoreKernelOnly(hm.Mapping)
			if err := pmm.FrameAllocator.Free(hm.Frame); err != nil {
				return err
			}
			t.HeapFrames = append(t.HeapFrames[:i], t.HeapFrames[i+1:]...)
			return nil
		}
	}
	return kernel.ErrNotMapped
}

// SbrkSize implements the `sbrksz` syscall (§6, #15): it reports the size in
// bytes of the sbrk allocation starting at ptr.
func SbrkSize(ptr mem.VirtualAddress) (uint64, *kernel.Error) {
	t := Current()
	if t == nil || !t.IsUser() {
		return 0, kernel.ErrNotInitialized
	}

	for _, hm := range t.HeapFrames {
		if hm.Mapping.Start == ptr {
			return uint64(hm.Frame.Size()), nil
		}
	}
	return 0, kernel.ErrNotMapped
}

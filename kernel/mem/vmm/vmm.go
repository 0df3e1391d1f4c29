// Package vmm implements the paging editor described in §4.2: given a
// MappingRequest it ensures the active 4-level page tables map the
// requested virtual range to the requested physical range with the
// requested permissions, allocating intermediate tables on demand from the
// frame allocator.
package vmm

import (
	"unsafe"

	"ringzero/kernel"
	"ringzero/kernel/cpu"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
)

var (
	// flushTLBEntryFn is used by tests to override calls to
	// cpu.FlushTLBEntry, which will fault outside of ring 0.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// nextAddrFn is used by tests to override the next-table address
	// calculation used by Map when it clears a freshly allocated
	// intermediate table; it is automatically inlined by the compiler in
	// the kernel build.
	nextAddrFn = func(entryAddr uintptr) uintptr {
		return entryAddr
	}

	// frameAllocFn is used by tests to mock the frame allocator; it is
	// automatically inlined by the compiler in the kernel build.
	frameAllocFn = func() (pmm.Frame, *kernel.Error) {
		run, err := pmm.FrameAllocator.Alloc(1)
		if err != nil {
			return pmm.InvalidFrame, err
		}
		return run.StartFrame, nil
	}
)

// MappingRequest describes a virtual range to map to a physical range with
// a set of permissions, per §3. start and end must be page-aligned and
// end > start.
type MappingRequest struct {
	Start         mem.VirtualAddress
	End           mem.VirtualAddress
	PhysStart     mem.PhysicalAddress
	Writable      bool
	User          bool
	WriteThrough  bool
	CacheDisable  bool
	NoExecute     bool
}

func (r MappingRequest) leafFlags() PageTableEntryFlag {
	flags := FlagPresent
	if r.Writable {
		flags |= FlagRW
	}
	if r.User {
		flags |= FlagUser
	}
	if r.WriteThrough {
		flags |= FlagWriteThrough
	}
	if r.CacheDisable {
		flags |= FlagCacheDisable
	}
	if r.NoExecute {
		flags |= FlagNX
	}
	return flags
}

// ResolvedMapping is the result of a successful resolve(va) walk: the
// physical address the page currently maps to, plus its permission flags.
type ResolvedMapping struct {
	PhysAddr mem.PhysicalAddress
	Writable bool
	User     bool
}

// Map installs page table entries so that [req.Start, req.End) maps to
// [req.PhysStart, req.PhysStart+(End-Start)) with the requested
// permissions, allocating any missing intermediate tables.
//
// Intermediate tables inherit the most permissive union of child requests:
// once FlagUser or FlagRW is set at an intermediate level it is never
// cleared, so that a later kernel-only mapping sharing the same
// intermediate table does not revoke access already granted to a sibling
// page.
func Map(req MappingRequest) *kernel.Error {
	if !req.Start.PageAligned() || !req.End.PageAligned() {
		return kernel.ErrMisalignedRange
	}
	if uintptr(req.End) <= uintptr(req.Start) {
		return kernel.ErrMisalignedRange
	}

	leafFlags := req.leafFlags()

	for va, pa := uintptr(req.Start), uintptr(req.PhysStart); va < uintptr(req.End); va, pa = va+uintptr(mem.PageSize), pa+uintptr(mem.PageSize) {
		var walkErr *kernel.Error
		frame := pmm.Frame(pa >> mem.PageShift)

		walk(va, func(level uint8, pte *pageTableEntry) bool {
			if level == pageLevels-1 {
				*pte = 0
				pte.SetFrame(frame)
				pte.SetFlags(leafFlags)
				flushTLBEntryFn(va)
				return true
			}

			if pte.HasFlags(FlagHugePage) {
				walkErr = kernel.ErrHugePage
				return false
			}

			if !pte.HasFlags(FlagPresent) {
				newFrame, err := frameAllocFn()
				if err != nil {
					walkErr = err
					return false
				}
				*pte = 0
				pte.SetFrame(newFrame)
				pte.SetFlags(FlagPresent | FlagRW)
				if req.User {
					pte.SetFlags(FlagUser)
				}

				nextTableAddr := uintptr(unsafe.Pointer(pte)) << pageLevelBits[level+1]
				mem.Memset(nextAddrFn(nextTableAddr), 0, mem.PageSize)
			} else {
				// Union permissions: never revoke access a
				// sibling subtree already relies on.
				if req.Writable {
					pte.SetFlags(FlagRW)
				}
				if req.User {
					pte.SetFlags(FlagUser)
				}
			}

			return true
		})

		if walkErr != nil {
			return walkErr
		}
	}

	return nil
}

// Unmap clears the present bit for page's final page table entry. It
// returns ErrNotMapped if any intermediate table along the path is absent.
func Unmap(va mem.VirtualAddress) *kernel.Error {
	if !va.PageAligned() {
		return kernel.ErrMisalignedRange
	}

	var err *kernel.Error
	walk(uintptr(va), func(level uint8, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(uintptr(va))
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			err = kernel.ErrNotMapped
			return false
		}
		if pte.HasFlags(FlagHugePage) {
			err = kernel.ErrHugePage
			return false
		}
		return true
	})

	return err
}

// Resolve walks the active page tables without mutation and reports the
// physical address and permissions the given virtual address currently
// maps to, or ErrNotMapped if no mapping exists. It is used by the
// page-fault handler to report diagnostic context.
func Resolve(va mem.VirtualAddress) (ResolvedMapping, *kernel.Error) {
	var (
		result ResolvedMapping
		err    *kernel.Error
	)

	walk(uintptr(va), func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = kernel.ErrNotMapped
			return false
		}

		if level == pageLevels-1 {
			result = ResolvedMapping{
				PhysAddr: pte.Frame().Address(),
				Writable: pte.HasFlags(FlagRW),
				User:     pte.HasFlags(FlagUser),
			}
		}
		return true
	})

	if err != nil {
		return ResolvedMapping{}, err
	}
	return result, nil
}

package pmm

import (
	"ringzero/kernel"
	"ringzero/kernel/mem"
)

// earlyReserveRegion returns the virtual address at which the physical range
// [base, base+size) can be accessed before the paging editor has installed
// its own mappings. The UEFI loader hands the kernel control with the first
// gigabytes of physical memory already identity-mapped, so this is simply
// the identity-mapped form of base; once vmm.Init() installs the permanent
// direct physical map this still holds because identity addresses remain
// valid (they are never unmapped, only superseded by additional mappings
// elsewhere in the address space).
func earlyReserveRegion(base mem.PhysicalAddress, size mem.Size) (mem.VirtualAddress, *kernel.Error) {
	_ = size
	return base.GetVirtAddr(), nil
}

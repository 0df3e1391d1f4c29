package mem

// PhysicalAddress is an opaque 64-bit physical memory address.
type PhysicalAddress uintptr

// VirtualAddress is an opaque 64-bit virtual memory address.
type VirtualAddress uintptr

// directPhysMapBase is the virtual offset at which the paging editor
// identity-maps all usable physical memory during early boot (step 4 of the
// init sequence). GetVirtAddr is only meaningful once that mapping is
// installed.
var directPhysMapBase VirtualAddress

// SetDirectPhysMapBase records the base virtual address of the
// identity-mapped physical memory window. Called once during vmm init.
func SetDirectPhysMapBase(base VirtualAddress) {
	directPhysMapBase = base
}

// GetVirtAddr returns the identity-mapped virtual form of this physical
// address.
func (p PhysicalAddress) GetVirtAddr() VirtualAddress {
	return directPhysMapBase + VirtualAddress(p)
}

// Offset returns a VirtualAddress n bytes past v.
func (v VirtualAddress) Offset(n uintptr) VirtualAddress {
	return v + VirtualAddress(n)
}

// Page returns the page-aligned address that contains v.
func (v VirtualAddress) Page() VirtualAddress {
	return VirtualAddress(uintptr(v) &^ (uintptr(PageSize) - 1))
}

// PageOffset returns the offset of v within its containing page.
func (v VirtualAddress) PageOffset() uintptr {
	return uintptr(v) & (uintptr(PageSize) - 1)
}

// ReadByte performs an untyped volatile read of the byte at v.
func (v VirtualAddress) ReadByte() byte {
	return *(*byte)(ptrOf(v))
}

// WriteByte performs an untyped volatile write of the byte at v.
func (v VirtualAddress) WriteByte(b byte) {
	*(*byte)(ptrOf(v)) = b
}

// PageAligned reports whether v lies on a page boundary.
func (v VirtualAddress) PageAligned() bool {
	return uintptr(v)%uintptr(PageSize) == 0
}

// PageAligned reports whether p lies on a page boundary.
func (p PhysicalAddress) PageAligned() bool {
	return uintptr(p)%uintptr(PageSize) == 0
}

package mem

import (
	"reflect"
	"unsafe"
)

// ptrToByteSlice constructs a []byte view over count bytes starting at the
// given virtual address without involving the Go allocator, mirroring the
// reflect.SliceHeader construction the rest of the kernel uses to view raw
// memory before the heap is available.
func ptrToByteSlice(addr uintptr, count Size) []byte {
	var out []byte
	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&out))
	hdr.Data = addr
	hdr.Len = int(count)
	hdr.Cap = int(count)
	return out
}

// ptrOf converts a VirtualAddress into an unsafe.Pointer for volatile access.
func ptrOf(v VirtualAddress) unsafe.Pointer {
	return unsafe.Pointer(uintptr(v))
}

// ByteSliceAt constructs a []byte view over count bytes starting at the
// given virtual address without involving the Go allocator. It is exported
// for subsystems (the frame allocator's bitmap, the ELF loader's segment
// copies) that need a raw view over memory they manage themselves.
func ByteSliceAt(addr VirtualAddress, count Size) []byte {
	return ptrToByteSlice(uintptr(addr), count)
}

package console

import "unsafe"

func ptrOf(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

package gdt

import "unsafe"

func tableAddr() uintptr {
	return uintptr(unsafe.Pointer(&table[0]))
}

func tssAddr() uintptr {
	return uintptr(unsafe.Pointer(&theTSS))
}

func pseudoAddr() uintptr {
	return uintptr(unsafe.Pointer(&pseudo[0]))
}

func unsafeSizeofTSS() uintptr {
	return unsafe.Sizeof(theTSS)
}

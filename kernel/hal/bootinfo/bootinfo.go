// Package bootinfo parses the boot information structure handed to Kmain by
// the UEFi loader's System V first-argument register. Unlike the legacy
// multiboot2 info blob the teacher parses with a tag-based byte walk, the
// UEFI loader hands the kernel a single fixed-layout struct; bootinfo mirrors
// the teacher's no-heap-allocation, unsafe-pointer-cast style while adapting
// the actual fields to that struct.
package bootinfo

import "unsafe"

// MemoryKind classifies a region reported by the firmware memory map.
type MemoryKind uint32

const (
	// MemReserved indicates memory that is never eligible for allocation.
	MemReserved MemoryKind = iota

	// MemAvailable indicates general-purpose usable memory.
	MemAvailable

	// MemMMIO indicates memory-mapped I/O space.
	MemMMIO

	// MemACPIReclaimable indicates ACPI tables that can be reclaimed once
	// parsed.
	MemACPIReclaimable
)

// MemoryMapEntry describes one contiguous run of physical memory as
// reported by the firmware.
type MemoryMapEntry struct {
	PhysStart uint64
	PageCount uint64
	Kind      MemoryKind
}

// PixelFormat describes the layout of one framebuffer pixel.
type PixelFormat uint8

const (
	PixelFormatRGB PixelFormat = iota
	PixelFormatBGR
	PixelFormatBGRA
)

// GraphicInfo describes the framebuffer handed off by the firmware.
type GraphicInfo struct {
	FramebufAddr uint64
	Width        uint32
	Height       uint32
	Stride       uint32
	PixelFormat  PixelFormat
}

// KernelConfig carries the operator-supplied configuration blob.
type KernelConfig struct {
	InitCwdPath        string
	InitAppExecArgs    string
	HasInitAppExecArgs bool
	MousePointerBmpPath string
}

// bootInfo is the fixed layout handed to Kmain. It mirrors §6 of the boot
// contract: a memory map, a framebuffer descriptor, the RSDP pointer, the
// initramfs base, and the config blob naming the initial program.
type bootInfo struct {
	memMapPtr    uintptr
	memMapLen    uint64
	graphicInfo  GraphicInfo
	rsdpVirtAddr uintptr
	initramfsPhysAddr uintptr
	config       KernelConfig
}

var active *bootInfo

// Init records the boot info pointer handed off by the rt0 trampoline. It
// must be called before any other function in this package.
func Init(ptr uintptr) {
	active = (*bootInfo)(unsafe.Pointer(ptr))
}

// MemRegionVisitor is invoked by VisitMemRegions for each entry in the
// firmware memory map. Returning false aborts the scan early.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// VisitMemRegions walks the firmware-supplied memory map, invoking visitor
// for each entry in order.
func VisitMemRegions(visitor MemRegionVisitor) {
	if active == nil || active.memMapPtr == 0 {
		return
	}

	entries := (*[1 << 20]MemoryMapEntry)(unsafe.Pointer(active.memMapPtr))[:active.memMapLen:active.memMapLen]
	for i := range entries {
		if !visitor(&entries[i]) {
			return
		}
	}
}

// Graphic returns the framebuffer descriptor supplied by the loader.
func Graphic() GraphicInfo {
	if active == nil {
		return GraphicInfo{}
	}
	return active.graphicInfo
}

// RSDPVirtAddr returns the virtual address of the ACPI RSDP table.
func RSDPVirtAddr() uintptr {
	if active == nil {
		return 0
	}
	return active.rsdpVirtAddr
}

// InitramfsPhysAddr returns the physical base address of the initramfs
// image embedded by the loader.
func InitramfsPhysAddr() uintptr {
	if active == nil {
		return 0
	}
	return active.initramfsPhysAddr
}

// Config returns the kernel configuration blob.
func Config() KernelConfig {
	if active == nil {
		return KernelConfig{}
	}
	return active.config
}

// Package pmm implements the physical frame allocator: a single flat bitmap
// that vends and reclaims runs of contiguous 4 KiB frames.
package pmm

import (
	"math"

	"ringzero/kernel/mem"
)

// Frame describes a physical memory frame index.
type Frame uint64

// InvalidFrame is returned by allocators when they fail to reserve the
// requested frame(s).
const InvalidFrame = Frame(math.MaxUint64)

// IsValid reports whether f is a usable frame index.
func (f Frame) IsValid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte of this frame.
func (f Frame) Address() mem.PhysicalAddress {
	return mem.PhysicalAddress(uintptr(f) << mem.PageShift)
}

// MemoryFrame is a run of contiguous 4 KiB physical pages, described by its
// starting frame index and the number of frames it spans. A MemoryFrame
// created with Count > 1 must be released as a single unit.
type MemoryFrame struct {
	StartFrame Frame
	Count      uint64
}

// PhysStart returns the physical address of the first byte of the run.
func (m MemoryFrame) PhysStart() mem.PhysicalAddress {
	return m.StartFrame.Address()
}

// Size returns the size in bytes of the run.
func (m MemoryFrame) Size() mem.Size {
	return mem.PageSize * mem.Size(m.Count)
}

// Package task implements the stack-based model of nested user executions
// described in §4.5: the ELF loader, the per-task resource ledgers, and the
// TaskStack that gives `exec` its bounded-depth call-stack semantics.
package task

import (
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
	"ringzero/kernel/mem/vmm"
)

// FileDescriptorNumber is an opaque file descriptor handle. 0/1/2 are
// reserved for stdin/stdout/stderr; negative raw values are invalid.
type FileDescriptorNumber int64

// IsValid reports whether n could have been produced by a real allocation
// (i.e. is non-negative).
func (n FileDescriptorNumber) IsValid() bool { return n >= 0 }

// WindowID is an opaque window-manager layer handle recorded in a task's
// window ledger.
type WindowID int64

// IsValid reports whether id could have been produced by the window
// manager.
func (id WindowID) IsValid() bool { return id >= 0 }

// Mode distinguishes the always-present kernel task at the bottom of the
// stack from a loaded user task.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeUser
)

// Context is the saved register bank sufficient for a full ring-3 <-> ring-0
// round trip, per §3.
type Context struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64

	RIP    uint64
	RSP    uint64
	RFlags uint64
	CS     uint64
	SS     uint64
	FS     uint64
	GS     uint64
	CR3    uint64

	Mode Mode
}

// ImageMapping pairs one LOAD segment's backing frame with the mapping
// request used to install it, so task destruction can restore kernel-only
// permissions before freeing the frame (§3 lifecycle rules).
type ImageMapping struct {
	Frame   pmm.MemoryFrame
	Mapping vmm.MappingRequest
}

// DebugInfo carries optional debugging metadata for a task; its contents
// are opaque to the core (§3) and supplied by whatever loaded the ELF with
// debug sections intact.
type DebugInfo struct {
	SourcePath string
	EntrySym   string
}

// Task is an executable instance, per §3.
type Task struct {
	ID uint64

	Context Context

	ImageFrames []ImageMapping
	StackFrame  pmm.MemoryFrame
	StackMap    vmm.MappingRequest
	ArgsFrame   *pmm.MemoryFrame
	ArgsMap     vmm.MappingRequest
	HeapFrames  []ImageMapping

	// heapNext is the next free virtual address sbrk will carve a fresh
	// run from; it only ever grows for the life of the task.
	heapNext mem.VirtualAddress

	WindowIDs []WindowID
	FDNums    []FileDescriptorNumber

	DebugInfo *DebugInfo
}

// IsUser reports whether this task runs in ring 3.
func (t *Task) IsUser() bool { return t.Mode() == ModeUser }

// Mode returns the task's execution mode.
func (t *Task) Mode() Mode { return t.Context.Mode }

// stackSize is the fixed size of a task's user stack (typically 1 MiB, §4.5
// step 3).
const stackSize = mem.Mb

package task

import (
	"testing"

	"ringzero/kernel"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
	"ringzero/kernel/mem/vmm"
)

func TestInitPushesKernelTaskAtDepthOne(t *testing.T) {
	Init()
	if Depth() != 1 {
		t.Fatalf("expected depth 1 after Init, got %d", Depth())
	}
	if top := Current(); top == nil || top.IsUser() {
		t.Fatalf("expected the kernel task at the top of a freshly initialized stack")
	}
}

func TestExecRejectsMalformedELFWithoutChangingDepth(t *testing.T) {
	Init()
	before := Depth()

	garbage := []byte("not an ELF file")
	_, err := Exec(garbage, nil)
	if err == nil {
		t.Fatal("expected Exec to reject a non-ELF image")
	}

	if Depth() != before {
		t.Fatalf("rejected exec must leave stack depth unchanged: before=%d after=%d", before, Depth())
	}
}

func TestExecRejectsTruncatedELFHeader(t *testing.T) {
	Init()
	before := Depth()

	if _, err := Exec([]byte{0x7f, 'E', 'L', 'F'}, nil); err == nil {
		t.Fatal("expected Exec to reject a truncated ELF header")
	}
	if Depth() != before {
		t.Fatalf("rejected exec must leave stack depth unchanged: before=%d after=%d", before, Depth())
	}
}

func TestFileDescriptorNumberValidity(t *testing.T) {
	if !FileDescriptorNumber(0).IsValid() {
		t.Fatal("fd 0 must be valid")
	}
	if FileDescriptorNumber(-1).IsValid() {
		t.Fatal("negative fd must be invalid")
	}
}

func TestWindowIDValidity(t *testing.T) {
	if !WindowID(0).IsValid() {
		t.Fatal("window id 0 must be valid")
	}
	if WindowID(-1).IsValid() {
		t.Fatal("negative window id must be invalid")
	}
}

func TestModeReflectsContext(t *testing.T) {
	kernelTask := &Task{Context: Context{Mode: ModeKernel}}
	if kernelTask.IsUser() {
		t.Fatal("a ModeKernel task must not report IsUser")
	}

	userTask := &Task{Context: Context{Mode: ModeUser}}
	if !userTask.IsUser() {
		t.Fatal("a ModeUser task must report IsUser")
	}
}

// mapEvent records one call through mapFn, in call order.
type mapEvent struct {
	phys mem.PhysicalAddress
	user bool
}

// freeEvent records one call through freeFn, in the same call order as any
// interleaved mapEvents.
type freeEvent struct {
	start pmm.Frame
}

// withFakeMapFree stubs mapFn and freeFn so the task lifecycle can be
// exercised without touching real page tables or the real bitmap
// allocator, the same package-level-var indirection switch_amd64.go uses
// for the GDT selectors and the active page table root.
func withFakeMapFree(t *testing.T) (log *[]interface{}, restore func()) {
	t.Helper()

	origMap, origFree := mapFn, freeFn
	events := []interface{}{}

	mapFn = func(req vmm.MappingRequest) *kernel.Error {
		events = append(events, mapEvent{phys: req.PhysStart, user: req.User})
		return nil
	}
	freeFn = func(f pmm.MemoryFrame) *kernel.Error {
		events = append(events, freeEvent{start: f.StartFrame})
		return nil
	}

	return &events, func() { mapFn, freeFn = origMap, origFree }
}

// TestReleaseStackRestoresKernelOnlyBeforeFreeing exercises §3's lifecycle
// rule directly: releasing a frame must first restore kernel-only
// permissions on every page it covers.
func TestReleaseStackRestoresKernelOnlyBeforeFreeing(t *testing.T) {
	log, restore := withFakeMapFree(t)
	defer restore()

	tsk := &Task{
		StackFrame: pmm.MemoryFrame{StartFrame: 42, Count: 1},
		StackMap: vmm.MappingRequest{
			Start:     userImageBase,
			End:       userImageBase.Offset(uintptr(mem.PageSize)),
			PhysStart: pmm.Frame(42).Address(),
			Writable:  true,
			User:      true,
		},
	}

	releaseStack(tsk)

	events := *log
	if len(events) != 2 {
		t.Fatalf("expected one restore-kernel-only map and one free, got %d events: %#v", len(events), events)
	}
	if mapped, ok := events[0].(mapEvent); !ok || mapped.user {
		t.Fatalf("expected the first event to restore kernel-only permissions, got %#v", events[0])
	}
	if _, ok := events[1].(freeEvent); !ok {
		t.Fatalf("expected the second event to free the frame, got %#v", events[1])
	}
}

// TestNestedTaskTeardownRestoresPreviousTaskStackMapping exercises a real
// nested exec -> exit -> resume cycle at the mapping-bookkeeping level
// (§4.5): a child's stack and argv regions share the same fixed VA window
// as every other task's, so when the child exits its frames must be
// released -- and the parent's own stack/argv mappings restored -- without
// ever leaving the shared VA pointed at the child's now-freed frame.
func TestNestedTaskTeardownRestoresPreviousTaskStackMapping(t *testing.T) {
	log, restore := withFakeMapFree(t)
	defer restore()

	sharedStackVA := userImageBase
	sharedArgsVA := userImageBase.Offset(uintptr(stackSize))

	parent := &Task{
		StackFrame: pmm.MemoryFrame{StartFrame: 10, Count: 1},
		StackMap: vmm.MappingRequest{
			Start:     sharedStackVA,
			End:       sharedStackVA.Offset(uintptr(mem.PageSize)),
			PhysStart: pmm.Frame(10).Address(),
			Writable:  true,
			User:      true,
		},
	}
	childArgsFrame := pmm.MemoryFrame{StartFrame: 150, Count: 1}
	child := &Task{
		StackFrame: pmm.MemoryFrame{StartFrame: 99, Count: 1},
		StackMap: vmm.MappingRequest{
			Start:     sharedStackVA,
			End:       sharedStackVA.Offset(uintptr(mem.PageSize)),
			PhysStart: pmm.Frame(99).Address(),
			Writable:  true,
			User:      true,
		},
		ArgsFrame: &childArgsFrame,
		ArgsMap: vmm.MappingRequest{
			Start:     sharedArgsVA,
			End:       sharedArgsVA.Offset(uintptr(mem.PageSize)),
			PhysStart: pmm.Frame(150).Address(),
			Writable:  true,
			User:      true,
		},
	}

	// §4.5 nesting discipline: the parent is suspended (unmapped) before a
	// child would ever be mapped in by buildFromELF.
	unmapVisibleRanges(parent)

	// The child exits: return_task destroys it, then restores the
	// resumed task's (the parent's) own mappings.
	destroy(child)
	remapVisibleRanges(parent)

	events := *log
	last, ok := events[len(events)-1].(mapEvent)
	if !ok {
		t.Fatalf("expected the last recorded event to be a mapping, got %#v", events[len(events)-1])
	}
	if last.phys != parent.StackMap.PhysStart || !last.user {
		t.Fatalf("expected the shared stack VA restored to the parent's own frame (phys=%#x, user=true), got phys=%#x user=%v",
			parent.StackMap.PhysStart, last.phys, last.user)
	}

	stackUnmapIdx, stackFreeIdx := -1, -1
	argsUnmapIdx, argsFreeIdx := -1, -1
	parentRemapIdx := -1
	for i, e := range events {
		switch v := e.(type) {
		case mapEvent:
			if v.phys == child.StackMap.PhysStart && !v.user {
				stackUnmapIdx = i
			}
			if v.phys == child.ArgsMap.PhysStart && !v.user {
				argsUnmapIdx = i
			}
			if v.phys == parent.StackMap.PhysStart && v.user {
				parentRemapIdx = i
			}
		case freeEvent:
			if v.start == child.StackFrame.StartFrame {
				stackFreeIdx = i
			}
			if v.start == childArgsFrame.StartFrame {
				argsFreeIdx = i
			}
		}
	}

	if stackUnmapIdx == -1 || stackFreeIdx == -1 || stackUnmapIdx > stackFreeIdx {
		t.Fatalf("expected the child's stack frame restored to kernel-only before being freed: unmap=%d free=%d", stackUnmapIdx, stackFreeIdx)
	}
	if argsUnmapIdx == -1 || argsFreeIdx == -1 || argsUnmapIdx > argsFreeIdx {
		t.Fatalf("expected the child's argv frame restored to kernel-only before being freed: unmap=%d free=%d", argsUnmapIdx, argsFreeIdx)
	}
	if parentRemapIdx == -1 || parentRemapIdx < stackFreeIdx || parentRemapIdx < argsFreeIdx {
		t.Fatalf("expected the parent's stack remap to happen only after the child's frames were released: remap=%d stackFree=%d argsFree=%d",
			parentRemapIdx, stackFreeIdx, argsFreeIdx)
	}
}

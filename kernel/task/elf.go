package task

import (
	"bytes"
	"debug/elf"

	"ringzero/kernel"
	"ringzero/kernel/mem"
	"ringzero/kernel/mem/pmm"
	"ringzero/kernel/mem/vmm"
)

// userImageBase is an arbitrary, fixed virtual base for every task's stack,
// with the argv area placed directly above the stack, so that neither
// collides with a LOAD segment's own requested virtual addresses; real-world
// ELF executables in this kernel are built
// non-PIE with addresses far below this window.
const userImageBase = mem.VirtualAddress(0x0000_7000_0000_0000)

// mapFn and freeFn are package-level so tests can record or fake the paging
// editor and frame allocator calls the task model makes, the same
// indirection pattern switch_amd64.go uses for the GDT selectors and the
// active page table root.
var (
	mapFn  = vmm.Map
	freeFn = pmm.FrameAllocator.Free
)

// validateELF parses image per §4.5 step 1: reject anything that is not an
// x86_64 executable. It touches no scheduler or mapping state, so Exec can
// call it before deciding whether to unmap the previous top task at all.
func validateELF(image []byte) (*elf.File, *kernel.Error) {
	f, ferr := elf.NewFile(bytes.NewReader(image))
	if ferr != nil {
		return nil, kernel.ErrElfRejected
	}
	if f.Type != elf.ET_EXEC || f.Machine != elf.EM_X86_64 {
		return nil, kernel.ErrElfRejected
	}
	return f, nil
}

// buildFromELF implements §4.5 step 2 against an already-validated ELF
// file: map each LOAD segment, copying p_filesz bytes at the p_vaddr%4096
// offset within its frame so the requested virtual address is honored
// exactly. The caller must have already unmapped whatever user task is
// currently visible, since this installs mappings at the ELF's raw vaddrs.
func buildFromELF(f *elf.File, argv []string) (*Task, *kernel.Error) {
	t := &Task{}
	t.Context.Mode = ModeUser

	var entryFound bool
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		pageOffset := uintptr(prog.Vaddr) % uintptr(mem.PageSize)
		frameCount := (pageOffset + uintptr(prog.Memsz) + uintptr(mem.PageSize) - 1) / uintptr(mem.PageSize)
		if frameCount == 0 {
			continue
		}

		run, err := pmm.FrameAllocator.Alloc(uint64(frameCount))
		if err != nil {
			releaseImageFrames(t)
			return nil, err
		}
		pmm.FrameAllocator.Zero(run)

		segData := make([]byte, prog.Filesz)
		if _, rerr := prog.ReadAt(segData, 0); rerr != nil {
			freeFn(run)
			releaseImageFrames(t)
			return nil, kernel.ErrElfRejected
		}

		dst := mem.ByteSliceAt(run.PhysStart().GetVirtAddr(), run.Size())
		copy(dst[pageOffset:], segData)

		vaStart := mem.VirtualAddress(prog.Vaddr).Page()
		mapping := vmm.MappingRequest{
			Start:     vaStart,
			End:       vaStart.Offset(uintptr(frameCount) * uintptr(mem.PageSize)),
			PhysStart: run.PhysStart(),
			Writable:  prog.Flags&elf.PF_W != 0,
			User:      true,
		}
		if err := mapFn(mapping); err != nil {
			freeFn(run)
			releaseImageFrames(t)
			return nil, err
		}

		t.ImageFrames = append(t.ImageFrames, ImageMapping{Frame: run, Mapping: mapping})

		if f.Entry >= prog.Vaddr && f.Entry < prog.Vaddr+prog.Memsz {
			t.Context.RIP = f.Entry
			entryFound = true
		}
	}

	if !entryFound {
		releaseImageFrames(t)
		return nil, kernel.ErrElfRejected
	}

	if err := buildStack(t); err != nil {
		releaseImageFrames(t)
		return nil, err
	}

	if len(argv) > 0 {
		if err := buildArgv(t, argv); err != nil {
			releaseImageFrames(t)
			releaseStack(t)
			return nil, err
		}
	}

	t.Context.CS = uint64(userCodeSelFn())
	t.Context.SS = uint64(userDataSelFn())
	t.Context.RFlags = rflagsInterruptEnable
	t.Context.CR3 = uint64(activePDTFn())

	return t, nil
}

// rflagsInterruptEnable is the RFLAGS value a freshly built task starts
// with: only the interrupt-enable bit set.
const rflagsInterruptEnable uint64 = 1 << 9

// buildStack allocates the fixed-size user stack frame (§4.5 step 3) and
// chooses an initial RSP aligned to 16 bytes (suitable for SSE).
func buildStack(t *Task) *kernel.Error {
	frameCount := uint64(stackSize / mem.PageSize)
	run, err := pmm.FrameAllocator.Alloc(frameCount)
	if err != nil {
		return err
	}
	pmm.FrameAllocator.Zero(run)

	vaStart := userImageBase.Offset(0)
	mapping := vmm.MappingRequest{
		Start:     vaStart,
		End:       vaStart.Offset(uintptr(stackSize)),
		PhysStart: run.PhysStart(),
		Writable:  true,
		User:      true,
	}
	if err := mapFn(mapping); err != nil {
		freeFn(run)
		return err
	}

	t.StackFrame = run
	t.StackMap = mapping
	stackTop := uintptr(vaStart) + uintptr(stackSize)
	t.Context.RSP = uint64(stackTop &^ 63)
	return nil
}

// buildArgv allocates a dedicated, zeroed, user-accessible frame and lays
// out argc+2 pointer slots followed by the NUL-terminated argument strings,
// per §4.5 step 4. argc is passed in the first integer argument register
// (RDI) and the argv pointer in the second (RSI).
func buildArgv(t *Task, argv []string) *kernel.Error {
	slotsBytes := (len(argv) + 2) * 8
	total := slotsBytes
	for _, a := range argv {
		total += len(a) + 1
	}
	frameCount := uint64((total + int(mem.PageSize) - 1) / int(mem.PageSize))
	if frameCount == 0 {
		frameCount = 1
	}

	run, err := pmm.FrameAllocator.Alloc(frameCount)
	if err != nil {
		return err
	}
	pmm.FrameAllocator.Zero(run)

	vaStart := userImageBase.Offset(uintptr(stackSize))
	mapping := vmm.MappingRequest{
		Start:     vaStart,
		End:       vaStart.Offset(uintptr(frameCount) * uintptr(mem.PageSize)),
		PhysStart: run.PhysStart(),
		Writable:  true,
		User:      true,
	}
	if err := mapFn(mapping); err != nil {
		freeFn(run)
		return err
	}

	buf := mem.ByteSliceAt(run.PhysStart().GetVirtAddr(), run.Size())
	strOffset := slotsBytes
	for i, a := range argv {
		putSlot(buf, i, uint64(vaStart)+uint64(strOffset))
		copy(buf[strOffset:], a)
		buf[strOffset+len(a)] = 0
		strOffset += len(a) + 1
	}
	// Final slot (argv[argc]) stays zero: a NULL terminator for argv.

	t.ArgsFrame = &run
	t.ArgsMap = mapping
	t.Context.RDI = uint64(len(argv))
	t.Context.RSI = uint64(vaStart)
	return nil
}

func putSlot(buf []byte, index int, val uint64) {
	off := index * 8
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(val >> (8 * uint(i)))
	}
}

// unmapVisibleRanges restores kernel-only permissions on every range the
// task model makes user-visible: the LOAD segments plus the stack and argv
// regions, which live at the same fixed VA window for every task (§4.5). It
// is the unmap half of the nesting discipline's push/pop pair -- both
// ranges must move together, or the task being suspended leaves a stale
// user-writable PTE pointing at whatever frame the next task installs
// there.
func unmapVisibleRanges(t *Task) {
	for _, im := range t.ImageFrames {
		restoreKernelOnly(im.Mapping)
	}
	if t.StackFrame.Count != 0 {
		restoreKernelOnly(t.StackMap)
	}
	if t.ArgsFrame != nil {
		restoreKernelOnly(t.ArgsMap)
	}
}

// remapVisibleRanges is the restore half of unmapVisibleRanges, used when a
// task returns to the top of the stack (§4.5 "on pop, the previous top's
// mappings are restored").
func remapVisibleRanges(t *Task) {
	for _, im := range t.ImageFrames {
		mapFn(im.Mapping)
	}
	if t.StackFrame.Count != 0 {
		mapFn(t.StackMap)
	}
	if t.ArgsFrame != nil {
		mapFn(t.ArgsMap)
	}
}

func releaseImageFrames(t *Task) {
	for _, im := range t.ImageFrames {
		restoreKernelOnly(im.Mapping)
		freeFn(im.Frame)
	}
	t.ImageFrames = nil
}

func releaseStack(t *Task) {
	if t.StackFrame.Count == 0 {
		return
	}
	restoreKernelOnly(t.StackMap)
	freeFn(t.StackFrame)
	t.StackFrame = pmm.MemoryFrame{}
	t.StackMap = vmm.MappingRequest{}
}

// restoreKernelOnly remaps a previously user-accessible range back to
// kernel-only permissions. It is the mirror operation used both by the
// nesting discipline (push/pop) and by task destruction before a frame is
// freed, per §3's lifecycle rule that releasing a frame first requires
// restoring kernel-only permissions on every page it covers.
func restoreKernelOnly(req vmm.MappingRequest) {
	mapFn(vmm.MappingRequest{
		Start:     req.Start,
		End:       req.End,
		PhysStart: req.PhysStart,
		Writable:  true,
		User:      false,
	})
}

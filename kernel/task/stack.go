package task

import (
	"ringzero/kernel"
	"ringzero/kernel/external/vfs"
	"ringzero/kernel/external/wm"
	"ringzero/kernel/kfmt/early"
	"ringzero/kernel/mem/vmm"
	"ringzero/kernel/sync"
)

// stack is the process-wide ordered TaskStack from §3. Position 0 is the
// always-present kernel task; every later entry is a suspended user task
// waiting for the nested task above it to return.
var (
	stack    []*Task
	stackMu  sync.Spinlock
	nextID   uint64
	lastExit int
)

// Init pushes the always-present kernel task (position 0), whose stack is
// the statically allocated bootstrap stack the rt0 trampoline already set
// up, and must run before Exec is ever called.
func Init() {
	stack = []*Task{{ID: 0, Context: Context{Mode: ModeKernel}}}
}

// Current returns the running (top-of-stack) task, or nil before Init.
func Current() *Task {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Depth reports the current task stack depth, including the kernel task.
func Depth() int {
	return len(stack)
}

// Exec parses image as an ELF executable, pushes it onto the task stack as
// a new top, and context-switches into it. It returns once the pushed task
// (or one of its own nested execs) eventually exits, yielding that task's
// exit status. A rejected ELF leaves the task stack depth unchanged and
// returns ErrElfRejected, per §7's "a failed syscall leaves all observable
// state unchanged" rule.
func Exec(image []byte, argv []string) (int, *kernel.Error) {
	prev := Current()
	if prev == nil {
		return 0, kernel.ErrNotInitialized
	}

	// Validate the header before touching any mapping state: a malformed
	// or wrong-machine image must leave prev's mappings (and the stack
	// depth) completely untouched.
	f, ferr := validateELF(image)
	if ferr != nil {
		return 0, ferr
	}

	// Nesting discipline (§4.5): unmap the previous top's LOAD, stack and
	// argv ranges before the new task's own are mapped. Non-PIE images
	// commonly share the same raw vaddrs (e.g. 0x400000), and every task's
	// stack/argv sit at the same fixed VA window (§4.5 step 3-4), so
	// mapping next first and unmapping prev second would rewrite the leaf
	// PTEs buildFromELF just installed for next back to kernel-only,
	// immediately #PF-ing it. Grounded on single_scheduler.rs's
	// exec_user_task, which calls unmap_virt_addr() on the current user
	// task before Task::new ever maps the next one.
	unmapVisibleRanges(prev)

	next, err := buildFromELF(f, argv)
	if err != nil {
		remapVisibleRanges(prev)
		return 0, err
	}

	if lerr := stackMu.TryLock(); lerr != nil {
		remapVisibleRanges(prev)
		destroy(next)
		return 0, lerr
	}
	nextID++
	next.ID = nextID
	stack = append(stack, next)
	stackMu.Unlock()

	switchContextFn(&prev.Context, &next.Context)

	// switchContext returns here once ReturnTask has popped next back
	// off the stack and switched back into prev.
	return lastExit, nil
}

// ReturnTask implements return_task(status) from §4.5: it destroys the
// current top task, releasing every ledgered resource in reverse order of
// acquisition, pops it off the stack, restores the new top's mappings, and
// switches back into it carrying status in the process-wide "user exit
// status" cell. It never returns to its caller; control resumes in the
// task Exec originally suspended.
func ReturnTask(status int) {
	if lerr := stackMu.TryLock(); lerr != nil {
		// A syscall dispatcher cannot legally hold this lock while
		// calling ReturnTask (§9's deadlock-avoidance ordering), so
		// contention here indicates a kernel bug; there is nothing
		// safe left to do but panic.
		kernel.Panic(&kernel.Error{Module: "task", Message: "return_task: stack lock unexpectedly busy"})
	}

	if len(stack) < 2 {
		stackMu.Unlock()
		kernel.Panic(kernel.ErrTaskStackEmpty)
	}

	leaving := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	resumed := stack[len(stack)-1]
	lastExit = status
	stackMu.Unlock()

	// Destroy (and so unmap) the leaving task before restoring resumed's
	// mappings: if the two share the same raw non-PIE vaddrs -- and every
	// task's stack/argv region always does, since they sit at the same
	// fixed VA window -- restoring resumed first and then destroying
	// leaving second would have destroy's restoreKernelOnly rewrite the
	// very mapping just installed for resumed back to kernel-only.
	// Grounded on single_scheduler.rs's exec_user_task, which drops the
	// finished task (with_popped_user_task) before remapping the previous
	// one.
	destroy(leaving)

	remapVisibleRanges(resumed)

	switchContextFn(&leaving.Context, &resumed.Context)
}

// destroy releases every frame and external resource in a task's ledgers,
// in reverse order of acquisition, per §3's Task lifecycle rule. Errors
// from the external VFS/WM collaborators are logged but never block
// destruction.
func destroy(t *Task) {
	for i := len(t.FDNums) - 1; i >= 0; i-- {
		if svc, err := vfs.Get(); err == nil {
			if cerr := svc.Close(int(t.FDNums[i])); cerr != nil {
				early.Printf("[task] close fd %d on exit: %s\n", t.FDNums[i], cerr.Error())
			}
		}
	}
	t.FDNums = nil

	for i := len(t.WindowIDs) - 1; i >= 0; i-- {
		if svc, err := wm.Get(); err == nil {
			if werr := svc.RemoveComponent(wm.LayerId(t.WindowIDs[i])); werr != nil {
				early.Printf("[task] remove window %d on exit: %s\n", t.WindowIDs[i], werr.Error())
			}
		}
	}
	t.WindowIDs = nil

	for i := len(t.HeapFrames) - 1; i >= 0; i-- {
		restoreKernelOnly(t.HeapFrames[i].Mapping)
		freeFn(t.HeapFrames[i].Frame)
	}
	t.HeapFrames = nil

	if t.ArgsFrame != nil {
		restoreKernelOnly(t.ArgsMap)
		freeFn(*t.ArgsFrame)
		t.ArgsFrame = nil
		t.ArgsMap = vmm.MappingRequest{}
	}

	releaseStack(t)
	releaseImageFrames(t)
}

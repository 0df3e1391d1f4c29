package task

import "ringzero/kernel/kfmt/early"

// EnterDebugger is invoked by the vector 0x01 handler when the faulting
// task carries DebugInfo. The user-task debugger itself (breakpoint
// stepping, symbol resolution) is an opaque external concern (§3); this
// core only logs the transition so the contract is exercised end to end.
func EnterDebugger(t *Task, rip uintptr) {
	early.Printf("[task] entering debugger for task %d at rip=%16x (%s)\n", t.ID, rip, t.DebugInfo.SourcePath)
}

// QuitDebugMode is invoked when a stray debug trap fires with no debuggable
// task at the top of the stack.
func QuitDebugMode() {
	early.Printf("[task] stray debug trap with no active debug session\n")
}

// DumpDebugState prints whatever debug metadata a faulting task carries,
// alongside its saved register context, before the task is torn down.
func DumpDebugState(t *Task) {
	if t.DebugInfo != nil {
		early.Printf("[task] task %d debug info: source=%s entry=%s\n", t.ID, t.DebugInfo.SourcePath, t.DebugInfo.EntrySym)
	}
	early.Printf("[task] task %d rip=%16x rsp=%16x\n", t.ID, t.Context.RIP, t.Context.RSP)
}

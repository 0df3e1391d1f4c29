package syscall

// syscallEntry is the SYSCALL trampoline's entry point, written in
// hand-assembled amd64 and installed into LSTAR by msr.EnableSyscall. Go
// cannot express it directly because it runs on the caller's stack before
// any Go stack switch or register-saving convention is in effect; it is an
// irreducible assembly island, per §9 "Inline assembly islands".
//
// Contract on entry (enforced by hardware before this address is reached):
//   - RAX holds the syscall number; RDI, RSI, RDX, R10, R8, R9 hold
//     arguments 1-6.
//   - RCX holds the return RIP and R11 holds the caller's RFLAGS, loaded by
//     the SYSCALL instruction itself.
//   - CS/SS are already the kernel pair programmed into STAR.
//
// What the trampoline does, in order:
//  1. Saves RBP, RCX, R11 (the two SYSCALL-clobbered registers plus the
//     frame pointer) onto the current stack.
//  2. Switches onto the syscalling task's kernel-side stack, established by
//     the task model when the task was created, since the caller's
//     ring-3 stack pointer must not be used for kernel-side spills.
//  3. Shifts R10 into RCX so the dispatcher sees arguments in System V
//     order: (num=RAX, arg0=RDI, arg1=RSI, arg2=RDX, arg3=RCX, arg4=R8,
//     arg5=R9).
//  4. Calls Dispatch with that register image and receives its i64 result
//     in RAX.
//  5. Restores R11, RCX, RBP and switches back to the caller's stack.
//  6. Executes SYSRETQ, which reloads RIP from RCX, RFLAGS from R11, and
//     CS/SS from the user pair in STAR.
//
// Go code can call Dispatch directly with known register patterns; the
// assembly itself only runs inside a running kernel.
func syscallEntry()

// SyscallEntryAddr returns the address of the trampoline entry point, for
// installation into LSTAR via msr.EnableSyscall during boot step 7.
func SyscallEntryAddr() uintptr

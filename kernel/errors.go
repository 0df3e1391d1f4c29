package kernel

// The error taxonomy below is raised by name throughout the kernel so that
// callers can distinguish failure kinds with a pointer comparison. Each value
// is a package-level singleton; none of them allocate at the point they are
// returned.
var (
	// ErrOutOfMemory is raised by the frame allocator when no run of the
	// requested length exists.
	ErrOutOfMemory = &Error{Module: "pmm", Message: "out of memory"}

	// ErrDoubleFree is raised by the frame allocator when asked to free a
	// frame that is not currently marked allocated. It indicates a kernel
	// bug and is treated as fatal by callers.
	ErrDoubleFree = &Error{Module: "pmm", Message: "double free of physical frame"}

	// ErrInvalidLength is raised by the frame allocator for alloc(0).
	ErrInvalidLength = &Error{Module: "pmm", Message: "invalid frame run length"}

	// ErrMisalignedRange is raised by the paging editor when a mapping
	// request's start or end address is not page-aligned.
	ErrMisalignedRange = &Error{Module: "vmm", Message: "misaligned virtual address range"}

	// ErrNotMapped is returned by resolve() for a virtual address with no
	// active mapping.
	ErrNotMapped = &Error{Module: "vmm", Message: "virtual address is not mapped"}

	// ErrInvalidFd is raised by the syscall dispatcher when a raw integer
	// cannot be converted into a valid FileDescriptorNumber.
	ErrInvalidFd = &Error{Module: "syscall", Message: "invalid file descriptor"}

	// ErrInvalidLayerId is raised by the syscall dispatcher when a raw
	// integer cannot be converted into a valid LayerId.
	ErrInvalidLayerId = &Error{Module: "syscall", Message: "invalid layer id"}

	// ErrInvalidSocketId is raised by the syscall dispatcher when a raw
	// integer cannot be converted into a valid SocketId.
	ErrInvalidSocketId = &Error{Module: "syscall", Message: "invalid socket id"}

	// ErrNotInitialized is raised when a subsystem is accessed before its
	// init sequence has completed.
	ErrNotInitialized = &Error{Module: "kernel", Message: "subsystem accessed before initialization"}

	// ErrMutexBusy is raised by try_lock-style primitives on contention.
	ErrMutexBusy = &Error{Module: "sync", Message: "lock is held"}

	// ErrInvalidIomsg describes invalid iomsg (syscall 18) framing. The
	// iomsg code in kernel/syscall does not return it; it reports framing
	// errors to the caller as a -1 result.
	ErrInvalidIomsg = &Error{Module: "syscall", Message: "invalid iomsg framing"}

	// ErrTimeout is raised by drivers whose busy-wait loop exceeds its
	// deadline against the local APIC timer tick counter.
	ErrTimeout = &Error{Module: "driver", Message: "operation timed out"}

	// ErrElfRejected is raised by the ELF loader on the wrong type or
	// machine, or on malformed program headers.
	ErrElfRejected = &Error{Module: "task", Message: "elf image rejected"}

	// ErrAlreadyBound is raised by the interrupt plane on a double-claim
	// of a static vector.
	ErrAlreadyBound = &Error{Module: "idt", Message: "interrupt vector already bound"}

	// ErrNoFreeVector is raised when claim_vector finds no null slot.
	ErrNoFreeVector = &Error{Module: "idt", Message: "no free interrupt vector"}

	// ErrHugePage is raised by the paging editor; the kernel only ever
	// produces or consumes 4 KiB pages.
	ErrHugePage = &Error{Module: "vmm", Message: "huge pages are not supported"}

	// ErrTaskStackEmpty is raised by return_task when the task stack only
	// contains the kernel task.
	ErrTaskStackEmpty = &Error{Module: "task", Message: "task stack has no user task to return from"}
)

// Package cpu exposes the arch-specific primitives that Go cannot express
// directly: port I/O, control/model-specific registers, TLB maintenance and
// the privileged instructions used by the paging editor, the interrupt
// plane, and the syscall trampoline. Every function in this file is declared
// without a body; the actual implementation lives in hand-written amd64
// assembly linked alongside the package.
package cpu

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts()

// DisableInterrupts disables interrupt handling (cli).
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt (hlt).
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address
// (invlpg).
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the entire TLB (mov cr3).
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table
// (mov from cr3).
func ActivePDT() uintptr

// ReadCR2 returns the faulting virtual address recorded by the CPU on the
// most recent page fault.
func ReadCR2() uint64

// ReadMSR reads the model-specific register identified by id.
func ReadMSR(id uint32) uint64

// WriteMSR writes val into the model-specific register identified by id.
func WriteMSR(id uint32, val uint64)

// OutB writes a byte to the given I/O port.
func OutB(port uint16, val uint8)

// InB reads a byte from the given I/O port.
func InB(port uint16) uint8

// OutW writes a word to the given I/O port.
func OutW(port uint16, val uint16)

// InW reads a word from the given I/O port.
func InW(port uint16) uint16

// IOWait performs a short delay by writing to an unused port (0x80), giving
// older hardware time to process the previous out/in instruction.
func IOWait()

// ReadCR3 returns the raw value of CR3 (PML4 physical base plus flags).
func ReadCR3() uint64

// WriteCR3 loads CR3 with the supplied value and implicitly flushes the TLB.
func WriteCR3(val uint64)

// RDTSC returns the CPU timestamp counter, used by drivers to implement
// bounded busy-wait loops.
func RDTSC() uint64

// CPUID executes the cpuid instruction for the given leaf and returns
// eax, ebx, ecx, edx.
func CPUID(leaf uint32) (uint32, uint32, uint32, uint32)

// LoadGDT loads the global descriptor table from the descriptor at ptr
// (a packed {limit uint16, base uint64} pseudo-descriptor) and reloads CS
// via a far return, then reloads the data segment registers with sel.
func LoadGDT(ptr uintptr, dataSel uint16)

// LoadTSS loads the task register with the given TSS selector (ltr).
func LoadTSS(sel uint16)

// LoadIDT loads the interrupt descriptor table from the descriptor at ptr
// (a packed {limit uint16, base uint64} pseudo-descriptor).
func LoadIDT(ptr uintptr)

// ReadCR0 returns the raw value of CR0.
func ReadCR0() uint64

// WriteCR0 loads CR0 with the supplied value.
func WriteCR0(val uint64)

// Breakpoint raises a debug exception (int3), trapping into vector 0x03.
func Breakpoint()

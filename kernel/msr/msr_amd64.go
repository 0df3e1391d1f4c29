// Package msr programs the model-specific registers that enable the
// SYSCALL/SYSRET fast path described in §4.4, mirroring the cpu package's
// convention of thin, well-documented wrappers over privileged
// instructions rather than hiding the register semantics behind an opaque
// API.
package msr

import "ringzero/kernel/cpu"

// Model-specific register identifiers used by the SYSCALL enablement
// sequence.
const (
	regEFER  uint32 = 0xC000_0080
	regSTAR  uint32 = 0xC000_0081
	regLSTAR uint32 = 0xC000_0082
	regFMASK uint32 = 0xC000_0084
)

// readMSRFn and writeMSRFn are package-level so tests can exercise
// EnableSyscall's sequencing and register math without reading or writing
// real model-specific registers.
var (
	readMSRFn  = cpu.ReadMSR
	writeMSRFn = cpu.WriteMSR
)

// eferSCE is the System Call Extensions bit of EFER; setting it makes the
// SYSCALL/SYSRET instructions available.
const eferSCE uint64 = 1 << 0

// EnableSyscall programs EFER, STAR, LSTAR and FMASK so that SYSCALL
// transfers control to trampolineEntry with CS loaded from kernelCodeSel
// and SS from kernelCodeSel+8, and SYSRETQ loads SS from userCodeBaseSel+8
// and CS from userCodeBaseSel+16 (the CPU forces RPL 3 on both), per the
// boot sequence in §4.4.
//
// The selectors passed here are selector values without the RPL bits;
// STAR's layout requires the kernel pair and the user pair to each occupy
// two consecutive GDT slots in a fixed order (data immediately following
// code for the SYSCALL side, code immediately following data for the
// SYSRET side), which is exactly how kernel/gdt lays out its table.
func EnableSyscall(kernelCodeSel, userCodeBaseSel uint16, trampolineEntry uintptr) {
	efer := readMSRFn(regEFER)
	writeMSRFn(regEFER, efer|eferSCE)

	// STAR[47:32] = kernel CS (SS = kernel CS + 8 on SYSCALL entry).
	// STAR[63:48] = user CS base (SS = base+8, CS = base+16 on SYSRET),
	// per the SYSRET convention that CS = selector+16, SS = selector+8.
	star := (uint64(kernelCodeSel) << 32) | (uint64(userCodeBaseSel) << 48)
	writeMSRFn(regSTAR, star)

	writeMSRFn(regLSTAR, uint64(trampolineEntry))

	// FMASK = 0: the kernel leaves clearing the trap flag in RFLAGS to
	// the trampoline itself, rather than masking it here, so that the
	// saved copy of RFLAGS used to resume the caller is unaffected.
	writeMSRFn(regFMASK, 0)
}

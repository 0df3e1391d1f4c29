// Package debug disassembles the instruction at a fault site so that
// kernel.Panic can print a human-readable line alongside a raw register
// dump, instead of only a bare instruction pointer.
package debug

import "golang.org/x/arch/x86/x86asm"

// Decode disassembles the single x86-64 instruction at the start of code and
// returns its GNU-syntax text. It reports false if code does not begin with
// a valid instruction.
func Decode(code []byte) (string, bool) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "", false
	}
	return x86asm.GNUSyntax(inst, 0, nil), true
}

// CodeAt returns a byte slice mapping the instruction stream starting at the
// given virtual address, bounded to a single instruction's worst-case
// length. It is wired into kernel.FaultContext.CodeAt by the IDT exception
// handlers.
func CodeAt(rip uintptr) []byte {
	const maxInstrLen = 15
	return (*[maxInstrLen]byte)(ptrOf(rip))[:]
}

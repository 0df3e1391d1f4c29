package msr

import "testing"

func TestEnableSyscallProgramsAllFourRegisters(t *testing.T) {
	savedRead, savedWrite := readMSRFn, writeMSRFn
	defer func() { readMSRFn, writeMSRFn = savedRead, savedWrite }()

	fake := map[uint32]uint64{regEFER: 0}
	readMSRFn = func(id uint32) uint64 { return fake[id] }
	writeMSRFn = func(id uint32, val uint64) { fake[id] = val }

	EnableSyscall(0x08, 0x18, 0xdead_beef)

	if fake[regEFER]&eferSCE == 0 {
		t.Fatalf("expected EFER.SCE set, got 0x%x", fake[regEFER])
	}

	wantStar := (uint64(0x08) << 32) | (uint64(0x18) << 48)
	if fake[regSTAR] != wantStar {
		t.Fatalf("STAR = 0x%x, want 0x%x", fake[regSTAR], wantStar)
	}

	if fake[regLSTAR] != 0xdead_beef {
		t.Fatalf("LSTAR = 0x%x, want 0xdeadbeef", fake[regLSTAR])
	}

	if fake[regFMASK] != 0 {
		t.Fatalf("FMASK = 0x%x, want 0", fake[regFMASK])
	}
}

func TestEnableSyscallPreservesOtherEFERBits(t *testing.T) {
	savedRead, savedWrite := readMSRFn, writeMSRFn
	defer func() { readMSRFn, writeMSRFn = savedRead, savedWrite }()

	const preexistingBit uint64 = 1 << 11 // NXE, unrelated to SCE
	fake := map[uint32]uint64{regEFER: preexistingBit}
	readMSRFn = func(id uint32) uint64 { return fake[id] }
	writeMSRFn = func(id uint32, val uint64) { fake[id] = val }

	EnableSyscall(0x08, 0x18, 0x1000)

	if fake[regEFER]&preexistingBit == 0 {
		t.Fatalf("expected pre-existing EFER bits preserved, got 0x%x", fake[regEFER])
	}
	if fake[regEFER]&eferSCE == 0 {
		t.Fatalf("expected SCE also set, got 0x%x", fake[regEFER])
	}
}

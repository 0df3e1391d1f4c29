package gdt

import "testing"

func TestInitLoadsTSSSelectorAndKernelData(t *testing.T) {
	savedLoad, savedLoadTSS := loadFn, loadTSS
	defer func() { loadFn, loadTSS = savedLoad, savedLoadTSS }()

	var gotPtr uintptr
	var gotDataSel, gotTSSSel uint16
	loadFn = func(ptr uintptr, dataSel uint16) { gotPtr = ptr; gotDataSel = dataSel }
	loadTSS = func(sel uint16) { gotTSSSel = sel }

	Init(0x1000, 0x2000)

	if gotDataSel != KernelData {
		t.Fatalf("expected LoadGDT dataSel=KernelData, got 0x%x", gotDataSel)
	}
	if gotTSSSel != TSSSelector {
		t.Fatalf("expected LoadTSS(TSSSelector), got 0x%x", gotTSSSel)
	}
	if gotPtr != pseudoAddr() {
		t.Fatalf("expected LoadGDT called with the pseudo-descriptor address")
	}
}

func TestInitSetsTSSStackPointers(t *testing.T) {
	savedLoad, savedLoadTSS := loadFn, loadTSS
	defer func() { loadFn, loadTSS = savedLoad, savedLoadTSS }()
	loadFn = func(uintptr, uint16) {}
	loadTSS = func(uint16) {}

	Init(0xaaaa, 0xbbbb)

	if theTSS.rsp[0] != 0xaaaa {
		t.Fatalf("expected RSP0 = 0xaaaa, got 0x%x", theTSS.rsp[0])
	}
	if theTSS.ist[0] != 0xbbbb {
		t.Fatalf("expected IST1 = 0xbbbb, got 0x%x", theTSS.ist[0])
	}
}

func TestTSSDescriptorEncodesBaseAcrossAllThreeFields(t *testing.T) {
	const base = uintptr(0x1_2345_6789)
	low, high := tssDescriptor(base, 0xff)

	if uint64(low)&0xffff != 0xff {
		t.Fatalf("expected limit 0xff in low descriptor, got 0x%x", uint64(low)&0xffff)
	}
	reconstructedLow24 := (uint64(low) >> 16) & 0xffffff
	reconstructedHigh8 := (uint64(low) >> 56) & 0xff
	reconstructedTop32 := uint64(high)

	got := reconstructedLow24 | (reconstructedHigh8 << 24) | (reconstructedTop32 << 32)
	if got != uint64(base) {
		t.Fatalf("reconstructed base = 0x%x, want 0x%x", got, uint64(base))
	}
}

package debug

import "testing"

func TestDecodeNop(t *testing.T) {
	text, ok := Decode([]byte{0x90})
	if !ok {
		t.Fatal("expected NOP to decode")
	}
	if text == "" {
		t.Fatal("expected non-empty disassembly text")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, ok := Decode([]byte{0x06}); ok {
		t.Fatal("expected undefined opcode to fail to decode")
	}
}

// Package serial implements the 16550 UART boot log sink. It is the
// "external collaborator" device referenced by the specification's
// interface-only driver boundary: the kernel depends on it only through the
// io.Writer/io.ByteWriter methods consumed by kernel/hal, never on register
// layout details beyond what Init needs.
package serial

import "ringzero/kernel/cpu"

// COM1 is the conventional I/O port base for the first serial adapter.
const COM1 uint16 = 0x3f8

const (
	regData        = 0
	regIntEnable    = 1
	regDivisorLow   = 0
	regDivisorHigh  = 1
	regFIFOCtrl     = 2
	regLineCtrl     = 3
	regModemCtrl    = 4
	regLineStatus   = 5
	lineStatusEmpty = 1 << 5
)

// Port drives a single 16550-compatible UART for plain-text logging.
type Port struct {
	base uint16
}

// Init programs the UART for 38400 baud, 8N1, with FIFOs enabled, and
// disables the UART's own interrupt sources since the kernel polls it.
func (p *Port) Init(base uint16) {
	p.base = base

	cpu.OutB(base+regIntEnable, 0x00)
	cpu.OutB(base+regLineCtrl, 0x80) // enable DLAB to set the baud divisor
	cpu.OutB(base+regDivisorLow, 0x03)
	cpu.OutB(base+regDivisorHigh, 0x00)
	cpu.OutB(base+regLineCtrl, 0x03) // 8 bits, no parity, one stop bit
	cpu.OutB(base+regFIFOCtrl, 0xc7)
	cpu.OutB(base+regModemCtrl, 0x0b)
}

// Write implements io.Writer, busy-waiting for the transmit holding register
// to empty before each byte.
func (p *Port) Write(data []byte) (int, error) {
	for _, b := range data {
		p.WriteByte(b)
	}
	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (p *Port) WriteByte(b byte) error {
	for cpu.InB(p.base+regLineStatus)&lineStatusEmpty == 0 {
		cpu.IOWait()
	}
	cpu.OutB(p.base+regData, b)
	return nil
}

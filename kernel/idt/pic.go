package idt

import "ringzero/kernel/cpu"

// Legacy 8259A I/O ports. The PIC pair is programmed once during Init and
// then only ever touched again to send EOI.
const (
	picMasterCmd  uint16 = 0x20
	picMasterData uint16 = 0x21
	picSlaveCmd   uint16 = 0xA0
	picSlaveData  uint16 = 0xA1

	icw1Init       uint8 = 0x11 // ICW4 present, cascade mode, edge-triggered
	icw4Mode8086   uint8 = 0x01
	picEOICommand  uint8 = 0x20

	// masterOffset/slaveOffset are the vector bases the master and slave
	// PICs are remapped to, per §4.3: IRQ0..7 -> 0x20..0x27, IRQ8..15 ->
	// 0x28..0x2F.
	masterOffset uint8 = 0x20
	slaveOffset  uint8 = 0x28
)

// remapPIC masks both PICs, issues the ICW1-ICW4 sequence to remap the
// master to 0x20 and the slave to 0x28 with cascade on IRQ2, then unmasks
// everything (keeping the slave's cascade bit set on the master so slave
// IRQs can still reach the CPU).
func remapPIC() {
	cpu.OutB(picMasterData, 0xff)
	cpu.OutB(picSlaveData, 0xff)

	cpu.OutB(picMasterCmd, icw1Init)
	cpu.IOWait()
	cpu.OutB(picSlaveCmd, icw1Init)
	cpu.IOWait()

	cpu.OutB(picMasterData, masterOffset)
	cpu.IOWait()
	cpu.OutB(picSlaveData, slaveOffset)
	cpu.IOWait()

	cpu.OutB(picMasterData, 1<<2) // tell master: slave lives on IRQ2
	cpu.IOWait()
	cpu.OutB(picSlaveData, 2) // tell slave its cascade identity
	cpu.IOWait()

	cpu.OutB(picMasterData, icw4Mode8086)
	cpu.IOWait()
	cpu.OutB(picSlaveData, icw4Mode8086)
	cpu.IOWait()

	// Unmask everything except nothing: both masks are cleared, leaving
	// the cascade line (IRQ2 on the master) enabled so slave interrupts
	// can propagate.
	cpu.OutB(picMasterData, 0x00)
	cpu.OutB(picSlaveData, 0x00)
}

// eoi sends the end-of-interrupt command to the master PIC, and to the
// slave as well when the firing vector originated on the slave (IRQ >= 8,
// i.e. vector >= slaveOffset).
func eoi(vector uint8) {
	if vector >= slaveOffset {
		cpu.OutB(picSlaveCmd, picEOICommand)
	}
	cpu.OutB(picMasterCmd, picEOICommand)
}

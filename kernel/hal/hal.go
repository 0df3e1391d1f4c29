// Package hal wires the boot-time output devices together so the rest of
// the kernel can log without knowing which concrete device backs it,
// mirroring the teacher's hal.ActiveTerminal indirection.
package hal

import (
	"ringzero/device/console"
	"ringzero/device/serial"
	"ringzero/kernel/hal/bootinfo"
	"ringzero/kernel/kfmt"
)

var (
	// ActiveTerminal is the concrete output device every kfmt.Printf call
	// is eventually routed to. It is a concrete type rather than an
	// io.Writer so that early callers can use it before the Go itables
	// required for interface dispatch are safe to touch.
	ActiveTerminal = &serial.Port{}

	// FramebufferConsole is the boot-time linear framebuffer surface.
	// InitTerminal clears it; it has no text rendering of its own, and
	// panic output is not drawn on it.
	FramebufferConsole = &console.Device{}
)

// InitTerminal brings up the serial log sink and the framebuffer console per
// step 1 of the boot sequence, then routes kfmt.Printf to the serial sink,
// flushing anything buffered before this call.
func InitTerminal() {
	ActiveTerminal.Init(serial.COM1)
	FramebufferConsole.Init(bootinfo.Graphic())
	FramebufferConsole.Clear()
	kfmt.SetOutputSink(ActiveTerminal)
}

// Package console implements the minimal linear-framebuffer surface that
// hal.InitTerminal sets up and clears at boot. Real glyph rendering,
// scrolling text and window composition belong to the windowing service
// described by §6's external interfaces and are out of scope here; this
// device only knows how to clear the screen and flood-fill a solid color.
// kernel.Panic does not draw on it; panic output goes to the serial log.
package console

import "ringzero/kernel/hal/bootinfo"

// Device is a direct-framebuffer drawing surface.
type Device struct {
	addr          uintptr
	width, height uint32
	stride        uint32
	format        bootinfo.PixelFormat
}

// Init records the framebuffer geometry handed off by the firmware. The
// framebuffer's physical address must already be identity- or
// direct-mapped by the time Init runs.
func (d *Device) Init(info bootinfo.GraphicInfo) {
	d.addr = uintptr(info.FramebufAddr)
	d.width = info.Width
	d.height = info.Height
	d.stride = info.Stride
	d.format = info.PixelFormat
}

// bytesPerPixel returns the pixel stride in bytes for the known formats.
func (d *Device) bytesPerPixel() uint32 {
	switch d.format {
	case bootinfo.PixelFormatBGRA:
		return 4
	default:
		return 3
	}
}

// Fill paints the entire framebuffer with a single packed color value,
// truncated to the format's bytes-per-pixel.
func (d *Device) Fill(color uint32) {
	if d.addr == 0 {
		return
	}

	bpp := d.bytesPerPixel()
	row := make([]byte, d.stride)
	for x := uint32(0); x < d.width; x++ {
		off := x * bpp
		for b := uint32(0); b < bpp; b++ {
			row[off+b] = byte(color >> (8 * b))
		}
	}

	base := (*[1 << 30]byte)(ptrOf(d.addr))
	for y := uint32(0); y < d.height; y++ {
		copy(base[y*d.stride:y*d.stride+d.stride], row)
	}
}

// Clear blanks the framebuffer to black.
func (d *Device) Clear() {
	d.Fill(0)
}

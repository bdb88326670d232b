// Package ppu is the display controller: a black box that consumes
// bus-owned VRAM/OAM/palette memory and emits scanline pixels on command
// (spec §6). It owns DISPCNT/DISPSTAT/VCOUNT and the VCOUNT-match
// interrupt the original source raises alongside H/V-blank (SPEC_FULL §5).
package ppu

import (
	"GoBA/internal/interfaces"
	"image"
	"image/color"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160
)

// VRAMSource supplies the raw bytes the PPU renders from; the bus is the
// only implementation, matching spec §6's "memory ... is owned by the bus
// and read by the PPU at render time".
type VRAMSource interface {
	Palette() []byte
	VRAM() []byte
	OAM() []byte
}

type PPU struct {
	mem VRAMSource
	irq interfaces.InterruptController

	frame *image.RGBA

	vcount  uint16
	dispcnt uint16
	dispstat uint16
}

func New(irq interfaces.InterruptController) *PPU {
	return &PPU{
		irq:   irq,
		frame: image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
}

// SetMemory wires the bus as the VRAM/OAM/palette source once it exists;
// PPU and bus are constructed in the order bus needs the PPU, so this
// breaks the cycle the way the system object wires it (spec §9's
// "cross-references ... avoid long-lived back-pointers" note, applied as
// a single post-construction hookup rather than any ongoing callback).
func (p *PPU) SetMemory(mem VRAMSource) { p.mem = mem }

func (p *PPU) VCount() uint16 { return p.vcount }

func (p *PPU) ReadRegister(off uint32) uint8 {
	switch off {
	case 0:
		return uint8(p.dispcnt)
	case 1:
		return uint8(p.dispcnt >> 8)
	case 4:
		return uint8(p.dispstat)
	case 5:
		return uint8(p.dispstat >> 8)
	case 6:
		return uint8(p.vcount)
	case 7:
		return uint8(p.vcount >> 8)
	default:
		return 0
	}
}

func (p *PPU) WriteRegister(off uint32, value uint8) {
	switch off {
	case 0:
		p.dispcnt = (p.dispcnt &^ 0xFF) | uint16(value)
	case 1:
		p.dispcnt = (p.dispcnt &^ 0xFF00) | uint16(value)<<8
	case 4:
		// Bits 0-2 (VBlank/HBlank/VCounter flags) are hardware-set,
		// read-only; only the IRQ-enable bits and VCOUNT-setting byte
		// are writable.
		p.dispstat = (p.dispstat &^ 0xFF38) | (uint16(value) & 0xF8)
	case 5:
		p.dispstat = (p.dispstat &^ 0xFF00) | uint16(value)<<8
	// VCOUNT (offsets 6-7) is read-only.
	default:
	}
}

func (p *PPU) vcountSetting() uint16 { return p.dispstat >> 8 }
func (p *PPU) vcountIRQEnabled() bool { return p.dispstat&0x20 != 0 }
func (p *PPU) hblankIRQEnabled() bool { return p.dispstat&0x10 != 0 }
func (p *PPU) vblankIRQEnabled() bool { return p.dispstat&0x08 != 0 }

// NotifyHBlankStart sets DISPSTAT's HBlank flag and raises the HBlank IRQ
// if enabled.
func (p *PPU) NotifyHBlankStart() {
	p.dispstat |= 0x02
	if p.hblankIRQEnabled() {
		p.irq.Request(interfaces.IRQHBlank)
	}
}

func (p *PPU) NotifyHBlankEnd() {
	p.dispstat &^= 0x02
}

// NotifyVBlankStart sets DISPSTAT's VBlank flag and raises the VBlank IRQ
// if it is enabled. VCOUNT and the VCounter-match IRQ are handled by
// AdvanceScanline, not here.
func (p *PPU) NotifyVBlankStart() {
	p.dispstat |= 0x01
	if p.vblankIRQEnabled() {
		p.irq.Request(interfaces.IRQVBlank)
	}
}

func (p *PPU) NotifyVBlankEnd() {
	p.dispstat &^= 0x01
}

// AdvanceScanline moves VCOUNT to the next line (wrapping at 228) and
// updates the VCOUNT-match flag/IRQ (SPEC_FULL §5, supplemented from the
// original source's main-loop VCOUNT compare).
func (p *PPU) AdvanceScanline() {
	p.vcount = (p.vcount + 1) % 228
	if p.vcount == p.vcountSetting() {
		p.dispstat |= 0x04
		if p.vcountIRQEnabled() {
			p.irq.Request(interfaces.IRQVCount)
		}
	} else {
		p.dispstat &^= 0x04
	}
}

// RenderScanline draws one visible line (mode 3's 16-bit bitmap only;
// every other mode is painted black — background/sprite compositing is
// explicitly out of the core's scope).
func (p *PPU) RenderScanline(y int) {
	if y < 0 || y >= ScreenHeight || p.mem == nil {
		return
	}
	mode := p.dispcnt & 0x7
	if mode != 3 {
		for x := 0; x < ScreenWidth; x++ {
			p.frame.SetRGBA(x, y, color.RGBA{A: 255})
		}
		return
	}
	vram := p.mem.VRAM()
	rowStart := y * ScreenWidth * 2
	for x := 0; x < ScreenWidth; x++ {
		i := rowStart + x*2
		if i+1 >= len(vram) {
			break
		}
		px := uint16(vram[i]) | uint16(vram[i+1])<<8
		r := uint8(px&0x1F) * 8
		g := uint8((px>>5)&0x1F) * 8
		b := uint8((px>>10)&0x1F) * 8
		p.frame.SetRGBA(x, y, color.RGBA{r, g, b, 255})
	}
}

// RenderFrame renders every visible scanline and returns the completed
// framebuffer.
func (p *PPU) RenderFrame() *image.RGBA {
	for y := 0; y < ScreenHeight; y++ {
		p.RenderScanline(y)
	}
	return p.frame
}

func (p *PPU) Frame() *image.RGBA { return p.frame }

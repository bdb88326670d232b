package ppu

import (
	"testing"

	"GoBA/internal/interfaces"
)

type fakeIRQ struct {
	interfaces.InterruptController
	requested []interfaces.IRQLine
}

func (f *fakeIRQ) Request(line interfaces.IRQLine) { f.requested = append(f.requested, line) }

type fakeMem struct {
	pal, vram, oam []byte
}

func (m *fakeMem) Palette() []byte { return m.pal }
func (m *fakeMem) VRAM() []byte    { return m.vram }
func (m *fakeMem) OAM() []byte     { return m.oam }

func TestVCountWrapsAt228(t *testing.T) {
	p := New(&fakeIRQ{})
	for i := 0; i < 227; i++ {
		p.AdvanceScanline()
	}
	if p.VCount() != 227 {
		t.Fatalf("VCOUNT = %d, want 227", p.VCount())
	}
	p.AdvanceScanline()
	if p.VCount() != 0 {
		t.Fatalf("VCOUNT should wrap to 0 after line 227, got %d", p.VCount())
	}
}

func TestVCountMatchRaisesIRQ(t *testing.T) {
	irq := &fakeIRQ{}
	p := New(irq)
	p.WriteRegister(4, 0x20)  // VCounter IRQ enable
	p.WriteRegister(5, 5)     // VCOUNT-setting = 5

	for i := 0; i < 5; i++ {
		p.AdvanceScanline()
	}
	if p.VCount() != 5 {
		t.Fatalf("VCOUNT = %d, want 5", p.VCount())
	}
	if len(irq.requested) != 1 || irq.requested[0] != interfaces.IRQVCount {
		t.Fatalf("expected one IRQVCount request at the matching line, got %v", irq.requested)
	}
}

func TestDISPSTATBlankFlagsAreHardwareOwned(t *testing.T) {
	p := New(&fakeIRQ{})
	p.WriteRegister(4, 0xFF) // attempt to set every bit, including flags
	if p.dispstat&0x07 != 0 {
		t.Fatal("VBlank/HBlank/VCounter flag bits must not be writable from the CPU side")
	}
	if p.dispstat&0xF8 != 0xF8 {
		t.Fatal("IRQ-enable and VCOUNT-setting-low bits should accept the write")
	}
}

func TestNotifyHBlankStartRaisesIRQWhenEnabled(t *testing.T) {
	irq := &fakeIRQ{}
	p := New(irq)
	p.WriteRegister(4, 0x10) // HBlank IRQ enable

	p.NotifyHBlankStart()
	if p.dispstat&0x02 == 0 {
		t.Fatal("HBlank flag should be set")
	}
	if len(irq.requested) != 1 || irq.requested[0] != interfaces.IRQHBlank {
		t.Fatalf("expected IRQHBlank, got %v", irq.requested)
	}
}

func TestRenderScanlineMode3(t *testing.T) {
	p := New(&fakeIRQ{})
	p.WriteRegister(0, 3) // DISPCNT mode 3
	vram := make([]byte, ScreenWidth*ScreenHeight*2)
	// Pixel (0,0): pure red, 5 bits set.
	vram[0] = 0x1F
	vram[1] = 0x00
	mem := &fakeMem{vram: vram}
	p.SetMemory(mem)

	p.RenderScanline(0)
	r, g, b, a := p.Frame().At(0, 0).RGBA()
	if r>>8 != 248 || g>>8 != 0 || b>>8 != 0 || a>>8 != 255 {
		t.Fatalf("pixel(0,0) = (%d,%d,%d,%d), want (248,0,0,255)", r>>8, g>>8, b>>8, a>>8)
	}
}

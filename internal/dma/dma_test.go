package dma

import (
	"testing"

	"GoBA/internal/interfaces"
)

// fakeBus is a flat byte-addressable memory stub that charges 1 cycle per
// access regardless of AccessType, just enough to exercise transfer
// mechanics without pulling in the real bus's wait-state model.
type fakeBus struct {
	mem map[uint32]uint8
}

func newFakeBus() *fakeBus { return &fakeBus{mem: make(map[uint32]uint8)} }

func (b *fakeBus) Read8(addr uint32, _ interfaces.AccessType) (uint8, int) {
	return b.mem[addr], 1
}
func (b *fakeBus) Write8(addr uint32, v uint8, _ interfaces.AccessType) int {
	b.mem[addr] = v
	return 1
}
func (b *fakeBus) Read16(addr uint32, _ interfaces.AccessType) (uint16, int) {
	lo, hi := b.mem[addr], b.mem[addr+1]
	return uint16(lo) | uint16(hi)<<8, 1
}
func (b *fakeBus) Write16(addr uint32, v uint16, _ interfaces.AccessType) int {
	b.mem[addr] = uint8(v)
	b.mem[addr+1] = uint8(v >> 8)
	return 1
}
func (b *fakeBus) Read32(addr uint32, _ interfaces.AccessType) (uint32, int) {
	v, _ := b.Read16(addr, interfaces.Sequential)
	v2, _ := b.Read16(addr+2, interfaces.Sequential)
	return uint32(v) | uint32(v2)<<16, 1
}
func (b *fakeBus) Write32(addr uint32, v uint32, _ interfaces.AccessType) int {
	b.Write16(addr, uint16(v), interfaces.Sequential)
	b.Write16(addr+2, uint16(v>>16), interfaces.Sequential)
	return 1
}

type fakeIRQ struct {
	interfaces.InterruptController
	requested []interfaces.IRQLine
}

func (f *fakeIRQ) Request(line interfaces.IRQLine) { f.requested = append(f.requested, line) }

func TestDMAImmediateHalfwordTransfer(t *testing.T) {
	bus := newFakeBus()
	for i := uint32(0); i < 8; i++ {
		bus.mem[0x1000+i] = uint8(i + 1)
	}
	irq := &fakeIRQ{}
	ctl := New(irq)

	ctl.channels[0].SAD = 0x1000
	ctl.channels[0].DAD = 0x2000
	ctl.channels[0].CNT_L = 4
	ctl.WriteCNT_H(0, 0x8000) // enable, immediate start, halfword

	if !ctl.AnyActive() {
		t.Fatal("channel should be active after immediate-start enable")
	}
	ctl.Run(bus)

	for i := uint32(0); i < 8; i++ {
		if bus.mem[0x2000+i] != bus.mem[0x1000+i] {
			t.Fatalf("byte %d not copied: got %02X want %02X", i, bus.mem[0x2000+i], bus.mem[0x1000+i])
		}
	}
	if ctl.AnyActive() {
		t.Fatal("channel should be inactive after a non-repeating transfer completes")
	}
}

func TestDMAPriorityOrder(t *testing.T) {
	bus := newFakeBus()
	irq := &fakeIRQ{}
	ctl := New(irq)

	// Channel 2 and channel 0 both trigger on VBlank; 0 must run to
	// completion first regardless of channel-array iteration order.
	for _, idx := range []int{0, 2} {
		ctl.channels[idx].SAD = 0x1000
		ctl.channels[idx].DAD = 0x3000 + uint32(idx)*0x100
		ctl.channels[idx].CNT_L = 1
		ctl.WriteCNT_H(idx, 0x9000) // enable, VBlank start, halfword
	}
	ctl.Trigger(TimingVBlank)

	if ctl.highestPriorityActive().index != 0 {
		t.Fatalf("expected channel 0 to have priority, got %d", ctl.highestPriorityActive().index)
	}
	ctl.Run(bus)
	if ctl.channels[0].active || ctl.channels[2].active {
		t.Fatal("both single-unit channels should have completed")
	}
}

func TestDMARepeatReloadsCount(t *testing.T) {
	bus := newFakeBus()
	irq := &fakeIRQ{}
	ctl := New(irq)

	ctl.channels[1].SAD = 0x1000
	ctl.channels[1].DAD = 0x2000
	ctl.channels[1].CNT_L = 2
	ctl.WriteCNT_H(1, 0x8000|0x0200|0x2000) // enable, repeat, HBlank start

	ctl.Trigger(TimingHBlank)
	ctl.Run(bus)
	if !ctl.channels[1].enabled() {
		t.Fatal("repeat channel should remain enabled after completion")
	}
	if ctl.channels[1].active {
		t.Fatal("repeat channel should go idle until its next trigger")
	}

	ctl.Trigger(TimingHBlank)
	if ctl.channels[1].countWork != 2 {
		t.Fatalf("reload should restore count to 2, got %d", ctl.channels[1].countWork)
	}
}

func TestDMAIRQOnCompletion(t *testing.T) {
	bus := newFakeBus()
	irq := &fakeIRQ{}
	ctl := New(irq)

	ctl.channels[3].SAD = 0x1000
	ctl.channels[3].DAD = 0x2000
	ctl.channels[3].CNT_L = 1
	ctl.WriteCNT_H(3, 0x8000|0x4000)

	ctl.Run(bus)
	if len(irq.requested) != 1 || irq.requested[0] != interfaces.IRQDMA3 {
		t.Fatalf("expected a single IRQDMA3 request, got %v", irq.requested)
	}
}

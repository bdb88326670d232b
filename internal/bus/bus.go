// Package bus implements the GBA's memory-mapped peripheral bus (C1, C2):
// address decoding, region dispatch, access-width rules, the rotated-read
// quirk, and WAITCNT-driven wait-state accounting. It also owns the
// VRAM/OAM/palette banks the PPU reads at render time (§6) and the raw
// I/O register backing store for anything not claimed by a typed setter.
package bus

import (
	"GoBA/internal/cartridge"
	"GoBA/internal/dma"
	"GoBA/internal/interfaces"
	"GoBA/internal/irq"
	"GoBA/internal/joypad"
	"GoBA/internal/memory"
	"GoBA/internal/ppu"
	"GoBA/internal/timer"
	"GoBA/util/dbg"
)

const (
	ioStart  = 0x04000000
	ioSize   = 0x400
	palStart = 0x05000000
	palSize  = 0x400
	vramSize = 0x18000 // 96 KiB; mirrored into a 128 KiB window
	vramWin  = 0x20000
	oamStart = 0x07000000
	oamSize  = 0x400

	romWS0End = 0x09FFFFFF
	romWS1Start = 0x0A000000
	romWS1End = 0x0BFFFFFF
	romWS2Start = 0x0C000000
	romWS2End = 0x0DFFFFFF
	romWS0Start = 0x08000000
	romBlock  = 0x20000 // 128 KiB first-access-forces-N granularity

	sramStart = 0x0E000000
	sramEnd   = 0x0E00FFFF
)

// Register offsets this bus intercepts directly rather than leaving in
// the flat backing store (every other I/O byte is plain storage).
const (
	regDISPSTAT = 0x004
	regKEYINPUT = 0x130
	regKEYCNT   = 0x132
	regIE       = 0x200
	regIF       = 0x202
	regIME      = 0x208
	regWAITCNT  = 0x204
	regHALTCNT  = 0x301
)

var waitStateNCycles = [4]int{4, 3, 2, 8}
var waitState0SCycles = [2]int{2, 1}
var waitState1SCycles = [2]int{4, 1}
var waitState2SCycles = [2]int{8, 1}

// Bus is the single owner of everything memory-mapped: RAM banks live in
// their own small packages, but VRAM/OAM/palette and the raw I/O register
// file live here because so many of their bytes carry side effects that
// belong to the bus's own dispatch, not to any one peripheral.
type Bus struct {
	bios  *memory.BIOS
	ewram *memory.EWRAM
	iwram *memory.IWRAM
	cart  *cartridge.Cartridge

	palette [palSize]byte
	vram    [vramSize]byte
	oam     [oamSize]byte
	ioRegs  [ioSize]byte

	ppu     *ppu.PPU
	dmaCtrl *dma.Controller
	timers  *timer.Controller
	irqCtrl *irq.Controller
	keys    *joypad.Joypad

	waitcnt uint16
	ws0N    int
	ws0S    int
	ws1N    int
	ws1S    int
	ws2N    int
	ws2S    int
	sramN   int

	lastROMBlock [3]uint32 // one per wait-state window, block index+1 (0 = none yet)
	halted       bool
}

var _ interfaces.BusInterface = (*Bus)(nil)

// New wires a bus to its peripherals. cart may be nil until a ROM is
// loaded (SetCartridge); cart-space accesses before that behave as
// open bus.
func New(bios *memory.BIOS, cart *cartridge.Cartridge, p *ppu.PPU, d *dma.Controller, t *timer.Controller, ic *irq.Controller, kp *joypad.Joypad) *Bus {
	b := &Bus{
		bios:    bios,
		ewram:   memory.NewEWRAM(),
		iwram:   memory.NewIWRAM(),
		cart:    cart,
		ppu:     p,
		dmaCtrl: d,
		timers:  t,
		irqCtrl: ic,
		keys:    kp,
	}
	b.decodeWaitcnt(0)
	return b
}

func (b *Bus) SetCartridge(cart *cartridge.Cartridge) { b.cart = cart }

// Halted reports the HALTCNT-driven low-power mode (SPEC_FULL §5): the
// BIOS Halt SWI writes this undocumented register to suspend CPU stepping
// until an IRQ arrives.
func (b *Bus) Halted() bool        { return b.halted }
func (b *Bus) ClearHalt()          { b.halted = false }
func (b *Bus) Palette() []byte     { return b.palette[:] }
func (b *Bus) VRAM() []byte        { return b.vram[:] }
func (b *Bus) OAM() []byte         { return b.oam[:] }

// decodeWaitcnt caches WAITCNT's N/S cycle counts; re-run on every write
// (§3: "the bus caches the decoded counts and invalidates on write").
func (b *Bus) decodeWaitcnt(v uint16) {
	b.waitcnt = v
	b.sramN = waitStateNCycles[v&0x3]
	b.ws0N = waitStateNCycles[(v>>2)&0x3]
	b.ws0S = waitState0SCycles[(v>>4)&0x1]
	b.ws1N = waitStateNCycles[(v>>5)&0x3]
	b.ws1S = waitState1SCycles[(v>>7)&0x1]
	b.ws2N = waitStateNCycles[(v>>8)&0x3]
	b.ws2S = waitState2SCycles[(v>>10)&0x1]
}

// romWindow resolves an address within 0x08000000-0x0DFFFFFF to a window
// index (0/1/2) and that window's cached N/S costs.
func (b *Bus) romWindow(addr uint32) (winIdx int, n, s int) {
	switch {
	case addr <= romWS0End:
		return 0, b.ws0N, b.ws0S
	case addr <= romWS1End:
		return 1, b.ws1N, b.ws1S
	default:
		return 2, b.ws2N, b.ws2S
	}
}

// romAccessCost charges n/s per the access hint, forcing NONSEQUENTIAL on
// the first access of each 128 KiB block regardless of the caller's hint
// (§4.1 step 5).
func (b *Bus) romAccessCost(addr uint32, at interfaces.AccessType) int {
	winIdx, n, s := b.romWindow(addr)
	block := addr/romBlock + 1
	forced := b.lastROMBlock[winIdx] != block
	b.lastROMBlock[winIdx] = block
	if forced || at == interfaces.Nonsequential {
		return n
	}
	return s
}

func (b *Bus) regionCost(addr uint32, at interfaces.AccessType, widthIsWord bool) int {
	switch {
	case addr <= memory.BIOS_END:
		return 1
	case addr >= memory.EWRAM_START && addr <= 0x02FFFFFF:
		if widthIsWord {
			return 6
		}
		return 3
	case addr >= memory.IWRAM_START && addr <= 0x03FFFFFF:
		return 1
	case addr >= ioStart && addr <= 0x04FFFFFF:
		return 1
	case addr >= palStart && addr <= 0x05FFFFFF:
		if widthIsWord {
			return 2
		}
		return 1
	case addr >= 0x06000000 && addr <= 0x06FFFFFF:
		if widthIsWord {
			return 2
		}
		return 1
	case addr >= oamStart && addr <= 0x07FFFFFF:
		return 1
	case addr >= romWS0Start && addr <= romWS2End:
		cost := b.romAccessCost(addr, at)
		if widthIsWord {
			// 32-bit ROM access is two halfword bus cycles: one N, one S.
			_, _, s := b.romWindow(addr)
			return cost + s
		}
		return cost
	case addr >= sramStart && addr <= sramEnd:
		return b.sramN
	default:
		return 1
	}
}

func mirror(addr, base, size uint32) uint32 {
	return (addr - base) % size
}

// Read8 implements interfaces.BusInterface.
func (b *Bus) Read8(addr uint32, at interfaces.AccessType) (uint8, int) {
	return b.read8(addr), b.regionCost(addr, at, false)
}

func (b *Bus) read8(addr uint32) uint8 {
	switch {
	case addr <= memory.BIOS_END:
		return b.bios.Read8(addr)
	case addr >= memory.EWRAM_START && addr <= 0x02FFFFFF:
		return b.ewram.Read8(mirror(addr, memory.EWRAM_START, memory.EWRAM_SIZE))
	case addr >= memory.IWRAM_START && addr <= 0x03FFFFFF:
		return b.iwram.Read8(mirror(addr, memory.IWRAM_START, memory.IWRAM_SIZE))
	case addr >= ioStart && addr <= 0x04FFFFFF:
		return b.readIO8(mirror(addr, ioStart, ioSize))
	case addr >= palStart && addr <= 0x05FFFFFF:
		return b.palette[mirror(addr, palStart, palSize)]
	case addr >= 0x06000000 && addr <= 0x06FFFFFF:
		return b.vram[vramOffset(mirror(addr, 0x06000000, vramWin))]
	case addr >= oamStart && addr <= 0x07FFFFFF:
		return b.oam[mirror(addr, oamStart, oamSize)]
	case addr >= romWS0Start && addr <= romWS2End:
		if b.cart == nil {
			return uint8((addr / 2) & 0xFF)
		}
		return b.cart.ReadROM8(addr)
	case addr >= sramStart && addr <= sramEnd:
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.ReadSave(addr - sramStart)
	default:
		return uint8((addr / 2) & 0xFF)
	}
}

// vramOffset folds the 128 KiB mirror window down onto the real 96 KiB
// bank: the last 32 KiB of the window repeats the bank's last 32 KiB
// (0x10000-0x17FFF), matching the documented (simplified) hardware mirror.
func vramOffset(winOffset uint32) uint32 {
	if winOffset < vramSize {
		return winOffset
	}
	return 0x10000 + (winOffset-vramSize)%0x8000
}

// Read16 composes two byte reads for every region except cart ROM, where
// the open-bus formula for an out-of-range access depends on the
// word-aligned address, not each byte's own (different) address: that
// formula is only correct when computed once, by the cartridge itself, so
// ROM reads are delegated to ReadROM16 rather than reassembled here.
func (b *Bus) Read16(addr uint32, at interfaces.AccessType) (uint16, int) {
	aligned := addr &^ 1
	var v uint16
	if b.cart != nil && aligned >= romWS0Start && aligned <= romWS2End {
		v = b.cart.ReadROM16(aligned)
	} else {
		lo := uint16(b.read8(aligned))
		hi := uint16(b.read8(aligned + 1))
		v = lo | hi<<8
	}
	if addr&1 != 0 {
		v = rotateRight16(v, 8)
	}
	return v, b.regionCost(aligned, at, false)
}

// Read32 delegates to ReadROM32 for the same reason Read16 delegates to
// ReadROM16: see its comment.
func (b *Bus) Read32(addr uint32, at interfaces.AccessType) (uint32, int) {
	aligned := addr &^ 3
	var v uint32
	if b.cart != nil && aligned >= romWS0Start && aligned <= romWS2End {
		v = b.cart.ReadROM32(aligned)
	} else {
		b0 := uint32(b.read8(aligned))
		b1 := uint32(b.read8(aligned + 1))
		b2 := uint32(b.read8(aligned + 2))
		b3 := uint32(b.read8(aligned + 3))
		v = b0 | b1<<8 | b2<<16 | b3<<24
	}
	if addr&3 != 0 {
		v = rotateRight32(v, (addr&3)*8)
	}
	return v, b.regionCost(aligned, at, true)
}

func rotateRight16(v uint16, n uint) uint16 { return v>>n | v<<(16-n) }
func rotateRight32(v uint32, n uint32) uint32 {
	if n == 0 {
		return v
	}
	return v>>n | v<<(32-n)
}

func (b *Bus) Write8(addr uint32, val uint8, at interfaces.AccessType) int {
	switch {
	case addr <= memory.BIOS_END:
		b.bios.Write8(addr, val)
	case addr >= memory.EWRAM_START && addr <= 0x02FFFFFF:
		b.ewram.Write8(mirror(addr, memory.EWRAM_START, memory.EWRAM_SIZE), val)
	case addr >= memory.IWRAM_START && addr <= 0x03FFFFFF:
		b.iwram.Write8(mirror(addr, memory.IWRAM_START, memory.IWRAM_SIZE), val)
	case addr >= ioStart && addr <= 0x04FFFFFF:
		b.writeIO8(mirror(addr, ioStart, ioSize), val)
	case addr >= palStart && addr <= 0x05FFFFFF:
		// Palette: an 8-bit write broadcasts into both bytes of the word.
		off := mirror(addr, palStart, palSize) &^ 1
		b.palette[off] = val
		b.palette[off+1] = val
	case addr >= 0x06000000 && addr <= 0x06FFFFFF:
		off := vramOffset(mirror(addr, 0x06000000, vramWin)) &^ 1
		b.vram[off] = val
		b.vram[off+1] = val
	case addr >= oamStart && addr <= 0x07FFFFFF:
		// 8-bit writes to OAM are silently dropped (§4.1).
		dbg.Printf("bus: dropped 8-bit write to OAM at %08X\n", addr)
	case addr >= romWS0Start && addr <= romWS2End:
		if b.cart != nil {
			b.cart.WriteROM(addr)
		}
	case addr >= sramStart && addr <= sramEnd:
		if b.cart != nil {
			b.cart.WriteSave(addr-sramStart, val)
		}
	default:
		dbg.Printf("bus: write to unmapped address %08X\n", addr)
	}
	return b.regionCost(addr, at, false)
}

// Write16 needs a region-aware native path for Palette/VRAM/OAM: Write8's
// quirks for those three regions (broadcast-into-both-bytes for
// Palette/VRAM, silent drop for OAM) are 8-bit-only hardware behavior and
// must not be triggered by decomposing a native 16/32-bit store into two
// Write8 calls, which would corrupt or discard it. Every other region has
// no such quirk, so it still composes cleanly from two Write8 calls.
func (b *Bus) Write16(addr uint32, val uint16, at interfaces.AccessType) int {
	aligned := addr &^ 1
	switch {
	case aligned >= palStart && aligned <= 0x05FFFFFF:
		off := mirror(aligned, palStart, palSize)
		b.palette[off] = uint8(val)
		b.palette[off+1] = uint8(val >> 8)
	case aligned >= 0x06000000 && aligned <= 0x06FFFFFF:
		off := vramOffset(mirror(aligned, 0x06000000, vramWin))
		b.vram[off] = uint8(val)
		b.vram[off+1] = uint8(val >> 8)
	case aligned >= oamStart && aligned <= 0x07FFFFFF:
		off := mirror(aligned, oamStart, oamSize)
		b.oam[off] = uint8(val)
		b.oam[off+1] = uint8(val >> 8)
	default:
		b.Write8(aligned, uint8(val), at)
		b.Write8(aligned+1, uint8(val>>8), at)
	}
	return b.regionCost(aligned, at, false)
}

// Write32 mirrors Write16's region-aware path; see its comment.
func (b *Bus) Write32(addr uint32, val uint32, at interfaces.AccessType) int {
	aligned := addr &^ 3
	switch {
	case aligned >= palStart && aligned <= 0x05FFFFFF:
		off := mirror(aligned, palStart, palSize)
		b.palette[off] = uint8(val)
		b.palette[off+1] = uint8(val >> 8)
		b.palette[off+2] = uint8(val >> 16)
		b.palette[off+3] = uint8(val >> 24)
	case aligned >= 0x06000000 && aligned <= 0x06FFFFFF:
		off := vramOffset(mirror(aligned, 0x06000000, vramWin))
		b.vram[off] = uint8(val)
		b.vram[off+1] = uint8(val >> 8)
		b.vram[off+2] = uint8(val >> 16)
		b.vram[off+3] = uint8(val >> 24)
	case aligned >= oamStart && aligned <= 0x07FFFFFF:
		off := mirror(aligned, oamStart, oamSize)
		b.oam[off] = uint8(val)
		b.oam[off+1] = uint8(val >> 8)
		b.oam[off+2] = uint8(val >> 16)
		b.oam[off+3] = uint8(val >> 24)
	default:
		b.Write8(aligned, uint8(val), at)
		b.Write8(aligned+1, uint8(val>>8), at)
		b.Write8(aligned+2, uint8(val>>16), at)
		b.Write8(aligned+3, uint8(val>>24), at)
	}
	return b.regionCost(aligned, at, true)
}

// Package gba assembles every component into the System object the CLI
// drives: the master loop of §4.8, wired exactly as spec §9 describes
// ("CPU <-> Bus <-> DMA <-> Timer form a small cycle... model each as an
// owned component of the system object").
package gba

import (
	"image"

	"GoBA/internal/bus"
	"GoBA/internal/cartridge"
	"GoBA/internal/cpu"
	"GoBA/internal/dma"
	"GoBA/internal/irq"
	"GoBA/internal/joypad"
	"GoBA/internal/memory"
	"GoBA/internal/ppu"
	"GoBA/internal/scheduler"
	"GoBA/internal/timer"
	"GoBA/util/dbg"
)

// Display-raster timing constants (GBA hardware): 1232 cycles/scanline,
// 960 of them drawing (HDraw), 272 in HBlank; 228 scanlines/frame, the
// last 68 of them VBlank.
const (
	cyclesPerScanline = 1232
	hdrawCycles       = 960
)

// System owns every component and drives the master loop. It is the
// thing `cmd/goba` constructs and steps.
type System struct {
	cpu     *cpu.CPU
	bus     *bus.Bus
	irqCtrl *irq.Controller
	dmaCtrl *dma.Controller
	timers  *timer.Controller
	ppu     *ppu.PPU
	keys    *joypad.Joypad
	cart    *cartridge.Cartridge

	cal          *scheduler.Calendar
	masterCycles uint64
	frameReady   bool
}

// New constructs a system from an already-loaded BIOS image; no cartridge
// is wired until LoadROM is called (spec §6's `new_system()`/`load_rom`
// split).
func New(biosData []byte) *System {
	irqCtrl := irq.New()
	p := ppu.New(irqCtrl)
	d := dma.New(irqCtrl)
	t := timer.New(irqCtrl)
	kp := joypad.New(irqCtrl)
	biosDev := memory.NewBIOS(biosData)

	b := bus.New(biosDev, nil, p, d, t, irqCtrl, kp)
	p.SetMemory(b)

	c := cpu.NewCPU(b, irqCtrl)
	c.Reset()

	s := &System{
		cpu:     c,
		bus:     b,
		irqCtrl: irqCtrl,
		dmaCtrl: d,
		timers:  t,
		ppu:     p,
		keys:    kp,
		cal:     scheduler.New(),
	}
	s.cal.Schedule(hdrawCycles, scheduler.HBlankStart)
	return s
}

// LoadROM detects the save backend, wires the cartridge into the bus,
// and resets the CPU so execution starts at the BIOS reset vector with
// the new cartridge visible.
func (s *System) LoadROM(romData []byte) {
	s.cart = cartridge.NewCartridge(romData)
	s.bus.SetCartridge(s.cart)
	s.cpu.Reset()
}

// SaveBytes/LoadSaveBytes expose the cartridge's persisted save image for
// the embedder to read/write to a sibling file (spec §6's "persisted
// state layout" — the core never touches a filesystem itself).
func (s *System) SaveBytes() []byte {
	if s.cart == nil {
		return nil
	}
	return s.cart.SaveBytes()
}

func (s *System) LoadSaveBytes(data []byte) {
	if s.cart != nil {
		s.cart.LoadSaveBytes(data)
	}
}

// SetInputs is the front end's once-per-VBlank key sample (spec §6).
func (s *System) SetInputs(pressedMask uint16) {
	s.keys.SetKeys(pressedMask)
}

// FrameReady reports whether a completed frame is waiting, and clears the
// flag (mirroring spec §6's `frame_ready() -> option<framebuffer>`: the
// caller gets the frame exactly once).
func (s *System) FrameReady() (*image.RGBA, bool) {
	if !s.frameReady {
		return nil, false
	}
	s.frameReady = false
	return s.ppu.Frame(), true
}

// RunUntil drives the master loop until the master cycle counter reaches
// deadline, returning the cycles actually elapsed (it may overshoot
// slightly, since a single Step's cost isn't subdivisible).
func (s *System) RunUntil(deadline uint64) uint64 {
	start := s.masterCycles
	for s.masterCycles < deadline {
		s.Step()
	}
	return s.masterCycles - start
}

// Step runs exactly one master-loop iteration (§4.8's six steps).
func (s *System) Step() int {
	if s.cpu.Halted() {
		e, ok := s.cal.Peek()
		if !ok {
			return 0
		}
		delta := int(e.Deadline - s.masterCycles)
		s.masterCycles = e.Deadline
		s.timers.Advance(delta)
		s.dispatchDue()
		if s.irqCtrl.IRQAsserted() {
			s.cpu.SetHalted(false)
		}
		return delta
	}

	cycles := s.cpu.Step()
	s.masterCycles += uint64(cycles)
	s.timers.Advance(cycles)

	if s.bus.Halted() {
		s.cpu.SetHalted(true)
		s.bus.ClearHalt()
	}

	s.dispatchDue()

	dmaCycles := 0
	if s.dmaCtrl.AnyActive() {
		dmaCycles = s.dmaCtrl.Run(s.bus)
		s.masterCycles += uint64(dmaCycles)
		s.timers.Advance(dmaCycles)
	}

	irqCycles := s.cpu.DeliverIRQ()
	s.masterCycles += uint64(irqCycles)
	if s.irqCtrl.IRQAsserted() {
		s.cpu.SetHalted(false)
	}

	return cycles + dmaCycles + irqCycles
}

// dispatchDue pops and handles every calendar event whose deadline has
// arrived (§4.8 step 3).
func (s *System) dispatchDue() {
	for {
		e, ok := s.cal.Peek()
		if !ok || e.Deadline > s.masterCycles {
			return
		}
		s.cal.Pop()
		s.dispatch(e)
	}
}

func (s *System) dispatch(e scheduler.Event) {
	switch e.Kind {
	case scheduler.HBlankStart:
		s.ppu.NotifyHBlankStart()
		s.dmaCtrl.Trigger(dma.TimingHBlank)
		s.cal.Schedule(e.Deadline+(cyclesPerScanline-hdrawCycles), scheduler.HBlankEnd)
	case scheduler.HBlankEnd:
		s.ppu.NotifyHBlankEnd()
		s.ppu.AdvanceScanline()
		switch s.ppu.VCount() {
		case 160:
			s.cal.Schedule(e.Deadline, scheduler.VBlankStart)
		case 0:
			s.cal.Schedule(e.Deadline, scheduler.VBlankEnd)
		}
		s.cal.Schedule(e.Deadline+hdrawCycles, scheduler.HBlankStart)
	case scheduler.VBlankStart:
		s.ppu.NotifyVBlankStart()
		s.dmaCtrl.Trigger(dma.TimingVBlank)
	case scheduler.VBlankEnd:
		s.ppu.NotifyVBlankEnd()
		s.ppu.RenderFrame()
		s.frameReady = true
		dbg.Printf("gba: frame ready at cycle %d\n", s.masterCycles)
	}
}

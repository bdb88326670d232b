// Package joypad models the GBA's KEYINPUT/KEYCNT register pair (spec
// §6): input gathering itself lives outside the core, but the latch that
// turns a key-mask write into a keypad IRQ is part of it.
package joypad

import "GoBA/internal/interfaces"

// Button bit positions within KEYINPUT/KEYCNT, 0 = pressed on KEYINPUT.
const (
	A = 1 << iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
	R
	L
)

const allButtons = 0x3FF

type Joypad struct {
	irq interfaces.InterruptController

	keyinput uint16 // 0 = pressed; unused bits read 1
	keycnt   uint16
}

func New(irq interfaces.InterruptController) *Joypad {
	return &Joypad{irq: irq, keyinput: allButtons}
}

// SetKeys is the front end's entry point (spec §6: "the front end writes
// KEYINPUT once per VBlank"), not a bus-visible CPU write. mask uses the
// same bit layout as KEYINPUT's pressed convention inverted: a set bit
// here means pressed.
func (j *Joypad) SetKeys(pressedMask uint16) {
	prev := j.keyinput
	j.keyinput = ^pressedMask & allButtons
	if prev != j.keyinput {
		j.checkIRQ()
	}
}

func (j *Joypad) irqEnabled() bool { return j.keycnt&0x4000 != 0 }
func (j *Joypad) irqIsAND() bool   { return j.keycnt&0x8000 != 0 }
func (j *Joypad) irqMask() uint16  { return j.keycnt & allButtons }

// checkIRQ applies KEYCNT's condition: AND mode fires when every selected
// key is pressed, OR mode when any selected key is pressed.
func (j *Joypad) checkIRQ() {
	if !j.irqEnabled() {
		return
	}
	pressed := (^j.keyinput) & j.irqMask()
	fire := false
	if j.irqIsAND() {
		fire = pressed == j.irqMask()
	} else {
		fire = pressed != 0
	}
	if fire {
		j.irq.Request(interfaces.IRQKeypad)
	}
}

func (j *Joypad) ReadRegister(off uint32) uint8 {
	switch off {
	case 0:
		return uint8(j.keyinput)
	case 1:
		return uint8(j.keyinput >> 8)
	case 2:
		return uint8(j.keycnt)
	case 3:
		return uint8(j.keycnt >> 8)
	default:
		return 0
	}
}

// WriteRegister only accepts KEYCNT writes (offsets 2-3); KEYINPUT is
// read-only from the CPU's side, driven solely through SetKeys.
func (j *Joypad) WriteRegister(off uint32, value uint8) {
	switch off {
	case 2:
		j.keycnt = (j.keycnt &^ 0xFF) | uint16(value)
	case 3:
		j.keycnt = (j.keycnt &^ 0xFF00) | uint16(value)<<8
	}
}

package joypad

import (
	"testing"

	"GoBA/internal/interfaces"
)

type fakeIRQ struct {
	interfaces.InterruptController
	requested []interfaces.IRQLine
}

func (f *fakeIRQ) Request(line interfaces.IRQLine) { f.requested = append(f.requested, line) }

func TestKeyinputRestsAllOnes(t *testing.T) {
	j := New(&fakeIRQ{})
	if j.keyinput != allButtons {
		t.Fatalf("KEYINPUT should rest at all-1s (nothing pressed), got %04X", j.keyinput)
	}
}

func TestSetKeysInvertsToZeroPressed(t *testing.T) {
	j := New(&fakeIRQ{})
	j.SetKeys(A | Up)
	if j.keyinput&A != 0 {
		t.Fatal("pressed A bit should read 0 in KEYINPUT")
	}
	if j.keyinput&B == 0 {
		t.Fatal("unpressed B bit should read 1 in KEYINPUT")
	}
}

func TestKeypadIRQOrMode(t *testing.T) {
	irq := &fakeIRQ{}
	j := New(irq)
	j.keycnt = 0x4000 | A | B // IRQ enable, OR mode, mask = A|B

	j.SetKeys(A)
	if len(irq.requested) != 1 || irq.requested[0] != interfaces.IRQKeypad {
		t.Fatalf("OR-mode IRQ should fire when any masked key is pressed, got %v", irq.requested)
	}
}

func TestKeypadIRQAndModeRequiresAll(t *testing.T) {
	irq := &fakeIRQ{}
	j := New(irq)
	j.keycnt = 0x8000 | 0x4000 | A | B // IRQ enable, AND mode, mask = A|B

	j.SetKeys(A)
	if len(irq.requested) != 0 {
		t.Fatalf("AND-mode IRQ should not fire with only one of two masked keys pressed, got %v", irq.requested)
	}

	j.SetKeys(A | B)
	if len(irq.requested) != 1 {
		t.Fatalf("AND-mode IRQ should fire once both masked keys are pressed, got %v", irq.requested)
	}
}

func TestWriteRegisterOnlyAffectsKEYCNT(t *testing.T) {
	j := New(&fakeIRQ{})
	j.WriteRegister(0, 0xFF) // offset into KEYINPUT: must be ignored
	if j.keyinput != allButtons {
		t.Fatal("KEYINPUT must not be writable from the CPU side")
	}
	j.WriteRegister(2, 0x34)
	j.WriteRegister(3, 0x12)
	if j.keycnt != 0x1234 {
		t.Fatalf("KEYCNT byte writes should assemble little-endian, got %04X", j.keycnt)
	}
}

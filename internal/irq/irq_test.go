package irq

import (
	"testing"

	"GoBA/internal/interfaces"
)

func TestPendingRequiresIMEAndMask(t *testing.T) {
	c := New()
	c.Request(interfaces.IRQVBlank)
	if c.Pending() {
		t.Fatal("IME is clear by default; Pending must be false")
	}

	c.SetIME(true)
	if c.Pending() {
		t.Fatal("IE is clear; enabling IME alone must not make it pending")
	}

	c.SetIE(uint16(interfaces.IRQVBlank))
	if !c.Pending() {
		t.Fatal("IME set, IE&IF match: Pending should be true")
	}
}

func TestIRQAssertedIgnoresIME(t *testing.T) {
	c := New()
	c.SetIE(uint16(interfaces.IRQTimer0))
	c.Request(interfaces.IRQTimer0)

	if !c.IRQAsserted() {
		t.Fatal("IRQAsserted must ignore IME for halt-clearing purposes")
	}
	if c.Pending() {
		t.Fatal("Pending must still respect IME even though IRQAsserted doesn't")
	}
}

func TestAckIFClearsOnlyWrittenBits(t *testing.T) {
	c := New()
	c.Request(interfaces.IRQVBlank)
	c.Request(interfaces.IRQHBlank)

	c.AckIF(uint16(interfaces.IRQVBlank))

	if c.IF()&uint16(interfaces.IRQVBlank) != 0 {
		t.Fatal("acked bit should be cleared")
	}
	if c.IF()&uint16(interfaces.IRQHBlank) == 0 {
		t.Fatal("un-acked bit must remain set")
	}
}

func TestRequestIsIdempotentPerEdge(t *testing.T) {
	c := New()
	c.Request(interfaces.IRQDMA0)
	c.Request(interfaces.IRQDMA0)
	if c.IF() != uint16(interfaces.IRQDMA0) {
		t.Fatalf("repeated Request on an already-set line must not corrupt other bits, got %04X", c.IF())
	}
}

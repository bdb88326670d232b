// Package timer implements the four cascading 16-bit counters of C7.
package timer

import "GoBA/internal/interfaces"

var prescaleDivisor = [4]int{1, 64, 256, 1024}

// Timer is one of the four hardware counters.
type Timer struct {
	index int

	reload  uint16
	counter uint16
	control uint16 // raw TMxCNT_H

	enabled  bool
	internal int // sub-prescaler cycle accumulator
}

func (t *Timer) prescaleSel() int { return int(t.control & 0x3) }
func (t *Timer) cascade() bool    { return t.control&0x04 != 0 }
func (t *Timer) irqEnable() bool  { return t.control&0x40 != 0 }

// Controller owns all four timers and the interrupt controller they
// raise overflow IRQs on.
type Controller struct {
	timers [4]*Timer
	irq    interfaces.InterruptController
}

func New(irq interfaces.InterruptController) *Controller {
	c := &Controller{irq: irq}
	for i := range c.timers {
		c.timers[i] = &Timer{index: i}
	}
	return c
}

func (c *Controller) Timer(i int) *Timer { return c.timers[i] }

func (c *Controller) ReadCounter(i int) uint16 { return c.timers[i].counter }
func (c *Controller) ReadReload(i int) uint16  { return c.timers[i].reload }
func (c *Controller) ReadControl(i int) uint16 { return c.timers[i].control }

func (c *Controller) WriteReload(i int, value uint16) {
	c.timers[i].reload = value
}

// WriteControl handles the enable-transition reload rule: "on enable the
// counter loads from its reload register" (§4.6).
func (c *Controller) WriteControl(i int, value uint16) {
	t := c.timers[i]
	wasEnabled := t.enabled
	t.control = value
	t.enabled = value&0x80 != 0
	if !wasEnabled && t.enabled {
		t.counter = t.reload
		t.internal = 0
	}
}

// Advance steps every free-running (non-cascade) enabled timer by cycles
// CPU cycles. Timer 0 can never cascade (§4.6), so it always free-runs
// when enabled.
func (c *Controller) Advance(cycles int) {
	for i, t := range c.timers {
		if !t.enabled || (i > 0 && t.cascade()) {
			continue
		}
		divisor := prescaleDivisor[t.prescaleSel()]
		t.internal += cycles
		for t.internal >= divisor {
			t.internal -= divisor
			c.tick(i)
		}
	}
}

// tick increments timer i by one and, on overflow, reloads, raises its
// IRQ if enabled, and cascades into timer i+1 if that timer is enabled
// and configured for cascade mode — independent of i+1's own prescaler
// (§8's cascade invariant: "each overflow of i-1 increments i by exactly
// one, independent of i-1's prescaler").
func (c *Controller) tick(i int) {
	t := c.timers[i]
	t.counter++
	if t.counter != 0 {
		return
	}
	t.counter = t.reload
	if t.irqEnable() {
		c.irq.Request(irqLineFor(i))
	}
	if i+1 < len(c.timers) {
		next := c.timers[i+1]
		if next.enabled && next.cascade() {
			c.tick(i + 1)
		}
	}
}

func irqLineFor(i int) interfaces.IRQLine {
	switch i {
	case 0:
		return interfaces.IRQTimer0
	case 1:
		return interfaces.IRQTimer1
	case 2:
		return interfaces.IRQTimer2
	default:
		return interfaces.IRQTimer3
	}
}

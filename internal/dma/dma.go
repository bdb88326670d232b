// Package dma implements the four-channel DMA engine (C6): triggered
// block copies between any two bus-visible addresses, with fixed
// priority 0>1>2>3 and four start-timing modes.
package dma

import (
	"GoBA/internal/interfaces"
	"GoBA/util/dbg"
)

// StartTiming is the CNT_H start-timing field (bits 12-13).
type StartTiming uint8

const (
	TimingImmediate StartTiming = 0
	TimingVBlank    StartTiming = 1
	TimingHBlank    StartTiming = 2
	TimingSpecial   StartTiming = 3
)

type addrControl uint8

const (
	addrIncrement addrControl = 0
	addrDecrement addrControl = 1
	addrFixed     addrControl = 2
	addrReload    addrControl = 3 // dest only
)

// Channel holds one DMA channel's programmed registers plus the working
// copies latched at trigger time.
type Channel struct {
	index int

	SAD   uint32
	DAD   uint32
	CNT_L uint16
	CNT_H uint16

	srcWork   uint32
	dstWork   uint32
	countWork uint32
	active    bool
	firstUnit bool
}

func (c *Channel) destControl() addrControl { return addrControl((c.CNT_H >> 5) & 0x3) }
func (c *Channel) srcControl() addrControl  { return addrControl((c.CNT_H >> 7) & 0x3) }
func (c *Channel) repeat() bool             { return c.CNT_H&0x0200 != 0 }
func (c *Channel) wordTransfer() bool       { return c.CNT_H&0x0400 != 0 }
func (c *Channel) startTiming() StartTiming { return StartTiming((c.CNT_H >> 12) & 0x3) }
func (c *Channel) irqOnComplete() bool      { return c.CNT_H&0x4000 != 0 }
func (c *Channel) enabled() bool            { return c.CNT_H&0x8000 != 0 }

func (c *Channel) countMask() uint32 {
	if c.index == 3 {
		return 0xFFFF
	}
	return 0x3FFF
}

func (c *Channel) srcAddrMask() uint32 {
	if c.index == 0 {
		return 0x07FFFFFF
	}
	return 0x0FFFFFFF
}

// Controller owns all four channels and knows how to run a transfer
// against the bus when a trigger event fires (§4.5, §4.8 step 4).
type Controller struct {
	channels [4]*Channel
	irq      interfaces.InterruptController
}

func New(irq interfaces.InterruptController) *Controller {
	c := &Controller{irq: irq}
	for i := range c.channels {
		c.channels[i] = &Channel{index: i}
	}
	return c
}

func (c *Controller) Channel(i int) *Channel { return c.channels[i] }

// WriteCNT_H latches working copies on the enable transition 0->1, and
// immediately activates the channel if its start timing is Immediate.
func (c *Controller) WriteCNT_H(i int, value uint16) {
	ch := c.channels[i]
	wasEnabled := ch.enabled()
	ch.CNT_H = value
	if !wasEnabled && ch.enabled() {
		ch.srcWork = ch.SAD & ch.srcAddrMask()
		ch.dstWork = ch.DAD & 0x0FFFFFFF
		count := uint32(ch.CNT_L) & ch.countMask()
		if count == 0 {
			count = ch.countMask() + 1
		}
		ch.countWork = count
		ch.firstUnit = true
		if ch.startTiming() == TimingImmediate {
			ch.active = true
		}
	}
	if !ch.enabled() {
		ch.active = false
	}
}

// Trigger activates every enabled, inactive channel whose start timing
// matches the firing event (VBlank/HBlank/Special).
func (c *Controller) Trigger(timing StartTiming) {
	for _, ch := range c.channels {
		if ch.enabled() && !ch.active && ch.startTiming() == timing {
			ch.active = true
		}
	}
}

func (c *Controller) AnyActive() bool {
	for _, ch := range c.channels {
		if ch.active {
			return true
		}
	}
	return false
}

// Run pumps every active channel to completion, highest priority first,
// re-checking priority after each transferred unit so a higher-priority
// channel triggered mid-run preempts one already in flight (§4.5). It
// returns the total bus cycles charged.
func (c *Controller) Run(bus interfaces.BusInterface) int {
	if !c.AnyActive() {
		return 0
	}
	// Fixed internal overhead charged once per DMA run, independent of
	// the number of units transferred.
	totalCycles := 2
	for {
		ch := c.highestPriorityActive()
		if ch == nil {
			return totalCycles
		}
		totalCycles += c.runUnit(bus, ch)
	}
}

func (c *Controller) highestPriorityActive() *Channel {
	for _, ch := range c.channels {
		if ch.active {
			return ch
		}
	}
	return nil
}

func (c *Controller) runUnit(bus interfaces.BusInterface, ch *Channel) int {
	at := interfaces.Sequential
	if ch.firstUnit {
		at = interfaces.Nonsequential
		ch.firstUnit = false
	}

	cycles := 0
	if ch.wordTransfer() {
		v, rc := bus.Read32(ch.srcWork, at)
		wc := bus.Write32(ch.dstWork, v, at)
		cycles += rc + wc
	} else {
		v, rc := bus.Read16(ch.srcWork, at)
		wc := bus.Write16(ch.dstWork, v, at)
		cycles += rc + wc
	}

	step := uint32(2)
	if ch.wordTransfer() {
		step = 4
	}
	ch.srcWork = advance(ch.srcWork, step, ch.srcControl())
	ch.dstWork = advance(ch.dstWork, step, ch.destControl())
	ch.countWork--

	if ch.countWork == 0 {
		c.finish(ch)
	}
	return cycles
}

func advance(addr uint32, step uint32, ac addrControl) uint32 {
	switch ac {
	case addrDecrement:
		return addr - step
	case addrFixed:
		return addr
	default: // increment or reload (reload only matters on re-trigger)
		return addr + step
	}
}

func (c *Controller) finish(ch *Channel) {
	ch.active = false
	if ch.irqOnComplete() {
		c.irq.Request(irqLineFor(ch.index))
	}
	if ch.repeat() && ch.startTiming() != TimingImmediate {
		count := uint32(ch.CNT_L) & ch.countMask()
		if count == 0 {
			count = ch.countMask() + 1
		}
		ch.countWork = count
		ch.firstUnit = true
		if ch.destControl() == addrReload {
			ch.dstWork = ch.DAD & 0x0FFFFFFF
		}
	} else {
		ch.CNT_H &^= 0x8000 // clear enable
		dbg.Printf("dma: channel %d complete\n", ch.index)
	}
}

func irqLineFor(channel int) interfaces.IRQLine {
	switch channel {
	case 0:
		return interfaces.IRQDMA0
	case 1:
		return interfaces.IRQDMA1
	case 2:
		return interfaces.IRQDMA2
	default:
		return interfaces.IRQDMA3
	}
}

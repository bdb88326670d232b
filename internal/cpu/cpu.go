package cpu

import (
	"GoBA/internal/interfaces"
	"GoBA/internal/memory"
	"GoBA/util/convert"
	"GoBA/util/dbg"
)

// Exception vector addresses (§4.2).
const (
	vectorReset          = 0x00000000
	vectorUndefined      = 0x00000004
	vectorSWI            = 0x00000008
	vectorPrefetchAbort  = 0x0000000C
	vectorDataAbort      = 0x00000010
	vectorIRQ            = 0x00000018
	vectorFIQ            = 0x0000001C
)

// CPU is the ARM7TDMI interpreter (C5): it owns the register file and
// decodes/executes one instruction per Step call. It never advances a
// shared cycle counter itself; it only reports what an instruction cost
// (§4.8 — the scheduler is the sole authority on time).
type CPU struct {
	registers interfaces.RegistersInterface
	bus       interfaces.BusInterface
	irqc      interfaces.InterruptController

	cycles uint64

	// nextFetch is the access-type hint the previous instruction left
	// for the upcoming fetch (§4.4).
	nextFetch interfaces.FetchHint
	halted    bool
}

var _ interfaces.CPUInterface = (*CPU)(nil)

func NewCPU(bus interfaces.BusInterface, irqc interfaces.InterruptController) *CPU {
	return &CPU{
		registers: NewRegisters(),
		bus:       bus,
		irqc:      irqc,
		nextFetch: interfaces.HintNonsequential,
	}
}

func (c *CPU) Registers() interfaces.RegistersInterface { return c.registers }

func (c *CPU) Halted() bool        { return c.halted }
func (c *CPU) SetHalted(h bool)    { c.halted = h }

func (c *CPU) Reset() {
	c.registers = NewRegisters()
	c.registers.SetMode(SVCMode)
	c.registers.SetIRQDisabled(true)
	c.registers.SetFIQDisabled(true)
	c.registers.SetThumbState(false)
	c.registers.SetPC(memory.BIOS_START)
	c.nextFetch = interfaces.HintNonsequential
	c.halted = false
}

func fetchAccess(h interfaces.FetchHint) interfaces.AccessType {
	if h == interfaces.HintSequential {
		return interfaces.Sequential
	}
	return interfaces.Nonsequential
}

// Step fetches, decodes, and executes exactly one instruction, charging
// the fetch according to the hint the previous instruction left behind.
func (c *CPU) Step() int {
	pc := c.registers.GetPC()
	thumb := c.registers.IsThumb()
	at := fetchAccess(c.nextFetch)

	var execCycles int
	var hint interfaces.FetchHint

	if thumb {
		word, fetchCycles := c.bus.Read16(pc, at)
		c.registers.SetPC(pc + 2)
		execCycles, hint = c.executeThumb(uint16(word))
		total := fetchCycles + execCycles
		c.nextFetch = hint
		c.cycles += uint64(total)
		return total
	}

	word, fetchCycles := c.bus.Read32(pc, at)
	c.registers.SetPC(pc + 4)
	execCycles, hint = c.execute_Arm(word)
	total := fetchCycles + execCycles
	c.nextFetch = hint
	c.cycles += uint64(total)
	return total
}

// chargeBranchRefill performs the "other half" of a branch's pipeline
// refill: the handler itself pays for one Sequential fetch at the new
// PC (discarding the value), and returns with the handler's HintBranch
// becoming nextFetch, which the next Step's fetch pays as a Nonsequential
// access (§4.4: "flush + 2x
// N/S refill, one N fetch + one S fetch at the new PC").
func (c *CPU) chargeBranchRefill() int {
	pc := c.registers.GetPC()
	if c.registers.IsThumb() {
		_, cyc := c.bus.Read16(pc, interfaces.Sequential)
		return cyc
	}
	_, cyc := c.bus.Read32(pc, interfaces.Sequential)
	return cyc
}

// DeliverIRQ checks the interrupt controller and, if an IRQ is pending
// and CPSR.I is clear, performs the exception-entry sequence (§4.2,
// §4.7). Return address is PC+4 per the golden timer-overflow scenario.
func (c *CPU) DeliverIRQ() int {
	if c.registers.IsIRQDisabled() || !c.irqc.Pending() {
		return 0
	}
	lr := c.registers.GetPC() + 4
	c.registers.EnterException(IRQMode, lr, vectorIRQ, false)
	c.nextFetch = interfaces.HintNonsequential
	dbg.Printf("cpu: delivering IRQ, LR=%08X\n", lr)
	return 3
}

// raiseSWI performs SWI exception entry. By the time a handler calls this,
// Step has already advanced PC past the trapping instruction (ARM or
// Thumb), so GetPC() already holds the return address LR_svc wants: no
// further offset, unlike IRQ and UND which add 4 (§4.2's exception-offset
// table — SWI returns via plain "MOVS PC,LR").
func (c *CPU) raiseSWI(instrSize uint32) (int, interfaces.FetchHint) {
	lr := c.registers.GetPC()
	c.registers.EnterException(SVCMode, lr, vectorSWI, false)
	return c.chargeBranchRefill(), interfaces.HintBranch
}

// raiseUndefined performs undefined-instruction exception entry. Unlike
// SWI, UND is grouped with IRQ/prefetch-abort in the "+4" exception-offset
// bucket (§4.2), so LR gets the same +4 DeliverIRQ uses rather than SWI's
// plain return address.
func (c *CPU) raiseUndefined(instrSize uint32) (int, interfaces.FetchHint) {
	lr := c.registers.GetPC() + 4
	c.registers.EnterException(UNDMode, lr, vectorUndefined, false)
	return c.chargeBranchRefill(), interfaces.HintBranch
}

// setFlags updates N/Z from result and C/V from the caller-computed
// carry/overflow (§4.3's shifter-carry and ADD/SUB overflow rules mean
// callers, not this helper, decide what C and V should be).
func (c *CPU) setFlags(result uint32, carryOut, overflow bool, setV bool) {
	c.registers.SetFlagN(result&0x80000000 != 0)
	c.registers.SetFlagZ(result == 0)
	c.registers.SetFlagC(carryOut)
	if setV {
		c.registers.SetFlagV(overflow)
	}
}

// addWithCarry implements the standard ARM 33-bit add used to derive
// ADD/ADC/SUB/SBC/RSB/RSC/CMP/CMN (subtraction expressed as a + ^b + 1).
func addWithCarry(a, b uint32, carryIn uint32) (result uint32, carryOut, overflow bool) {
	sum := uint64(a) + uint64(b) + uint64(carryIn)
	result = uint32(sum)
	carryOut = sum > 0xFFFFFFFF
	overflow = (^(a ^ b))&(a^result)&0x80000000 != 0
	return
}

func boolToBit(b bool) uint32 {
	return uint32(convert.BoolToInt(b))
}

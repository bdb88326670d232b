package cpu

import (
	"GoBA/internal/interfaces"
	"GoBA/util/dbg"
)

// execute_Arm decodes and executes one ARM instruction, returning the
// cycles it charged (beyond the fetch, which Step already paid for) and
// the fetch hint for whatever comes next (§4.4).
func (c *CPU) execute_Arm(instruction uint32) (int, interfaces.FetchHint) {
	cond := ARMCondition((instruction >> 28) & 0xF)
	if !c.checkCondition_Arm(cond) {
		// Testable property 1: failed conditions are a pure NOP besides
		// the PC advance Step already performed.
		return 0, interfaces.HintSequential
	}

	decoded := DecodeInstruction_Arm(instruction)
	switch inst := decoded.(type) {
	case ARMDataProcessingInstruction:
		return c.execArm_DataProcessing(inst), interfaces.HintSequential
	case ARMMultiplyInstruction:
		return c.execArm_Multiply(inst), interfaces.HintSequential
	case ARMPSRTransferInstruction:
		return c.execArm_PSRTransfer(inst), interfaces.HintSequential
	case ARMLoadStoreInstruction:
		return c.execArm_LoadStore(inst)
	case ARMHalfwordTransferInstruction:
		return c.execArm_HalfwordTransfer(inst), interfaces.HintSequential
	case ARMSwapInstruction:
		return c.execArm_Swap(inst), interfaces.HintSequential
	case ARMBlockDataTransferInstruction:
		return c.execArm_BlockDataTransfer(inst)
	case ARMBranchInstruction:
		return c.execArm_Branch(inst)
	case ARMBranchExchangeInstruction:
		return c.execArm_BranchExchange(inst)
	case ARMSWIInstruction:
		return c.execArm_SWI(inst)
	case ARMControlInstruction:
		return c.execArm_Undefined()
	default:
		dbg.Printf("execute_Arm: undecoded instruction %08X\n", instruction)
		return c.execArm_Undefined()
	}
}

// checkCondition_Arm evaluates the 4-bit condition field against N,Z,C,V.
func (c *CPU) checkCondition_Arm(cond ARMCondition) bool {
	n, z, cf, v := c.registers.GetFlagN(), c.registers.GetFlagZ(), c.registers.GetFlagC(), c.registers.GetFlagV()
	switch cond {
	case EQ:
		return z
	case NE:
		return !z
	case CS:
		return cf
	case CC:
		return !cf
	case MI:
		return n
	case PL:
		return !n
	case VS:
		return v
	case VC:
		return !v
	case HI:
		return cf && !z
	case LS:
		return !cf || z
	case GE:
		return n == v
	case LT:
		return n != v
	case GT:
		return !z && n == v
	case LE:
		return z || n != v
	case AL:
		return true
	case NV:
		return false
	default:
		return false
	}
}

// readOperand returns reg's value for use as an instruction operand,
// applying the PC+12 rule (§4.3) when a register-specified shift amount
// is in play and reg is R15.
func (c *CPU) readOperand(reg uint8, regShift bool) uint32 {
	v := c.registers.GetReg(reg)
	if reg == 15 && regShift {
		v += 4
	}
	return v
}

// calcOp2 evaluates the shifter operand of a data-processing instruction
// and returns (operand, shifter-carry-out).
func (c *CPU) calcOp2(inst ARMDataProcessingInstruction) (uint32, bool) {
	if inst.I {
		rotate := uint32(inst.Is) * 2
		val := rotateRight(uint32(inst.Nn), rotate)
		if rotate == 0 {
			return val, c.registers.GetFlagC()
		}
		return val, val&0x80000000 != 0
	}

	rm := c.readOperand(inst.Rm, inst.R)
	var amount uint32
	if inst.R {
		amount = c.readOperand(inst.Rs, false) & 0xFF
	} else {
		amount = uint32(inst.Is)
	}
	return c.applyShift(inst.ShiftType, rm, amount, inst.R)
}

// applyShift implements LSL/LSR/ASR/ROR including the immediate-shift-0
// special encodings (LSR #32, ASR #32, RRX).
func (c *CPU) applyShift(st ARMShiftType, value uint32, amount uint32, byRegister bool) (uint32, bool) {
	carry := c.registers.GetFlagC()

	if byRegister && amount == 0 {
		return value, carry
	}
	if byRegister && amount >= 32 {
		switch st {
		case LSL:
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		case LSR:
			if amount == 32 {
				return 0, value&0x80000000 != 0
			}
			return 0, false
		case ASR:
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		case ROR:
			amount %= 32
			if amount == 0 {
				return value, value&0x80000000 != 0
			}
		}
	}

	switch st {
	case LSL:
		if amount == 0 {
			return value, carry
		}
		if amount >= 32 {
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		}
		return value << amount, (value>>(32-amount))&1 != 0
	case LSR:
		if amount == 0 { // encodes LSR #32 in immediate form
			return 0, value&0x80000000 != 0
		}
		if amount >= 32 {
			return 0, false
		}
		return value >> amount, (value>>(amount-1))&1 != 0
	case ASR:
		if amount == 0 { // encodes ASR #32
			amount = 32
		}
		if amount >= 32 {
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), (value>>(amount-1))&1 != 0
	case ROR:
		if amount == 0 { // encodes RRX: rotate right through carry by 1
			result := (value >> 1) | (boolToBit(carry) << 31)
			return result, value&1 != 0
		}
		amount %= 32
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		return rotateRight(value, amount), (value>>(amount-1))&1 != 0
	}
	return value, carry
}

func rotateRight(value uint32, amount uint32) uint32 {
	amount %= 32
	if amount == 0 {
		return value
	}
	return (value >> amount) | (value << (32 - amount))
}

func (c *CPU) execArm_DataProcessing(inst ARMDataProcessingInstruction) int {
	op2, shiftCarry := c.calcOp2(inst)
	rn := c.readOperand(inst.Rn, inst.R)

	var result uint32
	var carryOut, overflow bool
	isArith := false

	switch inst.Opcode {
	case AND:
		result = rn & op2
	case EOR:
		result = rn ^ op2
	case SUB:
		result, carryOut, overflow = addWithCarry(rn, ^op2, 1)
		isArith = true
	case RSB:
		result, carryOut, overflow = addWithCarry(op2, ^rn, 1)
		isArith = true
	case ADD:
		result, carryOut, overflow = addWithCarry(rn, op2, 0)
		isArith = true
	case ADC:
		result, carryOut, overflow = addWithCarry(rn, op2, boolToBit(c.registers.GetFlagC()))
		isArith = true
	case SBC:
		result, carryOut, overflow = addWithCarry(rn, ^op2, boolToBit(c.registers.GetFlagC()))
		isArith = true
	case RSC:
		result, carryOut, overflow = addWithCarry(op2, ^rn, boolToBit(c.registers.GetFlagC()))
		isArith = true
	case TST:
		result = rn & op2
	case TEQ:
		result = rn ^ op2
	case CMP:
		result, carryOut, overflow = addWithCarry(rn, ^op2, 1)
		isArith = true
	case CMN:
		result, carryOut, overflow = addWithCarry(rn, op2, 0)
		isArith = true
	case ORR:
		result = rn | op2
	case MOV:
		result = op2
	case BIC:
		result = rn &^ op2
	case MVN:
		result = ^op2
	}

	writesResult := true
	switch inst.Opcode {
	case TST, TEQ, CMP, CMN:
		writesResult = false
	}

	if inst.S {
		if inst.Rd == 15 && writesResult {
			// Rd=PC, S=1: mode-restore return-from-exception form.
			c.registers.SetCPSR(c.registers.GetSPSR())
		} else {
			if !isArith {
				c.setFlags(result, shiftCarry, false, false)
			} else {
				c.setFlags(result, carryOut, overflow, true)
			}
		}
	}

	cycles := 0
	if writesResult {
		c.registers.SetReg(inst.Rd, result)
		if inst.Rd == 15 {
			cycles += c.chargeBranchRefill()
		}
	}
	return cycles
}

// execArm_Multiply implements MUL/MLA and the long multiply forms, with
// the MSB-to-first-nonterminal-byte m-cycles timing rule (§4.3/§4.6).
func (c *CPU) execArm_Multiply(inst ARMMultiplyInstruction) int {
	rs := c.registers.GetReg(inst.Rs)
	rm := c.registers.GetReg(inst.Rm)
	mCycles := mCycleCount(rs, !inst.Unsigned || !inst.Long)

	if !inst.Long {
		result := rm * rs
		if inst.A {
			result += c.registers.GetReg(inst.Rn)
			mCycles++
		}
		if inst.S {
			c.registers.SetFlagN(result&0x80000000 != 0)
			c.registers.SetFlagZ(result == 0)
		}
		c.registers.SetReg(inst.Rd, result)
		return mCycles
	}

	var full uint64
	if inst.Unsigned {
		full = uint64(rm) * uint64(rs)
	} else {
		full = uint64(int64(int32(rm)) * int64(int32(rs)))
	}
	if inst.A {
		hi := uint64(c.registers.GetReg(inst.Rn))
		lo := uint64(c.registers.GetReg(inst.Rd))
		full += (hi << 32) | lo
		mCycles++
	}
	mCycles++ // long multiply accumulate-register combine, always +1
	hi := uint32(full >> 32)
	lo := uint32(full)
	if inst.S {
		c.registers.SetFlagN(hi&0x80000000 != 0)
		c.registers.SetFlagZ(full == 0)
	}
	c.registers.SetReg(inst.Rn, hi)
	c.registers.SetReg(inst.Rd, lo)
	return mCycles
}

// mCycleCount counts bytes from the MSB of rs until the first that is
// not a "terminating" byte: 0x00 for unsigned, 0x00 or 0xFF for signed.
func mCycleCount(rs uint32, signed bool) int {
	for i := 3; i >= 1; i-- {
		b := byte(rs >> (8 * i))
		if signed {
			if b != 0x00 && b != 0xFF {
				return i + 1
			}
		} else if b != 0x00 {
			return i + 1
		}
	}
	return 1
}

func (c *CPU) execArm_PSRTransfer(inst ARMPSRTransferInstruction) int {
	if !inst.ToPSR { // MRS
		if inst.UseSPSR {
			c.registers.SetReg(inst.Rd, c.registers.GetSPSR())
		} else {
			c.registers.SetReg(inst.Rd, c.registers.GetCPSR())
		}
		return 0
	}

	var operand uint32
	if inst.I {
		operand = rotateRight(uint32(inst.Nn), uint32(inst.RotateImm)*2)
	} else {
		operand = c.registers.GetReg(inst.Rm)
	}

	current := c.registers.GetCPSR()
	if inst.UseSPSR {
		current = c.registers.GetSPSR()
	}

	var mask uint32
	if inst.FieldMask&0x1 != 0 {
		mask |= 0x000000FF // control (c): includes Mode — ignored in User mode below
	}
	if inst.FieldMask&0x2 != 0 {
		mask |= 0x0000FF00 // extension (x)
	}
	if inst.FieldMask&0x4 != 0 {
		mask |= 0x00FF0000 // status (s)
	}
	if inst.FieldMask&0x8 != 0 {
		mask |= 0xFF000000 // flags (f)
	}

	if !inst.UseSPSR && c.registers.GetMode() == USRMode {
		// Writing Mode (or any control byte) in User mode is ignored;
		// only the flags byte is writable there.
		mask &= 0xFF000000
	}

	updated := (current &^ mask) | (operand & mask)
	if inst.UseSPSR {
		c.registers.SetSPSR(updated)
	} else {
		c.registers.SetCPSR(updated)
	}
	return 0
}

func (c *CPU) execArm_HalfwordTransfer(inst ARMHalfwordTransferInstruction) int {
	base := c.registers.GetReg(inst.Rn)
	var offset uint32
	if inst.I {
		offset = uint32(inst.Offset8)
	} else {
		offset = c.registers.GetReg(inst.Rm)
	}

	addr := base
	if inst.P {
		if inst.U {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	cycles := 0
	if inst.L {
		var value uint32
		if inst.Half {
			raw, cyc := c.bus.Read16(addr, interfaces.Nonsequential)
			cycles += cyc
			if inst.Signed {
				if addr&1 != 0 {
					// LDRSH from an odd address degenerates to a
					// sign-extended byte load (§4.1 documented edge case).
					value = uint32(int32(int8(byte(raw))))
				} else {
					value = uint32(int32(int16(raw)))
				}
			} else {
				value = uint32(rotateRight(uint32(raw), uint32(addr&1)*8))
			}
		} else {
			raw, cyc := c.bus.Read8(addr, interfaces.Nonsequential)
			cycles += cyc
			value = uint32(int32(int8(raw))) // only the signed-byte form (LDRSB) reaches here
		}
		c.registers.SetReg(inst.Rd, value)
	} else {
		if inst.Half {
			cycles += c.bus.Write16(addr, uint16(c.registers.GetReg(inst.Rd)), interfaces.Nonsequential)
		} else {
			cycles += c.bus.Write8(addr, byte(c.registers.GetReg(inst.Rd)), interfaces.Nonsequential)
		}
	}

	if !inst.P {
		if inst.U {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.registers.SetReg(inst.Rn, addr)
	} else if inst.W {
		c.registers.SetReg(inst.Rn, addr)
	}
	return cycles
}

// execArm_Swap implements SWP/SWPB: an atomic read of memory into Rd
// followed by a write of Rm to the same address.
func (c *CPU) execArm_Swap(inst ARMSwapInstruction) int {
	addr := c.registers.GetReg(inst.Rn)
	rm := c.registers.GetReg(inst.Rm)
	cycles := 0
	if inst.B {
		old, cyc := c.bus.Read8(addr, interfaces.Nonsequential)
		cycles += cyc
		cycles += c.bus.Write8(addr, byte(rm), interfaces.Sequential)
		c.registers.SetReg(inst.Rd, uint32(old))
	} else {
		old, cyc := c.bus.Read32(addr, interfaces.Nonsequential)
		cycles += cyc
		cycles += c.bus.Write32(addr, rm, interfaces.Sequential)
		c.registers.SetReg(inst.Rd, old)
	}
	cycles++ // internal cycle for the atomic read-modify-write
	return cycles
}

func (c *CPU) execArm_LoadStore(inst ARMLoadStoreInstruction) (int, interfaces.FetchHint) {
	base := c.registers.GetReg(inst.Rn)
	offset := inst.Offset

	addr := base
	if inst.P {
		if inst.U {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	cycles := 0
	hint := interfaces.HintSequential

	if inst.L {
		var value uint32
		if inst.B {
			b, cyc := c.bus.Read8(addr, interfaces.Nonsequential)
			cycles += cyc
			value = uint32(b)
		} else {
			w, cyc := c.bus.Read32(addr, interfaces.Nonsequential)
			cycles += cyc
			value = rotateRight(w, (addr&3)*8)
		}
		c.registers.SetReg(inst.Rd, value)
		if inst.Rd == 15 {
			if value&1 != 0 {
				c.registers.SetThumbState(true)
			}
			cycles += c.chargeBranchRefill()
			hint = interfaces.HintBranch
		}
		cycles++ // internal cycle following a load
	} else {
		v := c.registers.GetReg(inst.Rd)
		if inst.Rd == 15 {
			v += 4 // STR PC: stored value is current+12
		}
		if inst.B {
			cycles += c.bus.Write8(addr, byte(v), interfaces.Nonsequential)
		} else {
			cycles += c.bus.Write32(addr, v, interfaces.Nonsequential)
		}
	}

	if !inst.P {
		if inst.U {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.registers.SetReg(inst.Rn, addr)
	} else if inst.W {
		c.registers.SetReg(inst.Rn, addr)
	}

	return cycles, hint
}

func (c *CPU) execArm_BlockDataTransfer(inst ARMBlockDataTransferInstruction) (int, interfaces.FetchHint) {
	regList := inst.RegisterList
	base := c.registers.GetReg(inst.Rn)
	pcInList := regList&(1<<15) != 0

	// Empty list: treat as if R15 alone were in the list, Rn moves by
	// the full 0x40 in the addressing-mode direction (§4.3 edge case).
	if regList == 0 {
		regList = 1 << 15
		pcInList = true
	}

	count := 0
	for i := 0; i < 16; i++ {
		if regList&(1<<uint(i)) != 0 {
			count++
		}
	}
	if inst.RegisterList == 0 {
		count = 16
	}

	ascending := inst.U
	startAddr := base
	if ascending {
		if inst.P {
			startAddr = base + 4
		}
	} else {
		if inst.P {
			startAddr = base - uint32(count)*4
		} else {
			startAddr = base - uint32(count)*4 + 4
		}
	}

	useUserBank := inst.S && !(inst.L && pcInList)
	cycles := 0
	addr := startAddr
	first := true
	at := interfaces.Nonsequential

	for i := 0; i < 16; i++ {
		if regList&(1<<uint(i)) == 0 {
			continue
		}
		reg := uint8(i)
		if inst.L {
			v, cyc := c.bus.Read32(addr, at)
			cycles += cyc
			if useUserBank {
				c.registers.SetUserReg(reg, v)
			} else {
				c.registers.SetReg(reg, v)
			}
		} else {
			var v uint32
			if useUserBank {
				v = c.registers.GetUserReg(reg)
			} else {
				v = c.registers.GetReg(reg)
			}
			if reg == uint8(inst.Rn) && !first {
				v = computeWriteback(base, ascending, count)
			}
			cycles += c.bus.Write32(addr, v, at)
		}
		first = false
		at = interfaces.Sequential
		addr += 4
	}

	// Base-in-list LDM suppresses writeback entirely (§4.3 edge case);
	// for STM, computeWriteback above only chose the value stored for a
	// base register that is not first in the list; the writeback is here.
	if inst.W && !(inst.L && regList&(1<<inst.Rn) != 0) {
		if ascending {
			c.registers.SetReg(inst.Rn, base+uint32(count)*4)
		} else {
			c.registers.SetReg(inst.Rn, base-uint32(count)*4)
		}
	}

	hint := interfaces.HintSequential
	if inst.L && pcInList {
		if inst.S {
			c.registers.SetCPSR(c.registers.GetSPSR())
		}
		cycles += c.chargeBranchRefill()
		hint = interfaces.HintBranch
	}
	cycles++
	return cycles, hint
}

func computeWriteback(base uint32, ascending bool, count int) uint32 {
	if ascending {
		return base + uint32(count)*4
	}
	return base - uint32(count)*4
}

func (c *CPU) execArm_Branch(inst ARMBranchInstruction) (int, interfaces.FetchHint) {
	pc := c.registers.GetReg(15)
	target := pc + inst.TargetAddr
	if inst.Link {
		c.registers.SetReg(14, c.registers.GetPC())
	}
	c.registers.SetPC(target)
	cycles := c.chargeBranchRefill()
	return cycles, interfaces.HintBranch
}

func (c *CPU) execArm_BranchExchange(inst ARMBranchExchangeInstruction) (int, interfaces.FetchHint) {
	target := c.registers.GetReg(inst.Rn)
	if inst.Link {
		c.registers.SetReg(14, c.registers.GetPC())
	}
	c.registers.SetThumbState(target&1 != 0)
	c.registers.SetPC(target)
	cycles := c.chargeBranchRefill()
	return cycles, interfaces.HintBranch
}

func (c *CPU) execArm_SWI(inst ARMSWIInstruction) (int, interfaces.FetchHint) {
	return c.raiseSWI(4)
}

func (c *CPU) execArm_Undefined() (int, interfaces.FetchHint) {
	return c.raiseUndefined(4)
}

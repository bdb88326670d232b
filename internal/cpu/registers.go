package cpu

import (
	"GoBA/internal/interfaces"
	"GoBA/util/dbg"
	"fmt"
	"strconv"
)

// ARM7TDMI CPU operating modes
const (
	USRMode = 0b10000 // User mode
	FIQMode = 0b10001 // FIQ mode (Fast Interrupt Request)
	IRQMode = 0b10010 // IRQ mode (Interrupt Request)
	SVCMode = 0b10011 // Supervisor mode
	ABTMode = 0b10111 // Abort mode
	UNDMode = 0b11011 // Undefined instruction mode
	SYSMode = 0b11111 // System mode (shares User mode registers)
)

var _ interfaces.RegistersInterface = (*Registers)(nil)

// IsRecognizedMode reports whether mode is one of the seven encodings
// the architecture defines; SetMode rejects anything else.
func IsRecognizedMode(mode uint8) bool {
	switch mode {
	case USRMode, FIQMode, IRQMode, SVCMode, ABTMode, UNDMode, SYSMode:
		return true
	}
	return false
}

// Registers holds the state of the ARM7TDMI CPU registers.
// R0-R12: General purpose registers. In FIQ mode, R8-R12 are banked.
// R13: Stack Pointer (SP), banked per privileged mode.
// R14: Link Register (LR), banked per privileged mode.
// R15: Program Counter (PC).
//
// GetReg/SetReg bank dynamically off the mode bits in CPSR, so there is
// no separate "stash and swap" step on a mode change: every banked field
// keeps its own value independently and the accessor picks the right one.
type Registers struct {
	R [13]uint32 // R0-R12 for non-FIQ modes.

	SP_usr uint32
	LR_usr uint32

	SP_svc uint32
	LR_svc uint32

	SP_abt uint32
	LR_abt uint32

	SP_und uint32
	LR_und uint32

	SP_irq uint32
	LR_irq uint32

	R8_fiq  uint32
	R9_fiq  uint32
	R10_fiq uint32
	R11_fiq uint32
	R12_fiq uint32
	SP_fiq  uint32
	LR_fiq  uint32

	// PC is the address of the next instruction to fetch (not the
	// operand-view PC — see GetReg(15)).
	PC uint32

	CPSR uint32

	SPSR_svc uint32
	SPSR_abt uint32
	SPSR_und uint32
	SPSR_irq uint32
	SPSR_fiq uint32
}

// NewRegisters creates and initializes a new Registers struct.
// CPU starts in Supervisor mode, ARM state, IRQ/FIQ disabled.
func NewRegisters() *Registers {
	regs := &Registers{}
	regs.CPSR = uint32(SVCMode) | (1 << 7) | (1 << 6)
	return regs
}

// GetMode returns the current CPU operating mode from CPSR.
func (r *Registers) GetMode() uint8 {
	return uint8(r.CPSR & 0x1F)
}

// SetMode updates the CPU operating mode in CPSR, leaving every other
// CPSR bit untouched. Invalid mode encodings are rejected.
func (r *Registers) SetMode(mode uint8) {
	if !IsRecognizedMode(mode) {
		dbg.Printf("Registers: refusing to switch into unrecognized mode %02X\n", mode)
		return
	}
	r.CPSR = (r.CPSR &^ 0x1F) | uint32(mode)
}

// GetCPSR returns the raw CPSR word.
func (r *Registers) GetCPSR() uint32 { return r.CPSR }

// SetCPSR overwrites the whole CPSR word, including the mode field.
// Used by MSR (full transfer) and by mode-restore on exception return.
func (r *Registers) SetCPSR(value uint32) { r.CPSR = value }

// GetPC returns the raw fetch-address PC field.
func (r *Registers) GetPC() uint32 { return r.PC }

// SetPC sets the fetch-address PC field, force-aligning per the current
// instruction set (~1 in Thumb, ~3 in ARM) as required by §4.2.
func (r *Registers) SetPC(value uint32) {
	if r.IsThumb() {
		r.PC = value &^ 1
	} else {
		r.PC = value &^ 3
	}
}

// GetReg returns the value of a general-purpose register (R0-R15),
// banked per the current CPU mode. R15 reads as the operand-view PC:
// current instruction address + 8 (ARM) or +4 (Thumb), matching the
// ARM7TDMI's 3-stage pipeline.
func (r *Registers) GetReg(regNum uint8) uint32 {
	if regNum > 15 {
		panic("read from undefined register R" + strconv.Itoa(int(regNum)))
	}
	if regNum == 15 {
		if r.IsThumb() {
			return r.PC + 2
		}
		return r.PC + 4
	}
	return r.getBanked(regNum, r.GetMode())
}

// GetUserReg reads R0-R14 from the User/System bank regardless of the
// current mode. Used by LDM/STM with the `^` suffix.
func (r *Registers) GetUserReg(regNum uint8) uint32 {
	if regNum == 15 {
		return r.GetReg(15)
	}
	return r.getBanked(regNum, USRMode)
}

func (r *Registers) getBanked(regNum uint8, mode uint8) uint32 {
	if mode == FIQMode {
		switch regNum {
		case 8:
			return r.R8_fiq
		case 9:
			return r.R9_fiq
		case 10:
			return r.R10_fiq
		case 11:
			return r.R11_fiq
		case 12:
			return r.R12_fiq
		case 13:
			return r.SP_fiq
		case 14:
			return r.LR_fiq
		}
	}
	if regNum == 13 {
		switch mode {
		case USRMode, SYSMode:
			return r.SP_usr
		case SVCMode:
			return r.SP_svc
		case ABTMode:
			return r.SP_abt
		case UNDMode:
			return r.SP_und
		case IRQMode:
			return r.SP_irq
		default:
			dbg.Printf("Warning: GetReg(R13) in unknown mode %02X\n", mode)
			return r.SP_usr
		}
	}
	if regNum == 14 {
		switch mode {
		case USRMode, SYSMode:
			return r.LR_usr
		case SVCMode:
			return r.LR_svc
		case ABTMode:
			return r.LR_abt
		case UNDMode:
			return r.LR_und
		case IRQMode:
			return r.LR_irq
		default:
			dbg.Printf("Warning: GetReg(R14) in unknown mode %02X\n", mode)
			return r.LR_usr
		}
	}
	return r.R[regNum]
}

// SetReg sets the value of a general-purpose register (R0-R15), banked
// per the current CPU mode. Writing R15 sets the fetch-address PC,
// force-aligned; callers that branch (branches, loads into PC) charge
// the pipeline refill themselves via CPU.chargeBranchRefill.
func (r *Registers) SetReg(regNum uint8, value uint32) {
	if regNum > 15 {
		panic("write to undefined register R" + strconv.Itoa(int(regNum)))
	}
	if regNum == 15 {
		r.SetPC(value)
		return
	}
	r.setBanked(regNum, r.GetMode(), value)
}

// SetUserReg writes R0-R14 into the User/System bank regardless of the
// current mode. Used by LDM/STM with the `^` suffix.
func (r *Registers) SetUserReg(regNum uint8, value uint32) {
	if regNum == 15 {
		r.SetReg(15, value)
		return
	}
	r.setBanked(regNum, USRMode, value)
}

func (r *Registers) setBanked(regNum uint8, mode uint8, value uint32) {
	if mode == FIQMode {
		switch regNum {
		case 8:
			r.R8_fiq = value
			return
		case 9:
			r.R9_fiq = value
			return
		case 10:
			r.R10_fiq = value
			return
		case 11:
			r.R11_fiq = value
			return
		case 12:
			r.R12_fiq = value
			return
		case 13:
			r.SP_fiq = value
			return
		case 14:
			r.LR_fiq = value
			return
		}
	}
	if regNum == 13 {
		switch mode {
		case USRMode, SYSMode:
			r.SP_usr = value
		case SVCMode:
			r.SP_svc = value
		case ABTMode:
			r.SP_abt = value
		case UNDMode:
			r.SP_und = value
		case IRQMode:
			r.SP_irq = value
		default:
			dbg.Printf("Warning: SetReg(R13) in unknown mode %02X\n", mode)
			r.SP_usr = value
		}
		return
	}
	if regNum == 14 {
		switch mode {
		case USRMode, SYSMode:
			r.LR_usr = value
		case SVCMode:
			r.LR_svc = value
		case ABTMode:
			r.LR_abt = value
		case UNDMode:
			r.LR_und = value
		case IRQMode:
			r.LR_irq = value
		default:
			dbg.Printf("Warning: SetReg(R14) in unknown mode %02X\n", mode)
			r.LR_usr = value
		}
		return
	}
	r.R[regNum] = value
}

// GetSPSR returns the SPSR for the current mode. USR/SYS have no SPSR;
// GBATEK documents reads there as unpredictable, we return 0.
func (r *Registers) GetSPSR() uint32 {
	switch r.GetMode() {
	case FIQMode:
		return r.SPSR_fiq
	case SVCMode:
		return r.SPSR_svc
	case ABTMode:
		return r.SPSR_abt
	case IRQMode:
		return r.SPSR_irq
	case UNDMode:
		return r.SPSR_und
	default:
		return 0
	}
}

// SetSPSR sets the SPSR for the current mode. No-op in USR/SYS.
func (r *Registers) SetSPSR(value uint32) {
	switch r.GetMode() {
	case FIQMode:
		r.SPSR_fiq = value
	case SVCMode:
		r.SPSR_svc = value
	case ABTMode:
		r.SPSR_abt = value
	case IRQMode:
		r.SPSR_irq = value
	case UNDMode:
		r.SPSR_und = value
	}
}

// EnterException performs the atomic exception-entry sequence of §4.2:
// save CPSR to the new mode's SPSR, switch mode, force ARM state, mask
// IRQ (and FIQ for reset/FIQ entries), set the new mode's LR, and set PC
// to the vector. It does not flush the pipeline — callers do that once
// they also know whether to charge the 2x refill.
func (r *Registers) EnterException(newMode uint8, lr uint32, vector uint32, maskFIQ bool) {
	oldCPSR := r.CPSR
	r.SetMode(newMode)
	r.SetSPSR(oldCPSR)
	r.CPSR &^= 1 << 5 // force ARM state
	r.CPSR |= 1 << 7  // mask IRQ
	if maskFIQ {
		r.CPSR |= 1 << 6
	}
	r.SetReg(14, lr)
	r.SetPC(vector)
}

// IsThumb returns true if T flag in CPSR is set (Thumb state).
func (r *Registers) IsThumb() bool {
	return (r.CPSR>>5)&1 == 1
}

// SetThumbState sets or clears the T flag in CPSR.
func (r *Registers) SetThumbState(thumb bool) {
	if thumb {
		r.CPSR |= (1 << 5)
	} else {
		r.CPSR &^= (1 << 5)
	}
}

// IsFIQDisabled returns true if F flag in CPSR is set (FIQ disabled).
func (r *Registers) IsFIQDisabled() bool {
	return (r.CPSR>>6)&1 == 1
}

// SetFIQDisabled sets or clears the F flag in CPSR.
func (r *Registers) SetFIQDisabled(disabled bool) {
	if disabled {
		r.CPSR |= (1 << 6)
	} else {
		r.CPSR &^= (1 << 6)
	}
}

// IsIRQDisabled returns true if I flag in CPSR is set (IRQ disabled).
func (r *Registers) IsIRQDisabled() bool {
	return (r.CPSR>>7)&1 == 1
}

// SetIRQDisabled sets or clears the I flag in CPSR.
func (r *Registers) SetIRQDisabled(disabled bool) {
	if disabled {
		r.CPSR |= (1 << 7)
	} else {
		r.CPSR &^= (1 << 7)
	}
}

func (r *Registers) GetFlagN() bool { return (r.CPSR>>31)&1 == 1 }
func (r *Registers) GetFlagZ() bool { return (r.CPSR>>30)&1 == 1 }
func (r *Registers) GetFlagC() bool { return (r.CPSR>>29)&1 == 1 }
func (r *Registers) GetFlagV() bool { return (r.CPSR>>28)&1 == 1 }

func (r *Registers) SetFlagN(set bool) { r.setFlagBit(31, set) }
func (r *Registers) SetFlagZ(set bool) { r.setFlagBit(30, set) }
func (r *Registers) SetFlagC(set bool) { r.setFlagBit(29, set) }
func (r *Registers) SetFlagV(set bool) { r.setFlagBit(28, set) }

func (r *Registers) setFlagBit(bit uint, set bool) {
	if set {
		r.CPSR |= 1 << bit
	} else {
		r.CPSR &^= 1 << bit
	}
}

// String returns a string representation of the registers for debugging.
func (r *Registers) String() string {
	mode := r.GetMode()
	modeStr := modeName(mode)
	thumbState := "ARM"
	if r.IsThumb() {
		thumbState = "THUMB"
	}

	return fmt.Sprintf(
		"R0 =%08X  R1 =%08X  R2 =%08X  R3 =%08X\n"+
			"R4 =%08X  R5 =%08X  R6 =%08X  R7 =%08X\n"+
			"R8 =%08X  R9 =%08X  R10=%08X  R11=%08X\n"+
			"R12=%08X  SP =%08X  LR =%08X  PC =%08X\n"+
			"CPSR=%08X (%s %s N:%t Z:%t C:%t V:%t I:%t F:%t)\n"+
			"SPSR=%08X",
		r.GetReg(0), r.GetReg(1), r.GetReg(2), r.GetReg(3),
		r.GetReg(4), r.GetReg(5), r.GetReg(6), r.GetReg(7),
		r.GetReg(8), r.GetReg(9), r.GetReg(10), r.GetReg(11),
		r.GetReg(12), r.GetReg(13), r.GetReg(14), r.GetReg(15),
		r.CPSR, modeStr, thumbState,
		r.GetFlagN(), r.GetFlagZ(), r.GetFlagC(), r.GetFlagV(),
		r.IsIRQDisabled(), r.IsFIQDisabled(),
		r.GetSPSR(),
	)
}

func modeName(mode uint8) string {
	switch mode {
	case USRMode:
		return "USR"
	case FIQMode:
		return "FIQ"
	case IRQMode:
		return "IRQ"
	case SVCMode:
		return "SVC"
	case ABTMode:
		return "ABT"
	case UNDMode:
		return "UND"
	case SYSMode:
		return "SYS"
	default:
		return fmt.Sprintf("?%02X?", mode)
	}
}

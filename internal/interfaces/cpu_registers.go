package interfaces

// RegistersInterface is the ARM7TDMI register file: 16 visible registers
// banked per privilege mode, plus CPSR/SPSR (C4, spec §4.2).
type RegistersInterface interface {
	GetFlagC() bool
	GetFlagN() bool
	GetFlagV() bool
	GetFlagZ() bool
	SetFlagC(bool)
	SetFlagN(bool)
	SetFlagV(bool)
	SetFlagZ(bool)

	GetCPSR() uint32
	SetCPSR(uint32)
	GetSPSR() uint32
	SetSPSR(uint32)

	GetPC() uint32
	SetPC(uint32)

	GetMode() uint8
	SetMode(uint8)

	GetReg(uint8) uint32
	SetReg(uint8, uint32)
	// GetUserReg/SetUserReg force the User/System bank regardless of the
	// current mode, used by LDM/STM with the `^` suffix.
	GetUserReg(uint8) uint32
	SetUserReg(uint8, uint32)

	IsFIQDisabled() bool
	SetFIQDisabled(bool)
	IsIRQDisabled() bool
	SetIRQDisabled(bool)
	IsThumb() bool
	SetThumbState(bool)

	// EnterException performs the atomic exception-entry sequence of
	// §4.2: save CPSR to the new mode's SPSR, switch mode, force ARM
	// state, mask IRQ (and FIQ when maskFIQ), set LR, set PC to vector.
	EnterException(newMode uint8, lr uint32, vector uint32, maskFIQ bool)

	String() string
}

package cpu

// DecodeInstruction_Arm decodes a 32-bit ARM instruction word into one of
// the opcode-tag structs in arm_instructions.go. This is the "compact
// opcode tag + dispatch" approach of §9's design notes: decode once into
// a sum type, then switch on the concrete type in execute_Arm.
func DecodeInstruction_Arm(instruction uint32) interface{} {
	cond := ARMCondition((instruction >> 28) & 0x0F)
	base := ARMInstruction{Cond: cond}

	switch {
	case instruction&0x0FC000F0 == 0x00000090: // MUL/MLA
		return ARMMultiplyInstruction{
			ARMInstruction: base,
			A:              (instruction>>21)&1 != 0,
			S:              (instruction>>20)&1 != 0,
			Rd:             uint8((instruction >> 16) & 0xF),
			Rn:             uint8((instruction >> 12) & 0xF),
			Rs:             uint8((instruction >> 8) & 0xF),
			Rm:             uint8(instruction & 0xF),
		}

	case instruction&0x0F8000F0 == 0x00800090: // UMULL/UMLAL/SMULL/SMLAL
		return ARMMultiplyInstruction{
			ARMInstruction: base,
			Long:           true,
			Unsigned:       (instruction>>22)&1 == 0,
			A:              (instruction>>21)&1 != 0,
			S:              (instruction>>20)&1 != 0,
			Rn:             uint8((instruction >> 16) & 0xF), // RdHi
			Rd:             uint8((instruction >> 12) & 0xF), // RdLo
			Rs:             uint8((instruction >> 8) & 0xF),
			Rm:             uint8(instruction & 0xF),
		}

	case instruction&0x0FB00FF0 == 0x01000090: // SWP/SWPB
		return ARMSwapInstruction{
			ARMInstruction: base,
			B:              (instruction>>22)&1 != 0,
			Rn:             uint8((instruction >> 16) & 0xF),
			Rd:             uint8((instruction >> 12) & 0xF),
			Rm:             uint8(instruction & 0xF),
		}

	case instruction&0x0FFFFFF0 == 0x012FFF10: // BX
		return ARMBranchExchangeInstruction{ARMInstruction: base, Rn: uint8(instruction & 0xF)}

	case instruction&0x0FFFFFF0 == 0x012FFF30: // BLX (register)
		return ARMBranchExchangeInstruction{ARMInstruction: base, Link: true, Rn: uint8(instruction & 0xF)}

	case instruction&0x0FBF0FFF == 0x010F0000: // MRS
		return ARMPSRTransferInstruction{
			ARMInstruction: base,
			UseSPSR:        (instruction>>22)&1 != 0,
			Rd:             uint8((instruction >> 12) & 0xF),
		}

	case instruction&0x0FBFFFF0 == 0x0129F000: // MSR (register)
		return ARMPSRTransferInstruction{
			ARMInstruction: base,
			ToPSR:          true,
			UseSPSR:        (instruction>>22)&1 != 0,
			FieldMask:      uint8((instruction >> 16) & 0xF),
			Rm:             uint8(instruction & 0xF),
		}

	case instruction&0x0FBFF000 == 0x0328F000: // MSR (immediate)
		return ARMPSRTransferInstruction{
			ARMInstruction: base,
			ToPSR:          true,
			UseSPSR:        (instruction>>22)&1 != 0,
			FieldMask:      uint8((instruction >> 16) & 0xF),
			I:              true,
			RotateImm:      uint8((instruction >> 8) & 0xF),
			Nn:             uint8(instruction & 0xFF),
		}

	case instruction&0x0E000090 == 0x00000090: // halfword/signed transfer
		i := (instruction>>22)&1 != 0
		h := ARMHalfwordTransferInstruction{
			ARMInstruction: base,
			P:              (instruction>>24)&1 != 0,
			U:              (instruction>>23)&1 != 0,
			I:              i,
			W:              (instruction>>21)&1 != 0,
			L:              (instruction>>20)&1 != 0,
			Rn:             uint8((instruction >> 16) & 0xF),
			Rd:             uint8((instruction >> 12) & 0xF),
			Signed:         (instruction>>6)&1 != 0,
			Half:           (instruction>>5)&1 != 0,
		}
		if i {
			h.Offset8 = uint8(((instruction>>8)&0xF)<<4 | (instruction & 0xF))
		} else {
			h.Rm = uint8(instruction & 0xF)
		}
		return h
	}

	switch (instruction >> 26) & 0x03 {
	case 0: // Data processing
		I := (instruction>>25)&0x01 != 0
		S := (instruction>>20)&0x01 != 0
		Rn := uint8((instruction >> 16) & 0x0F)
		Rd := uint8((instruction >> 12) & 0x0F)
		ShiftType := uint8((instruction >> 5) & 0x03)
		R := (instruction>>4)&0x01 != 0
		Rm := uint8(instruction & 0x0F)

		var Is, Rs, Nn uint8
		switch {
		case !I && !R:
			Is = uint8((instruction >> 7) & 0x1F)
		case I:
			Is = uint8((instruction >> 8) & 0x0F)
			Nn = uint8(instruction & 0xFF)
		case !I && R:
			Rs = uint8((instruction >> 8) & 0x0F)
		}

		return ARMDataProcessingInstruction{
			ARMInstruction: base,
			I:              I,
			Opcode:         ARMDataProcessingOperation((instruction >> 21) & 0x0F),
			S:              S,
			Rn:             Rn,
			Rd:             Rd,
			ShiftType:      ARMShiftType(ShiftType),
			R:              R,
			Is:             Is,
			Rs:             Rs,
			Nn:             Nn,
			Rm:             Rm,
		}

	case 1: // Single data transfer
		return ARMLoadStoreInstruction{
			ARMInstruction: base,
			P:              (instruction>>24)&0x01 != 0,
			U:              (instruction>>23)&0x01 != 0,
			B:              (instruction>>22)&0x01 != 0,
			W:              (instruction>>21)&0x01 != 0,
			L:              (instruction>>20)&0x01 != 0,
			Rn:             uint8((instruction >> 16) & 0x0F),
			Rd:             uint8((instruction >> 12) & 0x0F),
			Offset:         instruction & 0x0FFF,
		}

	case 2:
		if (instruction>>25)&0x01 == 1 { // Block data transfer
			return ARMBlockDataTransferInstruction{
				ARMInstruction: base,
				P:              (instruction>>24)&0x01 != 0,
				U:              (instruction>>23)&0x01 != 0,
				S:              (instruction>>22)&0x01 != 0,
				W:              (instruction>>21)&0x01 != 0,
				L:              (instruction>>20)&0x01 != 0,
				Rn:             uint8((instruction >> 16) & 0x0F),
				RegisterList:   uint16(instruction & 0xFFFF),
			}
		}
		offset := instruction & 0x00FFFFFF
		if offset&0x00800000 != 0 {
			offset |= 0xFF000000
		}
		return ARMBranchInstruction{
			ARMInstruction: base,
			Link:           (instruction>>24)&0x01 == 1,
			TargetAddr:     offset << 2,
		}

	default: // case 3
		if (instruction>>24)&0x0F == 0x0F { // SWI
			return ARMSWIInstruction{ARMInstruction: base, Immediate: instruction & 0x00FFFFFF}
		}
		// Coprocessor instructions: GBA has no coprocessor, these decode
		// to undefined instruction exceptions at execute time.
		return ARMControlInstruction{ARMInstruction: base, Opcode: instruction & 0x0FFFFFFF}
	}
}

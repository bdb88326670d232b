package cartridge

import (
	"GoBA/internal/interfaces"
	"GoBA/util/dbg"
)

// flashState tracks where in the standard JEDEC-style command sequence
// (0xAA@0x5555, 0x55@0x2AAA, opcode@0x5555) the chip currently is.
type flashState int

const (
	flashReady flashState = iota
	flashCmd1             // saw 0xAA@0x5555
	flashCmd2             // saw 0x55@0x2AAA
)

const (
	flashBankSize = 64 * 1024

	flashCmdAddr1 = 0x5555
	flashCmdAddr2 = 0x2AAA
)

// Flash models the Macronix/SST/Panasonic-style Flash chips GBA carts
// use for save media: command-driven erase and byte-program, plus an ID
// mode and (for the 128 KiB variant) a bank-select register.
type Flash struct {
	data       []byte
	state      flashState
	idMode     bool
	erasing    bool
	programing bool
	bankSelect bool
	bank       uint32
	banked     bool // true for Flash1024 (two 64 KiB banks)
}

var _ interfaces.SaveBackend = (*Flash)(nil)

func NewFlash(size int, banked bool) *Flash {
	return &Flash{data: make([]byte, size), banked: banked}
}

func (f *Flash) deviceID() (manufacturer, device uint8) {
	if f.banked {
		return 0x62, 0x13 // Sanyo 128 KiB part
	}
	return 0x32, 0x1B // Panasonic 64 KiB part
}

func (f *Flash) ReadByte(addr uint32) uint8 {
	if f.idMode && addr <= 1 {
		manufacturer, device := f.deviceID()
		if addr == 0 {
			return manufacturer
		}
		return device
	}
	offset := addr
	if f.banked {
		offset += f.bank * flashBankSize
	}
	if int(offset) >= len(f.data) {
		return 0xFF
	}
	return f.data[offset]
}

func (f *Flash) WriteByte(addr uint32, value uint8) {
	if f.bankSelect && addr == 0 {
		f.bank = uint32(value) & 1
		f.bankSelect = false
		f.state = flashReady
		return
	}
	if f.programing {
		offset := addr
		if f.banked {
			offset += f.bank * flashBankSize
		}
		if int(offset) < len(f.data) {
			f.data[offset] = value
		}
		f.programing = false
		f.state = flashReady
		return
	}

	switch f.state {
	case flashReady:
		if addr == flashCmdAddr1 && value == 0xAA {
			f.state = flashCmd1
		}
	case flashCmd1:
		if addr == flashCmdAddr2 && value == 0x55 {
			f.state = flashCmd2
		} else {
			f.state = flashReady
		}
	case flashCmd2:
		f.state = flashReady
		switch value {
		case 0x90:
			f.idMode = true
		case 0xF0:
			f.idMode = false
		case 0xA0:
			f.programing = true
		case 0xB0:
			if f.banked {
				f.bankSelect = true
			}
		case 0x80:
			f.erasing = true
		case 0x10:
			if f.erasing {
				for i := range f.data {
					f.data[i] = 0xFF
				}
			}
			f.erasing = false
		case 0x30:
			if f.erasing {
				f.eraseSector(addr)
			}
			f.erasing = false
		default:
			dbg.Printf("cartridge: unrecognized flash command %02X\n", value)
		}
	}
}

func (f *Flash) eraseSector(addr uint32) {
	offset := addr
	if f.banked {
		offset += f.bank * flashBankSize
	}
	sectorStart := offset &^ 0xFFF
	sectorEnd := sectorStart + 0x1000
	if int(sectorEnd) > len(f.data) {
		sectorEnd = uint32(len(f.data))
	}
	for i := sectorStart; i < sectorEnd; i++ {
		f.data[i] = 0xFF
	}
}

func (f *Flash) Bytes() []byte { return f.data }

func (f *Flash) LoadBytes(data []byte) {
	copy(f.data, data)
}

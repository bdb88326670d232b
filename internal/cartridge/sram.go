package cartridge

import "GoBA/internal/interfaces"

// SRAM is the simplest save backend: a flat, battery-backed byte array
// with no command protocol.
type SRAM struct {
	data []byte
}

var _ interfaces.SaveBackend = (*SRAM)(nil)

func NewSRAM(size int) *SRAM {
	return &SRAM{data: make([]byte, size)}
}

func (s *SRAM) ReadByte(addr uint32) uint8 {
	if int(addr) >= len(s.data) {
		return 0xFF
	}
	return s.data[addr]
}

func (s *SRAM) WriteByte(addr uint32, value uint8) {
	if int(addr) >= len(s.data) {
		return
	}
	s.data[addr] = value
}

func (s *SRAM) Bytes() []byte { return s.data }

func (s *SRAM) LoadBytes(data []byte) {
	copy(s.data, data)
}

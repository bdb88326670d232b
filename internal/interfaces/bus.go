package interfaces

// AccessType classifies a bus cycle for wait-state accounting. It never
// changes the value returned by a read; it only selects which of the
// region's N/S/I cycle costs gets charged.
type AccessType uint8

const (
	Sequential AccessType = iota
	Nonsequential
	InternalCycle
)

func (a AccessType) String() string {
	switch a {
	case Sequential:
		return "S"
	case Nonsequential:
		return "N"
	case InternalCycle:
		return "I"
	default:
		return "?"
	}
}

// FetchHint is what an instruction handler returns to tell the CPU front
// end how to charge the fetch of whatever comes next.
type FetchHint uint8

const (
	HintSequential FetchHint = iota
	HintNonsequential
	HintBranch
)

// BusInterface is the memory-mapped peripheral bus. Every access returns
// the cycle cost charged against the caller's instruction alongside the
// value; nothing here advances a shared counter itself (§4.8: the
// scheduler is the sole authority on time progression).
type BusInterface interface {
	Read8(addr uint32, at AccessType) (uint8, int)
	Read16(addr uint32, at AccessType) (uint16, int)
	Read32(addr uint32, at AccessType) (uint32, int)
	Write8(addr uint32, val uint8, at AccessType) int
	Write16(addr uint32, val uint16, at AccessType) int
	Write32(addr uint32, val uint32, at AccessType) int
}

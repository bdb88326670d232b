// Package rom handles ROM file loading from disk, deliberately kept
// outside the emulator core (spec §1's "ROM file loading from disk" is
// an external collaborator).
package rom

import (
	"fmt"
	"os"
)

// MaxSize is the largest cartridge image the address map can hold: the
// three 32 MiB wait-state windows all alias the same image, so anything
// bigger could never be addressed in full.
const MaxSize = 32 * 1024 * 1024

// RomLoadErrorKind distinguishes why load_rom failed (spec §7).
type RomLoadErrorKind int

const (
	Missing RomLoadErrorKind = iota
	TooLarge
)

func (k RomLoadErrorKind) String() string {
	if k == TooLarge {
		return "too large"
	}
	return "missing"
}

// RomLoadError is the typed failure surfaced to the host when a ROM file
// can't be loaded (spec §7).
type RomLoadError struct {
	Kind RomLoadErrorKind
	Path string
	Err  error
}

func (e *RomLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rom: %s (%s): %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("rom: %s (%s)", e.Kind, e.Path)
}

func (e *RomLoadError) Unwrap() error { return e.Err }

type ROM struct {
	Data []byte
}

// Load reads a GBA ROM file into memory, mapped verbatim at 0x08000000
// by the bus (spec §6). No header validation is performed beyond size.
func Load(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RomLoadError{Kind: Missing, Path: path, Err: err}
	}

	if len(data) > MaxSize {
		return nil, &RomLoadError{Kind: TooLarge, Path: path, Err: fmt.Errorf("%d bytes exceeds %d byte limit", len(data), MaxSize)}
	}

	return &ROM{Data: data}, nil
}

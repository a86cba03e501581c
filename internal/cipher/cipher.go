// Package cipher describes the SPN block ciphers the hull search runs on and
// the per-S-box base tables (DDT, adjusted LAT) it looks trails up in.
package cipher

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Mode selects differential or linear cryptanalysis.
type Mode int

const (
	// Differential uses the difference distribution table.
	Differential Mode = iota
	// Linear uses the adjusted linear approximation table.
	Linear
)

func (m Mode) String() string {
	if m == Linear {
		return "lin"
	}
	return "diff"
}

// ParseMode accepts "diff", "differential", "lin" and "linear".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "diff", "differential":
		return Differential, nil
	case "lin", "linear":
		return Linear, nil
	}
	return Differential, fmt.Errorf("unknown mode %q", s)
}

// Cipher is the view of a block cipher the search needs. Rounds are
// numbered from 0; positions count S-boxes from the least significant bits.
type Cipher interface {
	Name() string
	NrOfRounds() int
	BlockSize(round int) int
	NumSboxes(round int) int
	SboxSizeIn(round, pos int) int
	SboxSizeOut(round, pos int) int
	// ApplyLinearLayer maps the LHS of the S-box output bits of round to
	// the LHS of the input bits of round+1.
	ApplyLinearLayer(round int, in []*bitset.BitSet) []*bitset.BitSet
	BaseTable(round, pos int, mode Mode) *BaseTable
}

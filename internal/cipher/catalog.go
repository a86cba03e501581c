package cipher

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

var (
	presentSbox = []int{0xc, 0x5, 0x6, 0xb, 0x9, 0x0, 0xa, 0xd, 0x3, 0xe, 0xf, 0x8, 0x4, 0x7, 0x1, 0x2}
	giftSbox    = []int{0x1, 0xa, 0x4, 0xc, 0x6, 0xf, 0x3, 0x9, 0x2, 0xd, 0xb, 0x7, 0x5, 0x0, 0x8, 0xe}

	gift64Perm = []int{
		0, 17, 34, 51, 48, 1, 18, 35, 32, 49, 2, 19, 16, 33, 50, 3,
		4, 21, 38, 55, 52, 5, 22, 39, 36, 53, 6, 23, 20, 37, 54, 7,
		8, 25, 42, 59, 56, 9, 26, 43, 40, 57, 10, 27, 24, 41, 58, 11,
		12, 29, 46, 63, 60, 13, 30, 47, 44, 61, 14, 31, 28, 45, 62, 15,
	}
)

// presentPerm is the PRESENT pLayer generalised to n bits: bit i moves to
// i·n/4 mod (n−1), the last bit stays.
func presentPerm(n int) []int {
	p := make([]int, n)
	for i := 0; i < n-1; i++ {
		p[i] = i * n / 4 % (n - 1)
	}
	p[n-1] = n - 1
	return p
}

// SPN is a substitution-permutation network with one S-box repeated across
// the state and one bit permutation as linear layer. Key additions do not
// affect differences or masks and are not modelled.
type SPN struct {
	name     string
	rounds   int
	sbox     []int
	sboxBits int
	perm     []int
	ddt      *BaseTable
	lat      *BaseTable
}

// NewSPN builds a cipher whose state is len(perm) bits wide. perm[i] is the
// destination of bit i.
func NewSPN(name string, rounds int, sbox []int, sboxBits int, perm []int) (*SPN, error) {
	if len(sbox) != 1<<sboxBits {
		return nil, fmt.Errorf("%s: S-box has %d entries, want %d", name, len(sbox), 1<<sboxBits)
	}
	if len(perm)%sboxBits != 0 {
		return nil, fmt.Errorf("%s: block of %d bits is not a multiple of the S-box size %d", name, len(perm), sboxBits)
	}
	seen := make([]bool, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("%s: linear layer is not a permutation at bit %d", name, i)
		}
		seen[p] = true
	}
	return &SPN{
		name:     name,
		rounds:   rounds,
		sbox:     sbox,
		sboxBits: sboxBits,
		perm:     perm,
		ddt:      NewDDT(sbox, sboxBits, sboxBits),
		lat:      NewLAT(sbox, sboxBits, sboxBits),
	}, nil
}

func (c *SPN) Name() string { return c.name }
func (c *SPN) NrOfRounds() int { return c.rounds }
func (c *SPN) BlockSize(int) int { return len(c.perm) }
func (c *SPN) NumSboxes(int) int { return len(c.perm) / c.sboxBits }
func (c *SPN) SboxSizeIn(int, int) int { return c.sboxBits }
func (c *SPN) SboxSizeOut(int, int) int { return c.sboxBits }
func (c *SPN) Sbox(x int) int { return c.sbox[x] }
func (c *SPN) Permutation(bit int) int { return c.perm[bit] }

// ApplyLinearLayer moves every bit to its permuted position. A bit
// permutation is orthogonal, so masks travel the same way as differences.
func (c *SPN) ApplyLinearLayer(_ int, in []*bitset.BitSet) []*bitset.BitSet {
	out := make([]*bitset.BitSet, len(in))
	for i, v := range in {
		out[c.perm[i]] = v.Clone()
	}
	return out
}

func (c *SPN) BaseTable(_, _ int, mode Mode) *BaseTable {
	if mode == Linear {
		return c.lat
	}
	return c.ddt
}

var catalog = map[string]func() (*SPN, error){
	"toy16": func() (*SPN, error) {
		return NewSPN("toy16", 10, presentSbox, 4, presentPerm(16))
	},
	"present": func() (*SPN, error) {
		return NewSPN("present", 31, presentSbox, 4, presentPerm(64))
	},
	"gift64": func() (*SPN, error) {
		return NewSPN("gift64", 28, giftSbox, 4, gift64Perm)
	},
}

// Lookup returns the catalog cipher with the given name.
func Lookup(name string) (Cipher, error) {
	build, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown cipher %q (known: %v)", name, Names())
	}
	return build()
}

// Names lists the catalog, sorted.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for n := range catalog {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

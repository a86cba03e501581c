// Package gf2 provides the GF(2) linear algebra used by the shard engine:
// hex encoding of bit-vectors, dot products, linear-dependency extraction and
// matrix inversion. Vectors are *bitset.BitSet with bit i = variable i.
package gf2

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// NewVec returns a zero vector of the given width.
func NewVec(width int) *bitset.BitSet {
	return bitset.New(uint(width))
}

// Unit returns the unit vector e_i of the given width.
func Unit(width, i int) *bitset.BitSet {
	return bitset.New(uint(width)).Set(uint(i))
}

// FromIndices returns a vector with the given bits set.
func FromIndices(width int, idx ...int) *bitset.BitSet {
	v := bitset.New(uint(width))
	for _, i := range idx {
		v.Set(uint(i))
	}
	return v
}

// Indices lists the set bits of v in increasing order.
func Indices(v *bitset.BitSet) []int {
	out := make([]int, 0, v.Count())
	for i, ok := v.NextSet(0); ok; i, ok = v.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// Dot is the GF(2) inner product of a and b.
func Dot(a, b *bitset.BitSet) bool {
	return a.IntersectionCardinality(b)&1 == 1
}

// Xor returns a ⊕ b as a fresh vector.
func Xor(a, b *bitset.BitSet) *bitset.BitSet {
	return a.SymmetricDifference(b)
}

// IsZero reports whether v has no bit set.
func IsZero(v *bitset.BitSet) bool {
	return v == nil || v.None()
}

// Hex encodes the first width bits of v as hex, most significant nibble first.
// Bit 0 is the least significant bit of the last digit.
func Hex(v *bitset.BitSet, width int) string {
	digits := (width + 3) / 4
	if digits == 0 {
		return "0"
	}
	var sb strings.Builder
	sb.Grow(digits)
	for d := digits - 1; d >= 0; d-- {
		nibble := 0
		for b := 0; b < 4; b++ {
			i := d*4 + b
			if i < width && v.Test(uint(i)) {
				nibble |= 1 << b
			}
		}
		sb.WriteByte("0123456789abcdef"[nibble])
	}
	return sb.String()
}

// ParseHex decodes a vector written by Hex. Digits beyond width must be zero.
func ParseHex(s string, width int) (*bitset.BitSet, error) {
	v := bitset.New(uint(width))
	n := len(s)
	for k := 0; k < n; k++ {
		c := s[n-1-k]
		var nibble int
		switch {
		case c >= '0' && c <= '9':
			nibble = int(c - '0')
		case c >= 'a' && c <= 'f':
			nibble = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			nibble = int(c-'A') + 10
		default:
			return nil, fmt.Errorf("invalid hex digit %q in %q", c, s)
		}
		for b := 0; b < 4; b++ {
			if nibble&(1<<b) == 0 {
				continue
			}
			i := k*4 + b
			if i >= width {
				return nil, fmt.Errorf("bit %d of %q exceeds width %d", i, s, width)
			}
			v.Set(uint(i))
		}
	}
	return v, nil
}

// BitsToHex encodes a slice of bits (index 0 = least significant) as Hex does.
func BitsToHex(bits []bool) string {
	v := bitset.New(uint(len(bits)))
	for i, b := range bits {
		if b {
			v.Set(uint(i))
		}
	}
	return Hex(v, len(bits))
}

// HexToBits is the inverse of BitsToHex for a known width.
func HexToBits(s string, width int) ([]bool, error) {
	v, err := ParseHex(s, width)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, width)
	for i := range bits {
		bits[i] = v.Test(uint(i))
	}
	return bits, nil
}

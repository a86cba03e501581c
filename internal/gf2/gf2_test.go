package gf2

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex_RoundTrip(t *testing.T) {
	// nibbles 6, 8 and 2 at positions 0, 2 and 5
	bits := make([]bool, 32)
	for _, i := range []int{1, 2, 11, 21} {
		bits[i] = true
	}

	s := BitsToHex(bits)
	assert.Equal(t, "00200806", s)

	back, err := HexToBits(s, 32)
	require.NoError(t, err)
	assert.Equal(t, bits, back)
}

func TestHex_OddWidth(t *testing.T) {
	v := FromIndices(6, 0, 5)
	assert.Equal(t, "21", Hex(v, 6))

	_, err := ParseHex("41", 6)
	assert.Error(t, err, "bit 6 is outside a 6-bit vector")
}

func TestParseHex_InvalidDigit(t *testing.T) {
	_, err := ParseHex("0g", 8)
	assert.Error(t, err)
}

func TestDot(t *testing.T) {
	a := FromIndices(8, 0, 1, 3)
	b := FromIndices(8, 1, 3, 4)
	assert.False(t, Dot(a, b))
	assert.True(t, Dot(a, FromIndices(8, 0)))
}

func TestDependencies_FindsDuplicateAndSum(t *testing.T) {
	rows := []*bitset.BitSet{
		FromIndices(4, 0),
		FromIndices(4, 1),
		FromIndices(4, 0),
		FromIndices(4, 2),
		FromIndices(4, 0, 1, 2),
	}

	deps := Dependencies(rows)
	require.Len(t, deps, 2)
	assert.Equal(t, []int{0, 2}, Indices(deps[0]))
	assert.Equal(t, []int{0, 1, 3, 4}, Indices(deps[1]))
	assert.Equal(t, 3, Rank(rows))
	assert.Equal(t, 2, Span(deps[0]))
}

func TestDependencies_Independent(t *testing.T) {
	rows := []*bitset.BitSet{Unit(3, 0), Unit(3, 1), FromIndices(3, 0, 2)}
	assert.Empty(t, Dependencies(rows))
	assert.Equal(t, 3, Rank(rows))
}

func TestInverse(t *testing.T) {
	// rows: x0+x1, x1, x1+x2
	rows := []*bitset.BitSet{FromIndices(3, 0, 1), FromIndices(3, 1), FromIndices(3, 1, 2)}
	inv, err := Inverse(rows, 3)
	require.NoError(t, err)

	x := FromIndices(3, 0, 2)
	v := MulVec(rows, x)
	assert.True(t, MulVec(inv, v).Equal(x))
}

func TestInverse_Singular(t *testing.T) {
	rows := []*bitset.BitSet{FromIndices(2, 0, 1), FromIndices(2, 0, 1)}
	_, err := Inverse(rows, 2)
	assert.ErrorIs(t, err, ErrSingular)
}

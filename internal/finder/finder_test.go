package finder

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
)

// diamond: source shares both edges into A; A splits into B0/B1 that both
// reach the sink through their 0-edge only.
func diamond(t *testing.T) *shard.Shard {
	t.Helper()
	lhs := []*bitset.BitSet{gf2.Unit(3, 0), gf2.Unit(3, 1), gf2.Unit(3, 2)}
	s, err := shard.FromTable(3, lhs, [][][2]int32{
		{{0, 0}},
		{{0, 1}},
		{{0, shard.None}, {0, 0}},
	})
	require.NoError(t, err)
	return s
}

func TestBoolean_SharedEdgesEmittedPerLabel(t *testing.T) {
	s := diamond(t)

	got := Boolean(s, 0, 0, 1)

	assert.Equal(t, []Reach{{Index: 0, OneEdge: false}, {Index: 0, OneEdge: true}}, got)
}

func TestBoolean_FullDepth(t *testing.T) {
	s := diamond(t)

	got := Boolean(s, 0, 0, 3)

	// 000, 010, 011, 100, 110, 111
	require.Len(t, got, 6)
	ones := 0
	for _, r := range got {
		assert.Equal(t, int32(0), r.Index)
		if r.OneEdge {
			ones++
		}
	}
	assert.Equal(t, 5, ones)
}

func TestBoolean_ZeroDelta(t *testing.T) {
	s := diamond(t)
	assert.Equal(t, []Reach{{Index: 1}}, Boolean(s, 2, 1, 0))
}

func TestPaths_CarryLabels(t *testing.T) {
	s := diamond(t)

	got := Paths(s, 1, 0, 2)

	require.Len(t, got, 3)
	var seqs [][]bool
	for _, p := range got {
		assert.Equal(t, int32(0), p.Index)
		seqs = append(seqs, p.Bits)
	}
	assert.ElementsMatch(t, [][]bool{{false, false}, {true, false}, {true, true}}, seqs)
}

func TestPaths_BranchesDoNotAlias(t *testing.T) {
	s := diamond(t)

	got := Paths(s, 0, 0, 3)

	require.Len(t, got, 6)
	seen := map[string]bool{}
	for _, p := range got {
		require.Len(t, p.Bits, 3)
		seen[gf2.BitsToHex(p.Bits)] = true
	}
	assert.Len(t, seen, 6)
}

func TestFinder_TrivialShard(t *testing.T) {
	s := shard.New(2)
	assert.Equal(t, []Reach{{Index: 0}}, Boolean(s, 0, 0, 0))
	assert.Len(t, Paths(s, 0, 0, 0), 1)
}

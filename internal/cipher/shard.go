package cipher

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/mahdiidarabi/crhs-hull/internal/shard"
)

// SboxShard builds the shard of one S-box instance: the input LHS levels,
// least significant bit first, followed by the output LHS levels. Its paths
// are exactly the (input, output) pairs with a non-zero base-table entry.
func SboxShard(nvar int, in, out []*bitset.BitSet, bt *BaseTable) (*shard.Shard, error) {
	if 1<<len(in) != bt.Rows() || 1<<len(out) != bt.Cols() {
		return nil, fmt.Errorf("S-box shard: %d/%d LHS for a %dx%d table", len(in), len(out), bt.Rows(), bt.Cols())
	}
	width := len(in) + len(out)

	// every valid pair as a bit string, input bits first
	var words []uint64
	for a := 0; a < bt.Rows(); a++ {
		for b := 0; b < bt.Cols(); b++ {
			if bt.Entry(a, b) != 0 {
				words = append(words, uint64(a)|uint64(b)<<uint(len(in)))
			}
		}
	}

	// level d holds one node per distinct d-bit prefix
	prefixes := make([][]uint64, width+1)
	index := make([]map[uint64]int32, width+1)
	for d := 0; d <= width; d++ {
		seen := make(map[uint64]bool)
		mask := uint64(1)<<uint(d) - 1
		for _, w := range words {
			if p := w & mask; !seen[p] {
				seen[p] = true
				prefixes[d] = append(prefixes[d], p)
			}
		}
		sort.Slice(prefixes[d], func(i, j int) bool { return prefixes[d][i] < prefixes[d][j] })
		index[d] = make(map[uint64]int32, len(prefixes[d]))
		for i, p := range prefixes[d] {
			index[d][p] = int32(i)
		}
	}

	table := make([][][2]int32, width)
	for d := 0; d < width; d++ {
		table[d] = make([][2]int32, len(prefixes[d]))
		for i, p := range prefixes[d] {
			for b := 0; b < 2; b++ {
				child := shard.None
				if d+1 == width {
					if _, ok := index[width][p|uint64(b)<<uint(d)]; ok {
						child = 0
					}
				} else if j, ok := index[d+1][p|uint64(b)<<uint(d)]; ok {
					child = j
				}
				table[d][i][b] = child
			}
		}
	}
	lhs := append(append([]*bitset.BitSet{}, in...), out...)
	return shard.FromTable(nvar, lhs, table)
}

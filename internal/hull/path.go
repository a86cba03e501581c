package hull

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
)

// Path is a sequence of edge labels, top-most first. A Path sent over a
// channel is never modified again.
type Path []bool

// Append returns a new path with bits added at the end.
func (p Path) Append(bits ...bool) Path {
	out := make(Path, len(p), len(p)+len(bits))
	copy(out, p)
	return append(out, bits...)
}

// Weight counts the cohorts of step labels that hold at least one 1-edge.
func (p Path) Weight(step int) int {
	w := 0
	for c := 0; c < len(p); c += step {
		end := c + step
		if end > len(p) {
			end = len(p)
		}
		for _, b := range p[c:end] {
			if b {
				w++
				break
			}
		}
	}
	return w
}

// Hex encodes the labels, label i as bit i.
func (p Path) Hex() string {
	return gf2.BitsToHex(p)
}

// Vector turns the concatenation of parts into a label vector, bit d being
// the label at depth d.
func Vector(parts ...Path) *bitset.BitSet {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	v := bitset.New(uint(n))
	d := 0
	for _, p := range parts {
		for _, b := range p {
			if b {
				v.Set(uint(d))
			}
			d++
		}
	}
	return v
}

// walk follows one path of s from node idx at depth down to depth end,
// taking the 0-edge whenever it exists.
func walk(s *shard.Shard, depth int, idx int32, end int) Path {
	out := make(Path, 0, end-depth)
	for d := depth; d < end; d++ {
		edges := s.Levels[d].Nodes[idx].Edges
		if edges[0] != shard.None {
			out = append(out, false)
			idx = edges[0]
		} else {
			out = append(out, true)
			idx = edges[1]
		}
	}
	return out
}

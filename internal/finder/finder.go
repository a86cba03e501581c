// Package finder enumerates the descendants of a shard node a fixed number of
// levels below it.
package finder

import (
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
)

// Reach is one descendant reached by a walk of the boolean finder.
type Reach struct {
	// Index is the node index on the target level.
	Index int32
	// OneEdge is set when at least one 1-edge was taken on the way.
	OneEdge bool
}

// PathReach is one descendant reached by a walk of the path finder.
type PathReach struct {
	Index int32
	// Bits holds the edge labels taken, top-most first.
	Bits []bool
}

// Boolean returns the multiset of nodes reachable from node root at depth in
// exactly delta steps, each tagged with whether a 1-edge was traversed.
//
// Args:
//   - s: a reduced shard
//   - depth: depth of root
//   - root: node index of the walk start
//   - delta: number of levels to descend; depth+delta must not exceed s.Depth()
//
// Returns:
//   - one Reach per distinct walk; a walk through a shared edge pair is
//     reported once per label
func Boolean(s *shard.Shard, depth int, root int32, delta int) []Reach {
	cur := []Reach{{Index: root}}
	next := make([]Reach, 0, 2)
	for step := 0; step < delta; step++ {
		nodes := s.Levels[depth+step].Nodes
		next = next[:0]
		for _, r := range cur {
			edges := nodes[r.Index].Edges
			if edges[0] != shard.None {
				next = append(next, Reach{Index: edges[0], OneEdge: r.OneEdge})
			}
			if edges[1] != shard.None {
				next = append(next, Reach{Index: edges[1], OneEdge: true})
			}
		}
		cur, next = next, cur
	}
	return cur
}

// Paths is Boolean with the full label sequence of each walk.
func Paths(s *shard.Shard, depth int, root int32, delta int) []PathReach {
	cur := []PathReach{{Index: root, Bits: make([]bool, 0, delta)}}
	next := make([]PathReach, 0, 2)
	for step := 0; step < delta; step++ {
		nodes := s.Levels[depth+step].Nodes
		next = next[:0]
		for _, r := range cur {
			edges := nodes[r.Index].Edges
			switch {
			case edges[0] != shard.None && edges[1] != shard.None:
				zero := make([]bool, len(r.Bits), delta)
				copy(zero, r.Bits)
				next = append(next,
					PathReach{Index: edges[0], Bits: append(zero, false)},
					PathReach{Index: edges[1], Bits: append(r.Bits, true)})
			case edges[0] != shard.None:
				next = append(next, PathReach{Index: edges[0], Bits: append(r.Bits, false)})
			case edges[1] != shard.None:
				next = append(next, PathReach{Index: edges[1], Bits: append(r.Bits, true)})
			}
		}
		cur, next = next, cur
	}
	return cur
}

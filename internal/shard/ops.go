package shard

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
)

// via follows edge b out of node idx at depth d, tolerating an absent idx.
func (s *Shard) via(d int, idx int32, b int) int32 {
	if idx == None {
		return None
	}
	return s.Levels[d].Nodes[idx].Edges[b]
}

// rebuildBelow replaces level d+1 with the nodes produced by makeChild for
// every (node at d, label) pair. Nodes with identical edges are shared.
func (s *Shard) rebuildBelow(d int, makeChild func(u Node, c int) [2]int32) {
	upper := s.Levels[d]
	fresh := make([]Node, 0, 2*len(upper.Nodes))
	index := make(map[[2]int32]int32, 2*len(upper.Nodes))
	for i := range upper.Nodes {
		u := upper.Nodes[i]
		var out [2]int32
		for c := 0; c < 2; c++ {
			edges := makeChild(u, c)
			if edges[0] == None && edges[1] == None {
				out[c] = None
				continue
			}
			j, ok := index[edges]
			if !ok {
				j = int32(len(fresh))
				index[edges] = j
				fresh = append(fresh, Node{ID: s.newID(), Edges: edges})
			}
			out[c] = j
		}
		upper.Nodes[i].Edges = out
	}
	s.Levels[d+1].Nodes = fresh
}

// Swap exchanges levels d and d+1. Every path keeps its bit assignment; the
// LHS of the two depths trade places. Level d+1 may grow up to twice the
// width of level d.
func (s *Shard) Swap(d int) error {
	if d < 0 || d+1 >= s.Depth() {
		return newError(KindMalformedSwap, "swap", d, "need two LHS levels below depth %d, shard depth is %d", d, s.Depth())
	}
	lower := d + 1
	s.rebuildBelow(d, func(u Node, b int) [2]int32 {
		return [2]int32{s.via(lower, u.Edges[0], b), s.via(lower, u.Edges[1], b)}
	})
	s.Levels[d].LHS, s.Levels[lower].LHS = s.Levels[lower].LHS, s.Levels[d].LHS
	return s.Reduce(lower)
}

// Add XORs the LHS of below into above and rewires level below so that every
// path keeps its meaning: the new label at above is the XOR of the two old
// labels. The two depths must be adjacent.
func (s *Shard) Add(above, below int) error {
	if below != above+1 {
		return newError(KindIncompatibleDepths, "add", above, "levels %d and %d are not adjacent", above, below)
	}
	if above < 0 || below >= s.Depth() {
		return newError(KindIncompatibleDepths, "add", above, "level %d is not an LHS level of a depth-%d shard", below, s.Depth())
	}
	s.rebuildBelow(above, func(u Node, c int) [2]int32 {
		return [2]int32{s.via(below, u.Edges[c], 0), s.via(below, u.Edges[c^1], 1)}
	})
	s.Levels[above].LHS = gf2.Xor(s.Levels[above].LHS, s.Levels[below].LHS)
	return s.Reduce(below)
}

// Absorb removes level d, which must have become constant along dir: every
// parent edge into a node at d is redirected through that node's dir-edge.
func (s *Shard) Absorb(d int, dir bool) error {
	if d < 0 || d >= s.Depth() {
		return newError(KindOutOfRange, "absorb", d, "shard depth is %d", s.Depth())
	}
	b := 0
	if dir {
		b = 1
	}
	lvl := s.Levels[d]
	if d == 0 {
		next := lvl.Nodes[0].Edges[b]
		if next == None {
			return newError(KindEmptyShard, "absorb", d, "source has no %d-edge", b)
		}
		s.Levels = s.Levels[1:]
		keep := make([]bool, len(s.Levels[0].Nodes))
		keep[next] = true
		s.compactSource(keep)
		return s.Reduce(s.Depth() - 1)
	}

	backup := s.Clone()
	lvl = s.Levels[d]
	parents := s.Levels[d-1].Nodes
	for i := range parents {
		for e, c := range parents[i].Edges {
			if c != None {
				parents[i].Edges[e] = lvl.Nodes[c].Edges[b]
			}
		}
	}
	s.Levels = append(s.Levels[:d], s.Levels[d+1:]...)
	if err := s.Reduce(d - 1); err != nil {
		*s = *backup
		return err
	}
	return nil
}

func (s *Shard) compactSource(keep []bool) {
	lvl := s.Levels[0]
	nodes := make([]Node, 0, 1)
	for i, n := range lvl.Nodes {
		if keep[i] {
			nodes = append(nodes, n)
		}
	}
	lvl.Nodes = nodes
	s.removeOrphans()
}

// Join appends bottom below s, identifying s's sink with bottom's source.
// bottom is copied; its node IDs are renumbered into s's ID space.
func (s *Shard) Join(bottom *Shard) error {
	if s.nvar != bottom.nvar {
		return newError(KindVariableMismatch, "join", s.Depth(), "top has %d variables, bottom %d", s.nvar, bottom.nvar)
	}
	if err := s.checkGlue(bottom); err != nil {
		return err
	}
	levels := make([]*Level, 0, s.Depth()+len(bottom.Levels))
	levels = append(levels, s.Levels[:s.Depth()]...)
	for d, l := range bottom.Levels {
		nodes := make([]Node, len(l.Nodes))
		for i, n := range l.Nodes {
			id := SinkID
			if d < bottom.Depth() {
				id = s.newID()
			}
			nodes[i] = Node{ID: id, Edges: n.Edges}
		}
		levels = append(levels, &Level{LHS: bottom.LHSAt(d), Nodes: nodes})
	}
	s.Levels = levels
	return nil
}

// checkGlue verifies that s's bare sink can take bottom's single source, and
// that bottom only references variables of the shared space.
func (s *Shard) checkGlue(bottom *Shard) error {
	if sink := s.Levels[s.Depth()]; !gf2.IsZero(sink.LHS) || sink.Width() != 1 {
		return newError(KindVariableMismatch, "join", s.Depth(), "top sink is not a bare sink")
	}
	if bottom.Width(0) != 1 {
		return newError(KindVariableMismatch, "join", s.Depth(), "bottom source holds %d nodes", bottom.Width(0))
	}
	for d, l := range bottom.Levels {
		if i, ok := l.LHS.NextSet(uint(s.nvar)); ok {
			return newError(KindVariableMismatch, "join", s.Depth()+d, "bottom LHS references variable %d of %d", i, s.nvar)
		}
	}
	return nil
}

// DeleteMarked removes, atomically, every marked node: marks[d][i] marks
// node i at depth d. Parent edges into deleted nodes become absent and the
// shard is re-reduced. The source and the sink are never deleted; a request
// that would empty a level is rejected before anything changes.
func (s *Shard) DeleteMarked(marks map[int][]bool) error {
	deepest := -1
	for d, m := range marks {
		if d < 0 || d > s.Depth() {
			return newError(KindOutOfRange, "delete-marked", d, "shard depth is %d", s.Depth())
		}
		if len(m) != s.Width(d) {
			return newError(KindOutOfRange, "delete-marked", d, "%d marks for %d nodes", len(m), s.Width(d))
		}
		if d == 0 || d == s.Depth() {
			continue
		}
		kept := 0
		for _, marked := range m {
			if !marked {
				kept++
			}
		}
		if kept == 0 {
			return newError(KindEmptyShard, "delete-marked", d, "all %d nodes marked", len(m))
		}
		if d > deepest {
			deepest = d
		}
	}

	backup := s.Clone()
	for d, m := range marks {
		if d == 0 || d == s.Depth() {
			continue
		}
		keep := make([]bool, len(m))
		for i, marked := range m {
			keep[i] = !marked
		}
		s.compact(d, keep)
	}
	if deepest < 0 {
		return nil
	}
	if err := s.Reduce(deepest); err != nil {
		*s = *backup
		return err
	}
	return nil
}

// LHSAt returns a copy of the left-hand side at depth d.
func (s *Shard) LHSAt(d int) *bitset.BitSet {
	return s.Levels[d].LHS.Clone()
}

// Package shard implements the layered decision diagram ("shard") that encodes
// one CRHS equation, and the system of shards sharing a variable space.
//
// A shard is an ordered list of levels from a single source (depth 0) to a
// single sink (the last depth). Every level above the sink carries a left-hand
// side, a GF(2) linear combination of the system's variables; the edge taken
// out of a node at depth d is the value of that combination. Edges point to
// node indices on the next level; None marks an absent edge.
package shard

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
)

// None marks an absent edge.
const None int32 = -1

// SinkID is the identifier of the sink node of every shard.
const SinkID = 0

// Node is a decision node with a 0-edge and a 1-edge.
type Node struct {
	ID    int
	Edges [2]int32
}

// IsDeadEnd reports whether the node has no outgoing edge.
func (n Node) IsDeadEnd() bool {
	return n.Edges[0] == None && n.Edges[1] == None
}

// Level is the set of nodes at one depth together with its left-hand side.
type Level struct {
	LHS   *bitset.BitSet
	Nodes []Node
}

// Width is the number of nodes on the level.
func (l *Level) Width() int {
	return len(l.Nodes)
}

// Shard is a reduced, layered DAG. Levels[Depth()] is the sink level.
type Shard struct {
	nvar   int
	Levels []*Level
	nextID int
}

// New returns the trivial shard whose source is its sink.
func New(nvar int) *Shard {
	return &Shard{
		nvar:   nvar,
		Levels: []*Level{sinkLevel(nvar)},
		nextID: SinkID + 1,
	}
}

func sinkLevel(nvar int) *Level {
	return &Level{
		LHS:   gf2.NewVec(nvar),
		Nodes: []Node{{ID: SinkID, Edges: [2]int32{None, None}}},
	}
}

// NewFree returns a shard with one level per LHS in which every assignment is
// allowed: each level holds one node whose both edges point to the next node.
func NewFree(nvar int, lhs []*bitset.BitSet) *Shard {
	s := New(nvar)
	levels := make([]*Level, 0, len(lhs)+1)
	for _, l := range lhs {
		levels = append(levels, &Level{
			LHS:   l.Clone(),
			Nodes: []Node{{ID: s.newID(), Edges: [2]int32{0, 0}}},
		})
	}
	s.Levels = append(levels, s.Levels[0])
	return s
}

// FromTable builds a shard from an explicit edge table: table[d][i] holds the
// (e0, e1) child indices of node i at depth d, pointing into depth d+1. The
// last table row must point at index 0, the sink. The result is reduced.
func FromTable(nvar int, lhs []*bitset.BitSet, table [][][2]int32) (*Shard, error) {
	if len(lhs) != len(table) {
		return nil, newError(KindOutOfRange, "from-table", 0, "%d lhs for %d levels", len(lhs), len(table))
	}
	s := New(nvar)
	levels := make([]*Level, 0, len(table)+1)
	for d, row := range table {
		next := 1
		if d+1 < len(table) {
			next = len(table[d+1])
		}
		if d == 0 && len(row) != 1 {
			return nil, newError(KindOutOfRange, "from-table", 0, "source level must hold one node, got %d", len(row))
		}
		lvl := &Level{LHS: lhs[d].Clone(), Nodes: make([]Node, len(row))}
		for i, e := range row {
			for _, c := range e {
				if c != None && (c < 0 || int(c) >= next) {
					return nil, newError(KindOutOfRange, "from-table", d, "edge %d of node %d points outside next level", c, i)
				}
			}
			lvl.Nodes[i] = Node{ID: s.newID(), Edges: e}
		}
		levels = append(levels, lvl)
	}
	s.Levels = append(levels, s.Levels[0])
	if err := s.Reduce(s.Depth() - 1); err != nil {
		return nil, err
	}
	return s, nil
}

// NVar is the size of the variable space.
func (s *Shard) NVar() int {
	return s.nvar
}

// Depth is the depth of the sink, i.e. the number of LHS levels.
func (s *Shard) Depth() int {
	return len(s.Levels) - 1
}

// Size is the total number of nodes across all levels.
func (s *Shard) Size() int {
	total := 0
	for _, l := range s.Levels {
		total += len(l.Nodes)
	}
	return total
}

// Width returns the number of nodes at depth d.
func (s *Shard) Width(d int) int {
	return len(s.Levels[d].Nodes)
}

// Child returns the index at depth d+1 reached from node i at depth d via bit b.
func (s *Shard) Child(d, i, b int) int32 {
	return s.Levels[d].Nodes[i].Edges[b]
}

// LHSMatrix returns the left-hand sides of all levels above the sink.
func (s *Shard) LHSMatrix() []*bitset.BitSet {
	rows := make([]*bitset.BitSet, s.Depth())
	for d := range rows {
		rows[d] = s.Levels[d].LHS
	}
	return rows
}

// IndexOf returns the index of the node with the given ID at depth d, or -1.
func (s *Shard) IndexOf(d, id int) int {
	for i, n := range s.Levels[d].Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s *Shard) Clone() *Shard {
	c := &Shard{nvar: s.nvar, nextID: s.nextID, Levels: make([]*Level, len(s.Levels))}
	for d, l := range s.Levels {
		nodes := make([]Node, len(l.Nodes))
		copy(nodes, l.Nodes)
		c.Levels[d] = &Level{LHS: l.LHS.Clone(), Nodes: nodes}
	}
	return c
}

func (s *Shard) newID() int {
	id := s.nextID
	s.nextID++
	return id
}

// System is a set of shards sharing one variable space.
type System struct {
	nvar   int
	Shards []*Shard
}

// NewSystem returns an empty system over nvar variables.
func NewSystem(nvar int) *System {
	return &System{nvar: nvar}
}

// NVar is the size of the shared variable space.
func (sys *System) NVar() int {
	return sys.nvar
}

// Add appends a shard; it must share the system's variable space.
func (sys *System) Add(s *Shard) error {
	if s.NVar() != sys.nvar {
		return newError(KindVariableMismatch, "system-add", 0, "shard has %d variables, system %d", s.NVar(), sys.nvar)
	}
	sys.Shards = append(sys.Shards, s)
	return nil
}

// Each calls fn for every shard in order until fn returns false.
func (sys *System) Each(fn func(i int, s *Shard) bool) {
	for i, s := range sys.Shards {
		if !fn(i, s) {
			return
		}
	}
}

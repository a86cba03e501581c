package hull

import (
	"context"

	"github.com/mahdiidarabi/crhs-hull/internal/finder"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// EnumMode selects which inner paths the enumerator produces.
type EnumMode int

const (
	// Unbounded produces every inner path.
	Unbounded EnumMode = iota
	// Targeted produces the paths of one weight ending at one β node.
	Targeted
	// SemiTargeted produces the paths of one weight ending anywhere.
	SemiTargeted
)

func (m EnumMode) String() string {
	switch m {
	case Targeted:
		return "targeted"
	case SemiTargeted:
		return "semi"
	default:
		return "unbounded"
	}
}

// EnumStatus tells why an enumeration ended.
type EnumStatus int

const (
	// Exhausted means every matching path was produced.
	Exhausted EnumStatus = iota
	// LimitReached means the enumerator stopped at its path limit.
	LimitReached
)

func (s EnumStatus) String() string {
	if s == LimitReached {
		return "limit-reached"
	}
	return "exhausted"
}

// Target restricts an enumeration. Weight and Beta are ignored by Unbounded;
// Beta is the β node ID for Targeted.
type Target struct {
	Mode   EnumMode
	Weight int
	Beta   int
}

// Enumerator walks the inner paths of a shard over an area, one cohort at a
// time, pruning prefixes that cannot reach the target.
type Enumerator struct {
	s      *shard.Shard
	area   weight.Area
	arena  *weight.Arena[weight.EndNode]
	target Target
	limit  int

	sent int
	out  chan<- Path
}

// NewEnumerator prepares an enumeration of at most limit paths. arena must
// hold the end-node distributions of area; it is only read.
func NewEnumerator(s *shard.Shard, area weight.Area, arena *weight.Arena[weight.EndNode], target Target, limit int) *Enumerator {
	return &Enumerator{s: s, area: area, arena: arena, target: target, limit: limit}
}

// Run sends every matching path to out, then closes it. It stops at the
// limit or when ctx is cancelled.
func (e *Enumerator) Run(ctx context.Context, out chan<- Path) (EnumStatus, error) {
	defer close(out)
	e.out = out
	e.sent = 0
	for i, n := range e.s.Levels[e.area.Start].Nodes {
		if !e.feasible(e.area.Start, n.ID, 0) {
			continue
		}
		done, err := e.walk(ctx, e.area.Start, int32(i), 0, nil)
		if err != nil {
			return Exhausted, err
		}
		if done {
			return LimitReached, nil
		}
	}
	return Exhausted, nil
}

// walk extends prefix from node idx at Centurion c. done reports that the
// limit was hit.
func (e *Enumerator) walk(ctx context.Context, c int, idx int32, acc int, prefix Path) (bool, error) {
	if c == e.area.End {
		if e.sent >= e.limit {
			return true, nil
		}
		select {
		case e.out <- prefix:
		case <-ctx.Done():
			return false, ctx.Err()
		}
		e.sent++
		return false, nil
	}
	next := c + e.area.Step
	lower := e.s.Levels[next].Nodes
	for _, r := range finder.Paths(e.s, c, idx, e.area.Step) {
		w := acc + Path(r.Bits).Weight(e.area.Step)
		if !e.feasible(next, lower[r.Index].ID, w) {
			continue
		}
		done, err := e.walk(ctx, next, r.Index, w, prefix.Append(r.Bits...))
		if done || err != nil {
			return done, err
		}
	}
	return false, nil
}

// feasible reports whether a prefix of weight w ending at node id on depth
// can still be completed into a target path.
func (e *Enumerator) feasible(depth, id, w int) bool {
	if e.target.Mode == Unbounded {
		return true
	}
	rest := e.target.Weight - w
	if rest < 0 {
		return false
	}
	d, ok := e.arena.Get(depth, id)
	if !ok {
		return false
	}
	if e.target.Mode == Targeted {
		return d.PathsForWeightInID(e.target.Beta, rest) > 0
	}
	return d.PathsForWeight(rest) > 0
}

package weight

import (
	"fmt"

	goerrors "github.com/go-errors/errors"

	"github.com/mahdiidarabi/crhs-hull/internal/finder"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
)

// pingPong holds the two level buffers the engines alternate between. Only
// two consecutive levels are resident at any time.
type pingPong[D Distribution[D]] struct {
	front, back WDLevel[D]
}

func newPingPong[D Distribution[D]]() *pingPong[D] {
	return &pingPong[D]{front: make(WDLevel[D]), back: make(WDLevel[D])}
}

// flip makes the freshly written back buffer the front and clears the other.
func (p *pingPong[D]) flip() {
	p.front, p.back = p.back, p.front
	clear(p.back)
}

// BottomUp computes, for every node at depth, the distribution of weights of
// its paths down to area.End.
//
// Args:
//   - s: a reduced shard whose cohorts in area hold exactly area.Step levels
//   - area: the active area
//   - depth: target depth, a Centurion or a member of any cohort but the last
//   - trivial: distribution of the empty path, keyed by the end node at area.End
//
// Returns:
//   - the level keyed by node ID
//   - ErrDepthBelowBase for depths in (area.End-area.Step, area.End]
func BottomUp[D Distribution[D]](s *shard.Shard, area Area, depth int, trivial Trivial[D]) (WDLevel[D], error) {
	if err := area.Validate(s.Depth()); err != nil {
		return nil, err
	}
	if depth > area.End-area.Step && depth <= area.End {
		return nil, goerrors.Wrap(fmt.Errorf("%w: depth %d, area %s", ErrDepthBelowBase, depth, area), 0)
	}
	if !area.Contains(depth) {
		return nil, goerrors.Wrap(fmt.Errorf("%w: depth %d outside %s", ErrInvalidArea, depth, area), 0)
	}

	pp := upTo(s, area, nextCenturion(area, depth), trivial)
	if area.IsCenturion(depth) {
		return pp.front, nil
	}
	fillUp(s, depth, nextCenturion(area, depth)-depth, pp.front, pp.back)
	pp.flip()
	return pp.front, nil
}

// nextCenturion is the smallest Centurion (or area.End) at or below d.
func nextCenturion(area Area, d int) int {
	if area.IsCenturion(d) || d == area.End {
		return d
	}
	return area.CenturionOf(d) + area.Step
}

// upTo fills Centurions from area.End upwards until target, a Centurion or
// area.End, is in front.
func upTo[D Distribution[D]](s *shard.Shard, area Area, target int, trivial Trivial[D]) *pingPong[D] {
	pp := newPingPong[D]()
	for _, n := range s.Levels[area.End].Nodes {
		pp.front[n.ID] = trivial(n.ID)
	}
	for c := area.End - area.Step; c >= target; c -= area.Step {
		fillUp(s, c, area.Step, pp.front, pp.back)
		pp.flip()
	}
	return pp
}

// fillUp writes into out the distribution of every node at depth built from
// the distributions below, delta levels further down.
func fillUp[D Distribution[D]](s *shard.Shard, depth, delta int, below, out WDLevel[D]) {
	lower := s.Levels[depth+delta].Nodes
	for i, n := range s.Levels[depth].Nodes {
		var acc D
		for _, r := range finder.Boolean(s, depth, int32(i), delta) {
			d := below[lower[r.Index].ID]
			if r.OneEdge {
				d = d.Incremented()
			}
			acc = acc.Plus(d)
		}
		out[n.ID] = acc
	}
}

// TopDown computes, for every node at depth, the distribution of weights of
// the paths reaching it from area.Start. Nodes at area.Start carry
// trivial(ID), so end-node distributions are keyed by the start node.
// depth may be any level in [area.Start, area.End].
func TopDown[D Distribution[D]](s *shard.Shard, area Area, depth int, trivial Trivial[D]) (WDLevel[D], error) {
	if err := area.Validate(s.Depth()); err != nil {
		return nil, err
	}
	if depth < area.Start || depth > area.End {
		return nil, goerrors.Wrap(fmt.Errorf("%w: depth %d outside %s", ErrInvalidArea, depth, area), 0)
	}
	pp := downTo(s, area, depth, trivial)
	return pp.front, nil
}

func downTo[D Distribution[D]](s *shard.Shard, area Area, depth int, trivial Trivial[D]) *pingPong[D] {
	pp := newPingPong[D]()
	for _, n := range s.Levels[area.Start].Nodes {
		pp.front[n.ID] = trivial(n.ID)
	}
	base := area.CenturionOf(depth)
	for c := area.Start; c < base; c += area.Step {
		fillDown(s, c, area.Step, pp.front, pp.back, nil)
		pp.flip()
	}
	if depth > base {
		fillDown(s, base, depth-base, pp.front, pp.back, nil)
		pp.flip()
	}
	return pp
}

// fillDown pushes every distribution at depth delta levels downwards into
// out. When ones is non-nil, summands that took a 1-edge are collected there
// without increment instead.
func fillDown[D Distribution[D]](s *shard.Shard, depth, delta int, above, out, ones WDLevel[D]) {
	lower := s.Levels[depth+delta].Nodes
	for i, n := range s.Levels[depth].Nodes {
		d := above[n.ID]
		inc := d.Incremented()
		for _, r := range finder.Boolean(s, depth, int32(i), delta) {
			id := lower[r.Index].ID
			switch {
			case !r.OneEdge:
				out[id] = out[id].Plus(d)
			case ones != nil:
				ones[id] = ones[id].Plus(d)
			default:
				out[id] = out[id].Plus(inc)
			}
		}
	}
}

// Through computes, for every node at depth, the distribution of weights of
// the full area paths that pass through it: paths from area.Start to the
// node combined with paths from the node to area.End. A cohort split by
// depth counts once if either half takes a 1-edge.
func Through[D Convolvable[D]](s *shard.Shard, area Area, depth int, trivial Trivial[D]) (WDLevel[D], error) {
	if err := area.Validate(s.Depth()); err != nil {
		return nil, err
	}
	if !area.Contains(depth) {
		return nil, goerrors.Wrap(fmt.Errorf("%w: depth %d outside %s", ErrInvalidArea, depth, area), 0)
	}
	c := area.CenturionOf(depth)
	next := c + area.Step

	// halves of the split cohort, 0 = no 1-edge taken in that half
	down := downTo(s, area, c, trivial)
	down0, down1 := make(WDLevel[D]), make(WDLevel[D])
	if depth == c {
		down0 = down.front
	} else {
		fillDown(s, c, depth-c, down.front, down0, down1)
	}

	up := upTo(s, area, next, trivial)
	up0, up1 := make(WDLevel[D]), make(WDLevel[D])
	lower := s.Levels[next].Nodes
	for i, n := range s.Levels[depth].Nodes {
		var zero, one D
		for _, r := range finder.Boolean(s, depth, int32(i), next-depth) {
			d := up.front[lower[r.Index].ID]
			if r.OneEdge {
				one = one.Plus(d)
			} else {
				zero = zero.Plus(d)
			}
		}
		up0[n.ID], up1[n.ID] = zero, one
	}

	out := make(WDLevel[D], len(s.Levels[depth].Nodes))
	for _, n := range s.Levels[depth].Nodes {
		d0, d1 := down0[n.ID], down1[n.ID]
		u0, u1 := up0[n.ID], up1[n.ID]
		active := d0.Convolve(u1).Plus(d1.Convolve(u0)).Plus(d1.Convolve(u1))
		out[n.ID] = d0.Convolve(u0).Plus(active.Incremented())
	}
	return out, nil
}

// BuildArena stores the bottom-up distributions of every Centurion of area
// and of area.End itself, then freezes the arena.
func BuildArena[D Distribution[D]](s *shard.Shard, area Area, trivial Trivial[D]) (*Arena[D], error) {
	if err := area.Validate(s.Depth()); err != nil {
		return nil, err
	}
	arena := NewArena[D]()
	below := make(WDLevel[D])
	for _, n := range s.Levels[area.End].Nodes {
		below[n.ID] = trivial(n.ID)
	}
	arena.Put(area.End, below)
	for c := area.End - area.Step; c >= area.Start; c -= area.Step {
		lvl := make(WDLevel[D], len(s.Levels[c].Nodes))
		fillUp(s, c, area.Step, below, lvl)
		arena.Put(c, lvl)
		below = lvl
	}
	arena.Freeze()
	return arena, nil
}

package solver

import (
	"fmt"
	"sort"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// candidate is a node of the widest level with its pruning score.
type candidate struct {
	index int
	lew   int
	paths uint64
}

// prune deletes the heaviest nodes of the widest active level until Master
// is back under the soft limit.
func (s *Solver) prune() error {
	for it := 0; s.master.Size() > s.cfg.SoftLimit; it++ {
		area, ok := s.area()
		if !ok {
			s.log.WithField("size", s.master.Size()).Warn("no active area to prune")
			return nil
		}
		rec, err := PruneOnce(s.master, area, s.cfg.PruneVariant)
		if err != nil {
			return err
		}
		if rec == nil {
			s.log.WithFields(logrus.Fields{
				"size": s.master.Size(), "area": area.String(),
			}).Warn("active area down to width 1, stop pruning")
			return nil
		}
		rec.Round, rec.Pos, rec.Iteration = s.round, s.pos, it
		s.lib.Log(*rec)
		s.metrics.Pruned(rec.Deleted)
		s.metrics.MasterSize(s.master.Size())

		if err := s.absorbAll(); err != nil {
			return err
		}
	}
	return nil
}

// PruneOnce runs one pruning iteration on master within area. It returns nil
// without touching master when every level of area has width 1.
func PruneOnce(master *shard.Shard, area weight.Area, variant string) (*librarian.PruneRecord, error) {
	depth, width, second := widestLevel(master, area)
	if width <= 1 {
		return nil, nil
	}

	cands, err := score(master, area, depth, variant)
	if err != nil {
		return nil, err
	}
	threshold := lo.Reduce(cands, func(agg int, c candidate, _ int) int {
		if c.lew > agg {
			return c.lew
		}
		return agg
	}, 0)
	cands = lo.Filter(cands, func(c candidate, _ int) bool { return c.lew >= threshold })
	if variant == config.PruneV3 {
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].paths < cands[j].paths })
	}
	if limit := deletionCap(width, second); len(cands) > limit {
		cands = cands[:limit]
	}

	marks := make([]bool, width)
	for _, c := range cands {
		marks[c.index] = true
	}
	before := master.Size()
	if err := master.DeleteMarked(map[int][]bool{depth: marks}); err != nil {
		return nil, err
	}
	if master.Size() >= before {
		return nil, goerrors.Wrap(fmt.Errorf("%w: pruning depth %d left size at %d", ErrInvariant, depth, master.Size()), 0)
	}
	return &librarian.PruneRecord{
		Depth:       depth,
		Width:       width,
		SecondWidth: second,
		Threshold:   threshold,
		Candidates:  len(cands),
		Deleted:     before - master.Size(),
		SizeBefore:  before,
		SizeAfter:   master.Size(),
	}, nil
}

// widestLevel returns the widest depth of area, the deepest on ties, its
// width and the largest width of the other depths.
func widestLevel(master *shard.Shard, area weight.Area) (depth, width, second int) {
	depth = -1
	for d := area.Start; d < area.End; d++ {
		w := master.Width(d)
		if w >= width {
			if depth >= 0 {
				second = width
			}
			depth, width = d, w
		} else if w > second {
			second = w
		}
	}
	return depth, width, second
}

// deletionCap bounds the nodes removed in one iteration: the gap to the
// second widest level plus a tenth of it, at least one, never the whole level.
func deletionCap(width, second int) int {
	limit := width - second + (second+9)/10
	if limit < 1 {
		limit = 1
	}
	if limit > width-1 {
		limit = width - 1
	}
	return limit
}

// score rates every node at depth by the lightest area path through it.
func score(master *shard.Shard, area weight.Area, depth int, variant string) ([]candidate, error) {
	nodes := master.Levels[depth].Nodes
	out := make([]candidate, len(nodes))
	switch variant {
	case config.PruneV2:
		lvl, err := weight.Through(master, area, depth, weight.TrivialPresence)
		if err != nil {
			return nil, err
		}
		for i, n := range nodes {
			lew, _ := lvl[n.ID].LEW()
			out[i] = candidate{index: i, lew: lew}
		}
	default:
		lvl, err := weight.Through(master, area, depth, weight.TrivialCounted)
		if err != nil {
			return nil, err
		}
		for i, n := range nodes {
			lew, _ := lvl[n.ID].LEW()
			total, _ := lvl[n.ID].TotalPaths()
			out[i] = candidate{index: i, lew: lew, paths: total}
		}
	}
	return out, nil
}

package solver

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"

	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
)

// nextDependency picks the dependency with the smallest span; ties go to the
// one found first.
func nextDependency(deps []*bitset.BitSet) []int {
	best := lo.Reduce(deps, func(agg int, dep *bitset.BitSet, i int) int {
		if agg < 0 || gf2.Span(dep) < gf2.Span(deps[agg]) {
			return i
		}
		return agg
	}, -1)
	if best < 0 {
		return nil
	}
	return gf2.Indices(deps[best])
}

// absorbAll removes linearly dependent levels until Master's LHS are
// independent.
func (s *Solver) absorbAll() error {
	for {
		involved := nextDependency(gf2.Dependencies(s.master.LHSMatrix()))
		if involved == nil {
			return nil
		}
		if err := s.resolve(involved); err != nil {
			return err
		}
		s.absorbed++
		s.metrics.Absorbed(1)
		if err := s.checkHardLimit(); err != nil {
			return err
		}
	}
}

// resolve folds the levels at the given depths, whose LHS XOR to zero, into
// one unprotected base level and absorbs it. depths is ascending.
func (s *Solver) resolve(depths []int) error {
	base, others, err := s.chooseBase(depths)
	if err != nil {
		return err
	}
	// nearest first; base sits at one end of the involved range
	if len(others) > 0 && base > others[0] {
		others = lo.Reverse(others)
	}
	for j := range others {
		base, err = s.moveAbove(base, j, others)
		if err != nil {
			return err
		}
		if err := s.master.Add(base, others[j]); err != nil {
			return err
		}
	}
	if !gf2.IsZero(s.master.Levels[base].LHS) {
		return goerrors.Wrap(fmt.Errorf("%w: base level %d did not cancel to zero", ErrInvariant, base), 0)
	}
	if err := s.master.Absorb(base, false); err != nil {
		return err
	}
	s.tags.remove(base)
	return nil
}

// chooseBase returns the depth of the level to absorb and the depths of the
// other involved levels. The base is the bottom-most involved level if
// unprotected, else the top-most, else the first unprotected one after
// moving it to the nearer end of the involved range.
func (s *Solver) chooseBase(depths []int) (int, []int, error) {
	top, bottom := depths[0], depths[len(depths)-1]
	without := func(base int) []int {
		return lo.Filter(depths, func(d int, _ int) bool { return d != base })
	}
	switch {
	case !s.tags[bottom].Protected():
		return bottom, without(bottom), nil
	case !s.tags[top].Protected():
		return top, without(top), nil
	}
	d, ok := lo.Find(depths, func(d int) bool { return !s.tags[d].Protected() })
	if !ok {
		return 0, nil, goerrors.Wrap(fmt.Errorf("%w: dependency over protected levels %v", ErrInvariant, depths), 0)
	}
	others := without(d)
	target := top
	if bottom-d < d-top {
		target = bottom
	}
	for d < target {
		if err := s.swap(d); err != nil {
			return 0, nil, err
		}
		shift(others, d+1, d)
		d++
	}
	for d > target {
		if err := s.swap(d - 1); err != nil {
			return 0, nil, err
		}
		shift(others, d-1, d)
		d--
	}
	return d, others, nil
}

// moveAbove swaps the base level until it sits directly above others[j],
// keeping the tracked depths in others current.
func (s *Solver) moveAbove(base, j int, others []int) (int, error) {
	for base != others[j]-1 {
		if base < others[j]-1 {
			if err := s.swap(base); err != nil {
				return 0, err
			}
			shift(others, base+1, base)
			base++
		} else {
			if err := s.swap(base - 1); err != nil {
				return 0, err
			}
			shift(others, base-1, base)
			base--
		}
		if err := s.checkHardLimit(); err != nil {
			return 0, err
		}
	}
	return base, nil
}

// shift records that the level tracked at depth from moved to depth to.
func shift(tracked []int, from, to int) {
	for i, d := range tracked {
		if d == from {
			tracked[i] = to
			return
		}
	}
}

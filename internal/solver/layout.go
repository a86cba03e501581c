package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

var (
	// ErrInvariant is returned when Master breaks a solver invariant, such as
	// a dependency made only of protected levels or a pruning pass that did
	// not shrink Master.
	ErrInvariant = errors.New("solver invariant violated")
	// ErrHardLimit is returned when Master outgrows the hard size limit.
	ErrHardLimit = errors.New("master exceeded the hard size limit")
)

// Role says what a Master level stands for.
type Role int

const (
	// RoleFree is an unconstrained first-round input bit.
	RoleFree Role = iota
	// RoleInput is an S-box input bit. Input levels are protected.
	RoleInput
	// RoleOutput is an S-box output bit still waiting for its consumer.
	RoleOutput
)

// Tag identifies the bit a Master level carries.
type Tag struct {
	Role  Role
	Round int
	Pos   int
	Bit   int
}

func (t Tag) group() string {
	switch t.Role {
	case RoleFree:
		return "x"
	case RoleInput:
		return fmt.Sprintf("in(%d,%d)", t.Round, t.Pos)
	default:
		return fmt.Sprintf("out(%d,%d)", t.Round, t.Pos)
	}
}

// Protected reports whether the level may not be absorbed.
func (t Tag) Protected() bool {
	return t.Role == RoleInput
}

// tags tracks the Tag of every Master depth. Every structural change to
// Master goes through the solver so the two stay in step.
type tags []Tag

func (ts tags) swap(d int) {
	ts[d], ts[d+1] = ts[d+1], ts[d]
}

func (ts *tags) remove(d int) {
	*ts = append((*ts)[:d], (*ts)[d+1:]...)
}

// inputs is the number of leading input levels.
func (ts tags) inputs() int {
	n := 0
	for n < len(ts) && ts[n].Role == RoleInput {
		n++
	}
	return n
}

// depthOf returns the depth of the level tagged t, or -1.
func (ts tags) depthOf(t Tag) int {
	for d, x := range ts {
		if x == t {
			return d
		}
	}
	return -1
}

// layout renders the tags as runs of S-box groups, top to bottom.
func (ts tags) layout() string {
	var parts []string
	prev, run := "", 0
	flush := func() {
		if run > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", prev, run))
		}
	}
	for _, t := range ts {
		g := t.group()
		if g != prev {
			flush()
			prev, run = g, 0
		}
		run++
	}
	flush()
	return strings.Join(parts, " ")
}

// activeArea is the part of Master that pruning may touch: the inputs of
// every round after the first once there are any, else the first round's
// inputs. ok is false when there are no input levels yet.
func activeArea(block, step, inputs int) (weight.Area, bool) {
	switch {
	case inputs > block:
		return weight.Area{Start: block, End: inputs, Step: step}, true
	case inputs > 0:
		return weight.Area{Start: 0, End: inputs, Step: step}, true
	default:
		return weight.Area{}, false
	}
}

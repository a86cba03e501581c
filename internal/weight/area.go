package weight

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

var (
	// ErrInvalidArea is returned when an area is not aligned to its cohorts.
	ErrInvalidArea = errors.New("invalid active area")
	// ErrDepthBelowBase is returned by BottomUp for depths inside the last
	// cohort of the area, which the bottom-up recursion does not cover.
	ErrDepthBelowBase = errors.New("depth lies between the base case and the area bottom")
)

// Area is a half-open depth range [Start, End) made of cohorts of Step
// consecutive levels. Start is a Centurion.
type Area struct {
	Start int
	End   int
	Step  int
}

// Validate checks the cohort alignment and that the area fits in a shard of
// the given depth.
func (a Area) Validate(depth int) error {
	switch {
	case a.Step <= 0:
		return goerrors.Wrap(fmt.Errorf("%w: step %d", ErrInvalidArea, a.Step), 1)
	case a.Start < 0 || a.End > depth || a.Start >= a.End:
		return goerrors.Wrap(fmt.Errorf("%w: [%d, %d) in a depth-%d shard", ErrInvalidArea, a.Start, a.End, depth), 1)
	case (a.End-a.Start)%a.Step != 0:
		return goerrors.Wrap(fmt.Errorf("%w: [%d, %d) is not a multiple of step %d", ErrInvalidArea, a.Start, a.End, a.Step), 1)
	}
	return nil
}

// Contains reports whether d lies in [Start, End).
func (a Area) Contains(d int) bool {
	return d >= a.Start && d < a.End
}

// IsCenturion reports whether d is the top level of a cohort of the area.
func (a Area) IsCenturion(d int) bool {
	return a.Contains(d) && (d-a.Start)%a.Step == 0
}

// CenturionOf returns the Centurion of the cohort holding d.
func (a Area) CenturionOf(d int) int {
	return a.Start + (d-a.Start)/a.Step*a.Step
}

// Cohorts is the number of cohorts in the area.
func (a Area) Cohorts() int {
	return (a.End - a.Start) / a.Step
}

// Beta is the β-depth of the area: the first level below it.
func (a Area) Beta() int {
	return a.End
}

// Width is the number of levels in the area.
func (a Area) Width() int {
	return a.End - a.Start
}

func (a Area) String() string {
	return fmt.Sprintf("[%d, %d) step %d", a.Start, a.End, a.Step)
}

package gf2

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
)

// ErrSingular is returned by Inverse for a matrix without full rank.
var ErrSingular = errors.New("gf2: matrix is singular")

type pivotRow struct {
	lead  uint
	vec   *bitset.BitSet
	combo *bitset.BitSet
}

// Dependencies returns a basis of the linear dependencies between rows.
// Each dependency is a vector over row indices whose rows XOR to zero. Rows
// are processed in order, so each dependency names its newest row as its
// highest set bit and dependencies come out in insertion order.
func Dependencies(rows []*bitset.BitSet) []*bitset.BitSet {
	var pivots []pivotRow
	var deps []*bitset.BitSet
	n := len(rows)

	for i, row := range rows {
		vec := row.Clone()
		combo := bitset.New(uint(n)).Set(uint(i))
		for {
			lead, ok := vec.NextSet(0)
			if !ok {
				deps = append(deps, combo)
				break
			}
			p := findPivot(pivots, lead)
			if p < 0 {
				pivots = append(pivots, pivotRow{lead: lead, vec: vec, combo: combo})
				break
			}
			vec.InPlaceSymmetricDifference(pivots[p].vec)
			combo.InPlaceSymmetricDifference(pivots[p].combo)
		}
	}
	return deps
}

func findPivot(pivots []pivotRow, lead uint) int {
	for i := range pivots {
		if pivots[i].lead == lead {
			return i
		}
	}
	return -1
}

// Rank is the GF(2) rank of rows.
func Rank(rows []*bitset.BitSet) int {
	return len(rows) - len(Dependencies(rows))
}

// Inverse inverts the n×n matrix whose row i is rows[i]. The result is
// returned by rows as well: x = Inverse(M)·v solves M·x = v.
func Inverse(rows []*bitset.BitSet, n int) ([]*bitset.BitSet, error) {
	if len(rows) != n {
		return nil, ErrSingular
	}
	work := make([]*bitset.BitSet, n)
	aug := make([]*bitset.BitSet, n)
	for i := range rows {
		work[i] = rows[i].Clone()
		aug[i] = Unit(n, i)
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for r := col; r < n; r++ {
			if work[r].Test(uint(col)) {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return nil, ErrSingular
		}
		work[col], work[pivot] = work[pivot], work[col]
		aug[col], aug[pivot] = aug[pivot], aug[col]
		for r := 0; r < n; r++ {
			if r != col && work[r].Test(uint(col)) {
				work[r].InPlaceSymmetricDifference(work[col])
				aug[r].InPlaceSymmetricDifference(aug[col])
			}
		}
	}
	return aug, nil
}

// MulVec computes M·v where M is given by rows.
func MulVec(rows []*bitset.BitSet, v *bitset.BitSet) *bitset.BitSet {
	out := bitset.New(uint(len(rows)))
	for i, r := range rows {
		if Dot(r, v) {
			out.Set(uint(i))
		}
	}
	return out
}

// Span returns the distance between the lowest and highest set bit of v.
func Span(v *bitset.BitSet) int {
	idx := Indices(v)
	if len(idx) == 0 {
		return 0
	}
	return idx[len(idx)-1] - idx[0]
}

package hull

import (
	"math"
	"math/bits"
	"sort"

	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
)

// Bins counts trails by probability exponent, in units of
// 1/cipher.ProbFactor. Skipped trails hit an impossible S-box transition and
// have no exponent. Counts plus Skipped always equals Total.
type Bins struct {
	Counts     map[int]uint64
	Skipped    uint64
	Total      uint64
	Overflowed bool
}

// NewBins returns empty bins.
func NewBins() Bins {
	return Bins{Counts: make(map[int]uint64)}
}

// Add counts one trail of exponent exp.
func (b *Bins) Add(exp int) {
	b.Counts[exp]++
	b.inc(1)
}

// Skip counts one impossible trail.
func (b *Bins) Skip() {
	b.Skipped++
	b.inc(1)
}

func (b *Bins) inc(n uint64) {
	var carry uint64
	b.Total, carry = bits.Add64(b.Total, n, 0)
	b.Overflowed = b.Overflowed || carry != 0
}

// Merge adds the counts of o.
func (b *Bins) Merge(o Bins) {
	for k, c := range o.Counts {
		b.Counts[k] += c
	}
	b.Skipped += o.Skipped
	b.inc(o.Total)
	b.Overflowed = b.Overflowed || o.Overflowed
}

// Exponents lists the binned exponents, ascending.
func (b Bins) Exponents() []int {
	out := make([]int, 0, len(b.Counts))
	for k := range b.Counts {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Log2P is −log2 of the summed probability of the binned trails:
// k₀/F − log2(Σ count_k · 2^(−(k − k₀)/F)) with k₀ the lowest non-zero
// exponent and F = cipher.ProbFactor. In linear mode every exponent is
// doubled first, squaring the correlations. ok is false without trails.
func (b Bins) Log2P(linear bool) (float64, bool) {
	scale := 1.0
	if linear {
		scale = 2
	}
	keys := b.Exponents()
	k0, found := 0, false
	for _, k := range keys {
		if k > 0 {
			k0, found = k, true
			break
		}
	}
	if !found {
		return 0, false
	}
	sum := 0.0
	for _, k := range keys {
		if k < k0 {
			continue
		}
		sum += float64(b.Counts[k]) * math.Exp2(-scale*float64(k-k0)/cipher.ProbFactor)
	}
	return scale*float64(k0)/cipher.ProbFactor - math.Log2(sum), true
}

package cipher

import (
	"math"
	"math/bits"
)

// ProbFactor scales log2 probabilities to integer exponents.
const ProbFactor = 1000

// BaseTable is the DDT or adjusted LAT of one S-box, indexed by input then
// output value. The (0, 0) entry is the probability-one reference.
type BaseTable struct {
	mode    Mode
	rows    int
	cols    int
	entries []int
	exps    map[int]int
}

// NewDDT builds the difference distribution table of sbox.
func NewDDT(sbox []int, inBits, outBits int) *BaseTable {
	t := newTable(Differential, inBits, outBits)
	for x := 0; x < t.rows; x++ {
		for a := 0; a < t.rows; a++ {
			t.entries[a*t.cols+(sbox[x]^sbox[x^a])]++
		}
	}
	t.precompute()
	return t
}

// NewLAT builds the adjusted linear approximation table |#{a·x = b·S(x)} − 2^(n−1)|.
func NewLAT(sbox []int, inBits, outBits int) *BaseTable {
	t := newTable(Linear, inBits, outBits)
	half := t.rows / 2
	for a := 0; a < t.rows; a++ {
		for b := 0; b < t.cols; b++ {
			agree := 0
			for x := 0; x < t.rows; x++ {
				if bits.OnesCount(uint(a&x))&1 == bits.OnesCount(uint(b&sbox[x]))&1 {
					agree++
				}
			}
			e := agree - half
			if e < 0 {
				e = -e
			}
			t.entries[a*t.cols+b] = e
		}
	}
	t.precompute()
	return t
}

func newTable(mode Mode, inBits, outBits int) *BaseTable {
	rows, cols := 1<<inBits, 1<<outBits
	return &BaseTable{mode: mode, rows: rows, cols: cols, entries: make([]int, rows*cols)}
}

func (t *BaseTable) precompute() {
	t.exps = make(map[int]int)
	ref := float64(t.entries[0])
	for _, e := range t.entries {
		if e == 0 {
			continue
		}
		if _, ok := t.exps[e]; !ok {
			t.exps[e] = int(math.Round(-math.Log2(float64(e)/ref) * ProbFactor))
		}
	}
}

// Mode is the analysis mode the table was built for.
func (t *BaseTable) Mode() Mode { return t.mode }

// Rows is the number of input values.
func (t *BaseTable) Rows() int { return t.rows }

// Cols is the number of output values.
func (t *BaseTable) Cols() int { return t.cols }

// Entry returns BT[row][col].
func (t *BaseTable) Entry(row, col int) int {
	return t.entries[row*t.cols+col]
}

// ProbExponentForEntry returns round(−log2(entry / BT[0][0]) · ProbFactor).
// ok is false for a zero entry.
func (t *BaseTable) ProbExponentForEntry(entry int) (int, bool) {
	e, ok := t.exps[entry]
	return e, ok
}

// BestInput returns the input row with the highest entry for output col.
func (t *BaseTable) BestInput(col int) int {
	best := 0
	for r := 1; r < t.rows; r++ {
		if t.Entry(r, col) > t.Entry(best, col) {
			best = r
		}
	}
	return best
}

// BestOutput returns the output column with the highest entry for input row.
func (t *BaseTable) BestOutput(row int) int {
	best := 0
	for c := 1; c < t.cols; c++ {
		if t.Entry(row, c) > t.Entry(row, best) {
			best = c
		}
	}
	return best
}

// K is the entry-weighted average −log2 probability of an active S-box,
// taken over the non-zero entries outside (0, 0). In linear mode it is
// doubled, matching the piling-up of squared correlations.
func (t *BaseTable) K() float64 {
	var sum, weight float64
	for i, e := range t.entries {
		if i == 0 || e == 0 {
			continue
		}
		exp, _ := t.ProbExponentForEntry(e)
		sum += float64(e) * float64(exp) / ProbFactor
		weight += float64(e)
	}
	if weight == 0 {
		return 0
	}
	k := sum / weight
	if t.mode == Linear {
		k *= 2
	}
	return k
}

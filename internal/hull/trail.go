package hull

import (
	"github.com/bits-and-blooms/bitset"
	goerrors "github.com/go-errors/errors"

	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
)

// Trail is a full variable assignment with its probability exponent.
type Trail struct {
	X        *bitset.BitSet
	Exponent int
	Alpha    Path
	Inner    Path
	Beta     Path
}

// expander turns compressed trails, one label per Master level, into
// variable assignments and prices them with the base tables.
type expander struct {
	model  *solver.Model
	inv    []*bitset.BitSet
	tables [][]*cipher.BaseTable
}

func newExpander(model *solver.Model, master *shard.Shard) (*expander, error) {
	inv, err := gf2.Inverse(master.LHSMatrix(), model.NVar)
	if err != nil {
		return nil, goerrors.WrapPrefix(err, "invert master LHS", 0)
	}
	e := &expander{model: model, inv: inv, tables: make([][]*cipher.BaseTable, model.Rounds)}
	for r := range e.tables {
		e.tables[r] = make([]*cipher.BaseTable, model.Sboxes())
		for p := range e.tables[r] {
			e.tables[r][p] = model.Cipher.BaseTable(r, p, model.Mode)
		}
	}
	return e, nil
}

// assign solves LHS·x = labels for the trail alpha ++ inner ++ beta.
func (e *expander) assign(alpha, inner, beta Path) *bitset.BitSet {
	return gf2.MulVec(e.inv, Vector(alpha, inner, beta))
}

// exponent sums the base-table exponents of every S-box of x. ok is false
// when some S-box transition is impossible.
func (e *expander) exponent(x *bitset.BitSet) (int, bool) {
	total := 0
	for r := range e.tables {
		for p, bt := range e.tables[r] {
			in, out := value(e.model.In[r][p], x), value(e.model.Out[r][p], x)
			exp, ok := bt.ProbExponentForEntry(bt.Entry(in, out))
			if !ok {
				return 0, false
			}
			total += exp
		}
	}
	return total, true
}

// construct replaces the first-round inputs and the last-round outputs of x
// by the most likely values for the S-box transitions the inner part fixes.
func (e *expander) construct(x *bitset.BitSet) {
	last := e.model.Rounds - 1
	for p := range e.tables[0] {
		in := e.tables[0][p].BestInput(value(e.model.Out[0][p], x))
		set(e.model.In[0][p], x, in)
	}
	for p := range e.tables[last] {
		out := e.tables[last][p].BestOutput(value(e.model.In[last][p], x))
		set(e.model.Out[last][p], x, out)
	}
}

// split reads the α and β labels back from x.
func (e *expander) split(x *bitset.BitSet) (alpha, beta Path) {
	alpha = make(Path, e.model.Block)
	for i := range alpha {
		alpha[i] = x.Test(uint(i))
	}
	beta = make(Path, e.model.Block)
	base := e.model.Block * e.model.Rounds
	for i := range beta {
		beta[i] = x.Test(uint(base + i))
	}
	return alpha, beta
}

// value evaluates the LHS of an S-box port at x, bit i from lhs[i].
func value(lhs []*bitset.BitSet, x *bitset.BitSet) int {
	v := 0
	for i, l := range lhs {
		if gf2.Dot(l, x) {
			v |= 1 << uint(i)
		}
	}
	return v
}

// set writes v into the unit variables of an S-box port.
func set(lhs []*bitset.BitSet, x *bitset.BitSet, v int) {
	for i, l := range lhs {
		bit, _ := l.NextSet(0)
		x.SetTo(bit, v>>uint(i)&1 == 1)
	}
}

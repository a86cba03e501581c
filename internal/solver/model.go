// Package solver builds Master: it joins the S-box shards of every round,
// absorbs the linear dependencies the joins expose and prunes Master back
// under its size budget.
package solver

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// Model is the CRHS system of a cipher reduced to rounds rounds. Variables
// are the first block's input bits followed by the S-box output bits of
// every round: x_0 = [0, n), y_r = [n(r+1), n(r+2)).
type Model struct {
	Cipher cipher.Cipher
	Mode   cipher.Mode
	Rounds int
	Block  int
	NVar   int
	// Step is the S-box input size, the cohort size of Master's active area.
	Step int
	// OutStep is the S-box output size.
	OutStep int
	// In[r][p] and Out[r][p] are the LHS of the input and output bits of
	// S-box p in round r, least significant bit first.
	In  [][][]*bitset.BitSet
	Out [][][]*bitset.BitSet

	System *shard.System
}

// BuildSystem creates one shard per S-box per round, wired through the
// linear layer.
func BuildSystem(c cipher.Cipher, rounds int, mode cipher.Mode) (*Model, error) {
	if rounds < 2 {
		return nil, fmt.Errorf("%s: need at least 2 rounds, got %d", c.Name(), rounds)
	}
	if rounds > c.NrOfRounds() {
		return nil, fmt.Errorf("%s: has %d rounds, %d requested", c.Name(), c.NrOfRounds(), rounds)
	}
	n := c.BlockSize(0)
	step, outStep := c.SboxSizeIn(0, 0), c.SboxSizeOut(0, 0)
	for r := 0; r < rounds; r++ {
		if c.BlockSize(r) != n {
			return nil, fmt.Errorf("%s: block size changes in round %d", c.Name(), r)
		}
		for p := 0; p < c.NumSboxes(r); p++ {
			if c.SboxSizeIn(r, p) != step || c.SboxSizeOut(r, p) != outStep {
				return nil, fmt.Errorf("%s: S-box %d of round %d differs in size", c.Name(), p, r)
			}
		}
		if c.NumSboxes(r)*step != n || c.NumSboxes(r)*outStep != n {
			return nil, fmt.Errorf("%s: S-boxes of round %d do not cover the block", c.Name(), r)
		}
	}

	m := &Model{
		Cipher:  c,
		Mode:    mode,
		Rounds:  rounds,
		Block:   n,
		NVar:    n * (rounds + 1),
		Step:    step,
		OutStep: outStep,
		In:      make([][][]*bitset.BitSet, rounds),
		Out:     make([][][]*bitset.BitSet, rounds),
	}
	m.System = shard.NewSystem(m.NVar)

	inputs := make([]*bitset.BitSet, n)
	for i := range inputs {
		inputs[i] = gf2.Unit(m.NVar, i)
	}
	for r := 0; r < rounds; r++ {
		outputs := make([]*bitset.BitSet, n)
		for i := range outputs {
			outputs[i] = gf2.Unit(m.NVar, n*(r+1)+i)
		}
		sboxes := c.NumSboxes(r)
		m.In[r] = make([][]*bitset.BitSet, sboxes)
		m.Out[r] = make([][]*bitset.BitSet, sboxes)
		for p := 0; p < sboxes; p++ {
			m.In[r][p] = inputs[p*step : (p+1)*step]
			m.Out[r][p] = outputs[p*outStep : (p+1)*outStep]
			s, err := cipher.SboxShard(m.NVar, m.In[r][p], m.Out[r][p], c.BaseTable(r, p, mode))
			if err != nil {
				return nil, fmt.Errorf("round %d sbox %d: %w", r, p, err)
			}
			if err := m.System.Add(s); err != nil {
				return nil, err
			}
		}
		inputs = c.ApplyLinearLayer(r, outputs)
	}
	return m, nil
}

// Shard returns the system shard of S-box p in round r.
func (m *Model) Shard(r, p int) *shard.Shard {
	return m.System.Shards[r*len(m.In[r])+p]
}

// Sboxes is the number of S-boxes per round.
func (m *Model) Sboxes() int {
	return len(m.In[0])
}

// Area is the active area of the solved Master: the inputs of rounds 1 to
// Rounds-1.
func (m *Model) Area() weight.Area {
	return weight.Area{Start: m.Block, End: m.Block * m.Rounds, Step: m.Step}
}

// AlphaArea covers the first-round inputs above the α level.
func (m *Model) AlphaArea() weight.Area {
	return weight.Area{Start: 0, End: m.Block, Step: m.Step}
}

// OutputArea covers the last-round outputs below the β level.
func (m *Model) OutputArea() weight.Area {
	return weight.Area{Start: m.Block * m.Rounds, End: m.NVar, Step: m.OutStep}
}

func (m *Model) freeLHS() []*bitset.BitSet {
	out := make([]*bitset.BitSet, m.Block)
	for i := range out {
		out[i] = gf2.Unit(m.NVar, i)
	}
	return out
}

// ExpectedLHS lists the LHS of the solved Master, top to bottom: every
// round's S-box inputs, then the last round's outputs.
func (m *Model) ExpectedLHS() []*bitset.BitSet {
	out := make([]*bitset.BitSet, 0, m.NVar)
	for r := range m.In {
		for _, sbox := range m.In[r] {
			out = append(out, sbox...)
		}
	}
	for _, sbox := range m.Out[m.Rounds-1] {
		out = append(out, sbox...)
	}
	return out
}

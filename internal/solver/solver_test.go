package solver

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

var (
	presentSbox = []int{0xc, 0x5, 0x6, 0xb, 0x9, 0x0, 0xa, 0xd, 0x3, 0xe, 0xf, 0x8, 0x4, 0x7, 0x1, 0x2}
	toy8Perm    = []int{0, 2, 4, 6, 1, 3, 5, 7}
)

func toy8(t *testing.T) *cipher.SPN {
	t.Helper()
	c, err := cipher.NewSPN("toy8", 6, presentSbox, 4, toy8Perm)
	require.NoError(t, err)
	return c
}

func unlimited() config.Config {
	cfg := config.Default()
	cfg.SoftLimit = 1 << 30
	cfg.HardLimitExp = 0
	return cfg
}

// countPaths counts the source-to-sink paths of s.
func countPaths(s *shard.Shard) uint64 {
	below := []uint64{1}
	for d := s.Depth() - 1; d >= 0; d-- {
		nodes := s.Levels[d].Nodes
		cur := make([]uint64, len(nodes))
		for i, n := range nodes {
			for _, e := range n.Edges {
				if e != shard.None {
					cur[i] += below[e]
				}
			}
		}
		below = cur
	}
	return below[0]
}

func nibble(v, p int) int {
	return v >> uint(4*p) & 0xf
}

func permute(v int) int {
	out := 0
	for i, p := range toy8Perm {
		if v>>uint(i)&1 == 1 {
			out |= 1 << uint(p)
		}
	}
	return out
}

// twoRoundTrails counts the (x0, y0, y1) assignments of two toy8 rounds with
// non-zero DDT entries in every S-box.
func twoRoundTrails() uint64 {
	ddt := cipher.NewDDT(presentSbox, 4, 4)
	var inputs, outputs [16]uint64
	for a := 0; a < 16; a++ {
		for b := 0; b < 16; b++ {
			if ddt.Entry(a, b) != 0 {
				inputs[b]++
				outputs[a]++
			}
		}
	}
	var total uint64
	for y0 := 0; y0 < 256; y0++ {
		in1 := permute(y0)
		total += inputs[nibble(y0, 0)] * inputs[nibble(y0, 1)] * outputs[nibble(in1, 0)] * outputs[nibble(in1, 1)]
	}
	return total
}

func TestBuildSystem_Wiring(t *testing.T) {
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)

	assert.Equal(t, 24, m.NVar)
	assert.Equal(t, 8, m.Block)
	assert.Equal(t, 4, m.Step)
	assert.Len(t, m.System.Shards, 4)
	assert.Equal(t, 8, m.Shard(1, 1).Depth())

	// bit j of y_0 feeds input bit perm[j] of round 1
	for j, p := range toy8Perm {
		assert.True(t, m.In[1][p/4][p%4].Equal(gf2.Unit(24, 8+j)), "y0 bit %d", j)
	}
	assert.True(t, m.Out[1][1][3].Equal(gf2.Unit(24, 23)))
	assert.Equal(t, weight.Area{Start: 8, End: 16, Step: 4}, m.Area())
	assert.Len(t, m.ExpectedLHS(), 24)
}

func TestBuildSystem_RejectsRounds(t *testing.T) {
	_, err := BuildSystem(toy8(t), 1, cipher.Differential)
	assert.Error(t, err)
	_, err = BuildSystem(toy8(t), 7, cipher.Differential)
	assert.Error(t, err)
}

func TestSolver_Solve_PreservesSolutions(t *testing.T) {
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)

	solved, err := New(unlimited(), m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	master := solved.Master
	assert.Equal(t, m.NVar, master.Depth())
	assert.Equal(t, m.NVar, gf2.Rank(master.LHSMatrix()))
	assert.True(t, master.IsReduced())
	assert.Equal(t, twoRoundTrails(), countPaths(master))
	assert.Equal(t, m.Area(), solved.Area)
}

func TestSolver_Solve_Records(t *testing.T) {
	m, err := BuildSystem(toy8(t), 3, cipher.Differential)
	require.NoError(t, err)

	var trace bytes.Buffer
	lib := librarian.New(librarian.Options{Trace: &trace})
	cfg := config.Default()
	cfg.SoftLimit = 40
	cfg.HardLimitExp = 0

	solved, err := New(cfg, m, Options{Librarian: lib}).Solve(context.Background())
	require.NoError(t, err)
	require.NoError(t, lib.Close())
	require.NoError(t, CheckLayout(m, solved.Master))

	kinds := map[string]int{}
	sc := bufio.NewScanner(&trace)
	for sc.Scan() {
		for _, k := range []string{"master_layout", "prune"} {
			if strings.Contains(sc.Text(), `"kind":"`+k+`"`) {
				kinds[k]++
			}
		}
	}
	assert.Equal(t, 3, kinds["master_layout"])
	assert.Positive(t, kinds["prune"])
}

func TestSolver_Solve_HardLimit(t *testing.T) {
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.SoftLimit = 1
	cfg.HardLimitExp = 1

	_, err = New(cfg, m, Options{}).Solve(context.Background())
	assert.ErrorIs(t, err, ErrHardLimit)
}

func TestSolver_Solve_Cancelled(t *testing.T) {
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(unlimited(), m, Options{}).Solve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func freeSolver(t *testing.T, lhs []*bitset.BitSet, roles ...Role) *Solver {
	t.Helper()
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)
	s := New(unlimited(), m, Options{})
	s.master = shard.NewFree(m.NVar, lhs)
	s.tags = make(tags, len(roles))
	for i, r := range roles {
		s.tags[i] = Tag{Role: r, Bit: i}
	}
	return s
}

func TestSolver_AbsorbAll_MovesUnprotectedBase(t *testing.T) {
	u0, u1 := gf2.Unit(24, 0), gf2.Unit(24, 1)
	s := freeSolver(t, []*bitset.BitSet{u0, u1, gf2.Xor(u0, u1)}, RoleInput, RoleFree, RoleInput)

	require.NoError(t, s.absorbAll())

	assert.Equal(t, 2, s.master.Depth())
	assert.Equal(t, []Role{RoleInput, RoleInput}, []Role{s.tags[0].Role, s.tags[1].Role})
	assert.True(t, s.master.Levels[0].LHS.Equal(u0))
	assert.True(t, s.master.Levels[1].LHS.Equal(gf2.Xor(u0, u1)))
	assert.Equal(t, uint64(4), countPaths(s.master))
	assert.Equal(t, 1, s.absorbed)
}

func TestSolver_AbsorbAll_ProtectedOnly(t *testing.T) {
	u0 := gf2.Unit(24, 0)
	s := freeSolver(t, []*bitset.BitSet{u0, u0.Clone()}, RoleInput, RoleInput)

	assert.ErrorIs(t, s.absorbAll(), ErrInvariant)
}

func TestSolver_AbsorbAll_PrefersSmallSpan(t *testing.T) {
	u0, u1, u2 := gf2.Unit(24, 0), gf2.Unit(24, 1), gf2.Unit(24, 2)
	// {0,1,3} spans 3 levels, {2,4} spans 2 and goes first
	s := freeSolver(t, []*bitset.BitSet{u0, u1, u2, gf2.Xor(u0, u1), u2.Clone()},
		RoleInput, RoleInput, RoleInput, RoleOutput, RoleOutput)

	deps := gf2.Dependencies(s.master.LHSMatrix())
	require.Len(t, deps, 2)
	assert.Equal(t, []int{2, 4}, nextDependency(deps))

	require.NoError(t, s.absorbAll())
	assert.Equal(t, 3, s.master.Depth())
	assert.Equal(t, 3, s.tags.inputs())
}

func TestWidestLevel(t *testing.T) {
	m, err := BuildSystem(toy8(t), 2, cipher.Differential)
	require.NoError(t, err)
	solved, err := New(unlimited(), m, Options{}).Solve(context.Background())
	require.NoError(t, err)

	depth, width, second := widestLevel(solved.Master, solved.Area)
	require.True(t, solved.Area.Contains(depth))
	assert.Equal(t, solved.Master.Width(depth), width)
	assert.LessOrEqual(t, second, width)
	for d := depth + 1; d < solved.Area.End; d++ {
		assert.Less(t, solved.Master.Width(d), width, "deeper level %d ties the widest", d)
	}
}

func TestDeletionCap(t *testing.T) {
	assert.Equal(t, 11, deletionCap(20, 10))
	assert.Equal(t, 1, deletionCap(10, 10))
	assert.Equal(t, 1, deletionCap(2, 0))
	assert.Equal(t, 4, deletionCap(5, 1))
}

func lightest(t *testing.T, s *shard.Shard, area weight.Area) int {
	t.Helper()
	lvl, err := weight.Through(s, area, area.Start, weight.TrivialPresence)
	require.NoError(t, err)
	lew, ok := lvl.LEW()
	require.True(t, ok)
	return lew
}

func TestPruneOnce_KeepsLightestPath(t *testing.T) {
	for _, variant := range []string{config.PruneV2, config.PruneV3} {
		t.Run(variant, func(t *testing.T) {
			m, err := BuildSystem(toy8(t), 2, cipher.Differential)
			require.NoError(t, err)
			solved, err := New(unlimited(), m, Options{}).Solve(context.Background())
			require.NoError(t, err)
			master, area := solved.Master, solved.Area

			before := lightest(t, master, area)
			_, width, second := widestLevel(master, area)
			rec, err := PruneOnce(master, area, variant)
			require.NoError(t, err)
			require.NotNil(t, rec)

			assert.Less(t, rec.SizeAfter, rec.SizeBefore)
			assert.Equal(t, master.Size(), rec.SizeAfter)
			assert.GreaterOrEqual(t, rec.Candidates, 1)
			assert.LessOrEqual(t, rec.Candidates, deletionCap(width, second))
			assert.Equal(t, before, lightest(t, master, area))
			assert.True(t, master.IsReduced())
		})
	}
}

func TestPruneOnce_WidthOne(t *testing.T) {
	lhs := []*bitset.BitSet{gf2.Unit(8, 0), gf2.Unit(8, 1), gf2.Unit(8, 2), gf2.Unit(8, 3)}
	master := shard.NewFree(8, lhs)

	rec, err := PruneOnce(master, weight.Area{Start: 0, End: 4, Step: 2}, config.PruneV3)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestActiveArea(t *testing.T) {
	_, ok := activeArea(8, 4, 0)
	assert.False(t, ok)

	a, ok := activeArea(8, 4, 4)
	require.True(t, ok)
	assert.Equal(t, weight.Area{Start: 0, End: 4, Step: 4}, a)

	a, _ = activeArea(8, 4, 16)
	assert.Equal(t, weight.Area{Start: 8, End: 16, Step: 4}, a)
}

func TestTags_Layout(t *testing.T) {
	ts := tags{
		{Role: RoleInput, Round: 0, Pos: 0}, {Role: RoleInput, Round: 0, Pos: 0},
		{Role: RoleFree}, {Role: RoleOutput, Round: 0, Pos: 1},
	}
	assert.Equal(t, "in(0,0)×2 x×1 out(0,1)×1", ts.layout())
	assert.Equal(t, 2, ts.inputs())
	assert.Equal(t, 3, ts.depthOf(Tag{Role: RoleOutput, Round: 0, Pos: 1}))
}

func TestSolver_Solve_SoftLimitThreeRounds(t *testing.T) {
	m, err := BuildSystem(toy8(t), 3, cipher.Differential)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.SoftLimit = 200
	cfg.HardLimitExp = 0

	solved, err := New(cfg, m, Options{}).Solve(context.Background())
	require.NoError(t, err)
	require.NoError(t, CheckLayout(m, solved.Master))
	assert.LessOrEqual(t, solved.Master.Size(), cfg.SoftLimit)
	assert.True(t, solved.Master.IsReduced())
}

func TestPruneOnce_DeletesAtThreshold(t *testing.T) {
	m, err := BuildSystem(toy8(t), 3, cipher.Differential)
	require.NoError(t, err)
	solved, err := New(unlimited(), m, Options{}).Solve(context.Background())
	require.NoError(t, err)
	master := solved.Master

	for _, variant := range []string{config.PruneV2, config.PruneV3} {
		master := master.Clone()
		for iter := 0; master.Size() > 200; iter++ {
			depth, _, _ := widestLevel(master, solved.Area)
			lvl, err := weight.Through(master, solved.Area, depth, weight.TrivialPresence)
			require.NoError(t, err)
			prior := map[int]int{}
			for _, n := range master.Levels[depth].Nodes {
				prior[n.ID], _ = lvl[n.ID].LEW()
			}

			rec, err := PruneOnce(master, solved.Area, variant)
			require.NoError(t, err)
			require.NotNil(t, rec, "%s iteration %d", variant, iter)
			require.Equal(t, depth, rec.Depth)

			after := map[int]bool{}
			for _, n := range master.Levels[depth].Nodes {
				after[n.ID] = true
			}
			deleted := 0
			for id, lew := range prior {
				if !after[id] {
					deleted++
					assert.GreaterOrEqual(t, lew, rec.Threshold, "%s iteration %d node %d", variant, iter, id)
				}
			}
			assert.Equal(t, rec.Candidates, deleted)
			assert.Equal(t, rec.SizeBefore-rec.SizeAfter, rec.Deleted)
			assert.True(t, master.IsReduced())
		}
		assert.LessOrEqual(t, master.Size(), 200)
	}
}

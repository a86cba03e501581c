package hull

import (
	"bytes"
	"context"
	"math"
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
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

var (
	presentSbox = []int{0xc, 0x5, 0x6, 0xb, 0x9, 0x0, 0xa, 0xd, 0x3, 0xe, 0xf, 0x8, 0x4, 0x7, 0x1, 0x2}
	toy8Perm    = []int{0, 2, 4, 6, 1, 3, 5, 7}
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SoftLimit = 1 << 30
	cfg.HardLimitExp = 0
	return cfg
}

func solveToy8(t *testing.T, mode cipher.Mode) *solver.Solved {
	t.Helper()
	c, err := cipher.NewSPN("toy8", 6, presentSbox, 4, toy8Perm)
	require.NoError(t, err)
	m, err := solver.BuildSystem(c, 2, mode)
	require.NoError(t, err)
	solved, err := solver.New(testConfig(), m, solver.Options{}).Solve(context.Background())
	require.NoError(t, err)
	return solved
}

func number(p Path) int {
	v := 0
	for i, b := range p {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}

func TestPath_AppendWeightHex(t *testing.T) {
	p := Path{false, true, false, false}
	q := p.Append(false, false, false, false)

	assert.Len(t, p, 4)
	assert.Len(t, q, 8)
	assert.Equal(t, 1, q.Weight(4))
	assert.Equal(t, 2, Path{true, false, false, true}.Weight(2))
	assert.Equal(t, 0, Path{false, false}.Weight(1))
	assert.Equal(t, "02", q.Hex())

	v := Vector(Path{true}, Path{false, true})
	assert.Equal(t, []int{0, 2}, gf2.Indices(v))
}

func TestBins_Log2P(t *testing.T) {
	b := NewBins()
	_, ok := b.Log2P(false)
	assert.False(t, ok)

	b.Add(2000)
	got, ok := b.Log2P(false)
	require.True(t, ok)
	assert.InDelta(t, 2.0, got, 1e-12)
	got, _ = b.Log2P(true)
	assert.InDelta(t, 4.0, got, 1e-12)

	b.Add(3000)
	b.Add(3000)
	b.Skip()
	got, _ = b.Log2P(false)
	assert.InDelta(t, 1.0, got, 1e-12)
	assert.Equal(t, uint64(4), b.Total)
	assert.Equal(t, uint64(1), b.Skipped)
}

func TestBins_Merge(t *testing.T) {
	a, b := NewBins(), NewBins()
	a.Add(1000)
	b.Add(1000)
	b.Add(4000)
	b.Skip()
	a.Merge(b)

	assert.Equal(t, map[int]uint64{1000: 2, 4000: 1}, a.Counts)
	assert.Equal(t, uint64(4), a.Total)
	assert.Equal(t, []int{1000, 4000}, a.Exponents())
	assert.False(t, a.Overflowed)
}

func TestEstimator_Estimate(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	var trace bytes.Buffer
	lib := librarian.New(librarian.Options{Trace: &trace})
	cfg := testConfig()
	cfg.MaxConnections = 5

	est, err := NewEstimator(cfg, lib, nil).Estimate(solved)
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	assert.GreaterOrEqual(t, est.L0, 1)
	assert.Positive(t, est.Buckets[0])
	require.NotEmpty(t, est.Connections)
	assert.LessOrEqual(t, len(est.Connections), 5)
	for i := 1; i < len(est.Connections); i++ {
		assert.GreaterOrEqual(t, est.Connections[i-1].Score, est.Connections[i].Score)
	}
	best := est.Best()
	assert.InDelta(t, math.Log2(best.Score)-est.K*float64(est.L0), best.Log2Estimate, 1e-9)

	area := solved.Area
	assert.Equal(t, 1, est.Reduced.Width(area.Start))
	assert.Equal(t, 1, est.Reduced.Width(area.End))
	assert.Equal(t, best.AlphaID, est.Reduced.Levels[area.Start].Nodes[0].ID)
	assert.Equal(t, best.BetaID, est.Reduced.Levels[area.End].Nodes[0].ID)
	assert.Greater(t, solved.Master.Size(), est.Reduced.Size(), "master itself is left intact")

	assert.Equal(t, 1, strings.Count(trace.String(), `"kind":"pre_sess_estimate"`))
	assert.Equal(t, len(est.Connections), strings.Count(trace.String(), `"kind":"sess_estimate"`))
}

func TestConnections_WindowAtAlphaWeight(t *testing.T) {
	en := weight.EndNode{ByEnd: map[int]weight.Counted{
		5: {Counts: []uint64{0, 2, 1}},
		7: {Counts: []uint64{0, 0, 0, 0, 3}},
		9: {Counts: []uint64{0, 0, 4, 5, 8}},
	}}
	got := connections(3, 1, en, 1, 2, map[int]int{5: 6, 9: 4})
	require.Len(t, got, 2, "β 7 has no path of weight 1..3")

	byBeta := map[int]Connection{}
	for _, c := range got {
		assert.Equal(t, 3, c.AlphaID)
		byBeta[c.BetaID] = c
	}
	assert.InDelta(t, 2+0.25, byBeta[5].Score, 1e-12)
	assert.Equal(t, 1, byBeta[5].Lightest)
	assert.Equal(t, 6, byBeta[5].BetaSegmentWeight)
	assert.InDelta(t, 1+0.3125, byBeta[9].Score, 1e-12, "weight 4 lies outside the α window")
	assert.Equal(t, 2, byBeta[9].Lightest)
	assert.InDelta(t, math.Log2(1.3125)-2, byBeta[9].Log2Estimate, 1e-12)
}

func TestEstimator_OnlyTrivialHull(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	lhs := []*bitset.BitSet{gf2.Unit(24, 0), gf2.Unit(24, 1), gf2.Unit(24, 2)}
	zeros, err := shard.FromTable(24, lhs, [][][2]int32{
		{{0, shard.None}}, {{0, shard.None}}, {{0, shard.None}},
	})
	require.NoError(t, err)
	flat := &solver.Solved{Master: zeros, Area: weight.Area{Start: 0, End: 2, Step: 1}, Model: solved.Model}

	_, err = NewEstimator(testConfig(), nil, nil).Estimate(flat)
	assert.ErrorIs(t, err, ErrOnlyTrivialHull)
}

func collect(t *testing.T, e *Enumerator) ([]Path, EnumStatus) {
	t.Helper()
	ch := make(chan Path, 4)
	var got []Path
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ch {
			got = append(got, p)
		}
	}()
	status, err := e.Run(context.Background(), ch)
	require.NoError(t, err)
	<-done
	return got, status
}

func TestEnumerator_SemiTargeted(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	master, area := solved.Master, solved.Area
	arena, err := weight.BuildArena(master, area, weight.TrivialEndNode)
	require.NoError(t, err)
	counts, err := weight.BottomUp(master, area, area.Start, weight.TrivialCounted)
	require.NoError(t, err)

	for w := 0; w <= area.Cohorts(); w++ {
		var want uint64
		for _, id := range counts.IDs() {
			want += counts[id].PathsForWeight(w)
		}
		paths, status := collect(t, NewEnumerator(master, area, arena, Target{Mode: SemiTargeted, Weight: w}, 1<<20))
		assert.Equal(t, Exhausted, status)
		assert.Equal(t, want, uint64(len(paths)), "weight %d", w)
		for _, p := range paths {
			assert.Len(t, p, area.Width())
			assert.Equal(t, w, p.Weight(area.Step))
		}
	}
}

func TestEnumerator_LimitReached(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)

	paths, status := collect(t, NewEnumerator(solved.Master, solved.Area, nil, Target{Mode: Unbounded}, 3))
	assert.Equal(t, LimitReached, status)
	assert.Len(t, paths, 3)
}

func TestEnumerator_Cancelled(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnumerator(solved.Master, solved.Area, nil, Target{Mode: Unbounded}, 1<<20).Run(ctx, make(chan Path))
	assert.ErrorIs(t, err, context.Canceled)
}

// bruteHull sums, over every non-zero y0, the probability of the two-round
// toy8 trail x0 → y0 → P(y0) → y1, and returns −log2 of the sum.
func bruteHull(x0, y1 int) float64 {
	ddt := cipher.NewDDT(presentSbox, 4, 4)
	nib := func(v, p int) int { return v >> uint(4*p) & 0xf }
	sum := 0.0
	for y0 := 1; y0 < 256; y0++ {
		in1 := 0
		for i, p := range toy8Perm {
			if y0>>uint(i)&1 == 1 {
				in1 |= 1 << uint(p)
			}
		}
		prob := 1.0
		for p := 0; p < 2; p++ {
			prob *= float64(ddt.Entry(nib(x0, p), nib(y0, p))) / 16
			prob *= float64(ddt.Entry(nib(in1, p), nib(y1, p))) / 16
		}
		sum += prob
	}
	return -math.Log2(sum)
}

func TestAggregator_Run(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	cfg := testConfig()
	est, err := NewEstimator(cfg, nil, nil).Estimate(solved)
	require.NoError(t, err)

	var trace bytes.Buffer
	lib := librarian.New(librarian.Options{Trace: &trace})
	results, err := NewAggregator(Options{Config: cfg, Workers: 3, Librarian: lib}).Run(context.Background(), solved, est)
	require.NoError(t, err)
	require.NoError(t, lib.Close())
	require.Len(t, results, 2)

	for _, res := range results {
		var binned uint64
		for _, c := range res.Bins.Counts {
			binned += c
		}
		assert.Equal(t, res.Bins.Total, binned+res.Bins.Skipped, res.Pass)
		assert.Zero(t, res.Bins.Skipped, res.Pass)
		assert.Equal(t, Exhausted, res.Status)
		require.True(t, res.Found)
		require.NotNil(t, res.Best)
		assert.Positive(t, res.HullLog2P)
	}

	ext := results[0]
	require.Equal(t, PassExtracted, ext.Pass)
	want := bruteHull(number(ext.Best.Alpha), number(ext.Best.Beta))
	assert.InDelta(t, want, ext.HullLog2P, 1e-9)

	assert.Equal(t, PassConstructed, results[1].Pass)
	assert.Equal(t, 2, strings.Count(trace.String(), `"kind":"result_section"`))
	assert.Equal(t, 2, strings.Count(trace.String(), `"kind":"alpha_beta_inner_paths"`))
}

func TestAggregator_Truncated(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	cfg := testConfig()
	cfg.UpperLimit = 2
	cfg.EnumMode = config.EnumUnbounded
	est, err := NewEstimator(cfg, nil, nil).Estimate(solved)
	require.NoError(t, err)
	// The reduced toy8 hull holds a single inner path; the full Master
	// holds more than the limit.
	est.Reduced = solved.Master
	paths, status := collect(t, NewEnumerator(solved.Master, solved.Area, nil, Target{Mode: Unbounded}, 1<<20))
	require.Equal(t, Exhausted, status)
	require.Greater(t, len(paths), cfg.UpperLimit)

	var trace bytes.Buffer
	lib := librarian.New(librarian.Options{Trace: &trace})
	results, err := NewAggregator(Options{Config: cfg, Workers: 2, Librarian: lib}).Run(context.Background(), solved, est)
	require.NoError(t, err)
	require.NoError(t, lib.Close())
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, LimitReached, res.Status, res.Pass)
		assert.Equal(t, uint64(cfg.UpperLimit), res.Bins.Total, res.Pass)
	}
	assert.Equal(t, 2, strings.Count(trace.String(), `"truncated":true`))
}

func TestAggregator_ExhaustsSinglePath(t *testing.T) {
	solved := solveToy8(t, cipher.Differential)
	cfg := testConfig()
	cfg.UpperLimit = 1
	cfg.EnumMode = config.EnumUnbounded
	est, err := NewEstimator(cfg, nil, nil).Estimate(solved)
	require.NoError(t, err)

	results, err := NewAggregator(Options{Config: cfg}).Run(context.Background(), solved, est)
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, Exhausted, res.Status, "a limit equal to the path count is not a truncation")
		assert.Equal(t, uint64(1), res.Bins.Total)
	}
}

func TestAggregator_LinearDoubles(t *testing.T) {
	solved := solveToy8(t, cipher.Linear)
	cfg := testConfig()
	est, err := NewEstimator(cfg, nil, nil).Estimate(solved)
	require.NoError(t, err)

	results, err := NewAggregator(Options{Config: cfg, Workers: 1}).Run(context.Background(), solved, est)
	require.NoError(t, err)
	for _, res := range results {
		require.True(t, res.Found)
		doubled := NewBins()
		for k, c := range res.Bins.Counts {
			doubled.Counts[2*k] = c
		}
		want, _ := doubled.Log2P(false)
		assert.InDelta(t, want, res.HullLog2P, 1e-9, res.Pass)
		assert.Equal(t, cipher.Linear, res.Mode)
	}
}

package hull

import (
	"context"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/logging"
	"github.com/mahdiidarabi/crhs-hull/internal/metrics"
	"github.com/mahdiidarabi/crhs-hull/internal/progress"
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// Pass names where the α and β parts of a trail come from.
type Pass string

const (
	// PassExtracted reads α and β off the reduced Master.
	PassExtracted Pass = "extracted"
	// PassConstructed picks, per inner path, the most likely first-round
	// input and last-round output.
	PassConstructed Pass = "constructed"
)

// Result is the outcome of one aggregation pass.
type Result struct {
	Pass      Pass
	Mode      cipher.Mode
	HullLog2P float64
	Found     bool
	Bins      Bins
	Status    EnumStatus
	Best      *Trail
}

// Options configures an Aggregator. Zero collaborators are ignored.
type Options struct {
	Config config.Config
	// Workers prices trails in parallel; 0 uses one per CPU.
	Workers   int
	Librarian *librarian.Librarian
	Logger    *logrus.Entry
	Metrics   *metrics.Metrics
	Progress  progress.Factory
}

// Aggregator enumerates the inner paths of the best connection and sums
// the probabilities of the trails they expand to.
type Aggregator struct {
	opts Options
	log  *logrus.Entry
}

// NewAggregator returns an Aggregator.
func NewAggregator(opts Options) *Aggregator {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	if opts.Progress == nil {
		opts.Progress = progress.Silent()
	}
	return &Aggregator{opts: opts, log: log}
}

// Run aggregates the hull of est with both passes, extracted first.
func (a *Aggregator) Run(ctx context.Context, solved *solver.Solved, est *Estimate) ([]Result, error) {
	reduced, area := est.Reduced, solved.Area
	exp, err := newExpander(solved.Model, reduced)
	if err != nil {
		return nil, err
	}
	var arena *weight.Arena[weight.EndNode]
	if a.opts.Config.EnumMode != config.EnumUnbounded {
		if arena, err = weight.BuildArena(reduced, area, weight.TrivialEndNode); err != nil {
			return nil, err
		}
	}

	alpha := walk(reduced, 0, 0, area.Start)
	beta := walk(reduced, area.End, 0, reduced.Depth())
	zeroA, zeroB := make(Path, len(alpha)), make(Path, len(beta))
	prices := map[Pass]priceFunc{
		PassExtracted: func(inner Path) (Trail, bool) {
			x := exp.assign(alpha, inner, beta)
			e, ok := exp.exponent(x)
			return Trail{X: x, Exponent: e, Alpha: alpha, Inner: inner, Beta: beta}, ok
		},
		PassConstructed: func(inner Path) (Trail, bool) {
			x := exp.assign(zeroA, inner, zeroB)
			exp.construct(x)
			e, ok := exp.exponent(x)
			al, be := exp.split(x)
			return Trail{X: x, Exponent: e, Alpha: al, Inner: inner, Beta: be}, ok
		},
	}

	targets := a.targets(est.Best(), reduced.Levels[area.End].Nodes[0].ID)
	var results []Result
	for _, pass := range []Pass{PassExtracted, PassConstructed} {
		res, err := a.pass(ctx, pass, solved, est, arena, targets, prices[pass])
		if err != nil {
			return results, err
		}
		a.record(res, solved.Model.NVar)
		results = append(results, res)
	}
	return results, nil
}

// targets lists the enumerations of a pass: every weight of the bucket span
// that the connection holds, or a single unbounded walk.
func (a *Aggregator) targets(best Connection, beta int) []Target {
	cfg := a.opts.Config
	if cfg.EnumMode == config.EnumUnbounded {
		return []Target{{Mode: Unbounded}}
	}
	mode := Targeted
	if cfg.EnumMode == config.EnumSemiTargeted {
		mode = SemiTargeted
	}
	var out []Target
	for w := best.Lightest; w <= best.Lightest+cfg.BucketSpan; w++ {
		if best.Sub.PathsForWeight(w) > 0 {
			out = append(out, Target{Mode: mode, Weight: w, Beta: beta})
		}
	}
	return out
}

func (a *Aggregator) pass(ctx context.Context, pass Pass, solved *solver.Solved, est *Estimate,
	arena *weight.Arena[weight.EndNode], targets []Target, price priceFunc) (Result, error) {
	cfg := a.opts.Config
	res := Result{Pass: pass, Mode: solved.Model.Mode, Status: Exhausted}
	acc := newTally()

	total := int64(cfg.UpperLimit)
	if sum, overflow := est.Best().Sub.TotalPaths(); cfg.EnumMode != config.EnumUnbounded && !overflow && sum < uint64(total) {
		total = int64(sum)
	}
	bar := a.opts.Progress.NewProgressBar(total)
	bar.SetMessage(string(pass))

	remaining := cfg.UpperLimit
	for _, t := range targets {
		if remaining <= 0 {
			res.Status = LimitReached
			break
		}
		got, n, status, err := a.consume(ctx, pass, solved, est, arena, t, remaining, price, bar)
		if err != nil {
			bar.FinishAndClear()
			return res, err
		}
		acc.merge(got)
		remaining -= int(n)
		if status == LimitReached {
			res.Status = LimitReached
			break
		}
	}

	res.Bins, res.Best = acc.bins, acc.best
	res.HullLog2P, res.Found = res.Bins.Log2P(solved.Model.Mode == cipher.Linear)
	bar.FinishWithMessage(string(pass) + " done")
	a.log.WithFields(logrus.Fields{
		"pass":    pass,
		"paths":   res.Bins.Total,
		"skipped": res.Bins.Skipped,
		"log2p":   res.HullLog2P,
		"status":  res.Status.String(),
	}).Info("hull aggregated")
	return res, nil
}

// consume runs one enumeration in its own goroutine and prices its paths
// as they arrive. The enumerator stops when the pricing side returns.
func (a *Aggregator) consume(ctx context.Context, pass Pass, solved *solver.Solved, est *Estimate,
	arena *weight.Arena[weight.EndNode], t Target, limit int, price priceFunc, bar progress.Bar) (tally, int64, EnumStatus, error) {
	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	paths := make(chan Path, a.opts.Config.FIFOCapacity)
	enum := NewEnumerator(est.Reduced, solved.Area, arena, t, limit)
	var status EnumStatus
	g.Go(func() error {
		var err error
		status, err = enum.Run(gctx, paths)
		return err
	})

	got, n := evaluate(gctx, paths, a.opts.Workers, price, func(skipped bool) {
		a.opts.Metrics.Aggregated(string(pass), skipped)
		bar.Inc(1)
	})
	cancel()
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return got, n, status, goerrors.Wrap(ctx.Err(), 0)
	}
	return got, n, status, nil
}

func (a *Aggregator) record(res Result, nvar int) {
	rec := librarian.ResultSection{
		Pass:         string(res.Pass),
		Mode:         res.Mode.String(),
		HullLog2P:    res.HullLog2P,
		Bins:         res.Bins.Counts,
		PathsTotal:   res.Bins.Total,
		PathsSkipped: res.Bins.Skipped,
		Truncated:    res.Status == LimitReached,
		Overflowed:   res.Bins.Overflowed,
	}
	if res.Best != nil {
		rec.ExampleTrail = gf2.Hex(res.Best.X, nvar)
		a.opts.Librarian.Log(librarian.AlphaBetaInnerPaths{
			Pass:  string(res.Pass),
			Alpha: res.Best.Alpha.Hex(),
			Inner: res.Best.Inner.Hex(),
			Beta:  res.Best.Beta.Hex(),
		})
	}
	a.opts.Librarian.Log(rec)
}

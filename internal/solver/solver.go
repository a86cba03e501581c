package solver

import (
	"context"
	"fmt"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/gf2"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/logging"
	"github.com/mahdiidarabi/crhs-hull/internal/metrics"
	"github.com/mahdiidarabi/crhs-hull/internal/progress"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// Solved is a dependency-free Master together with its active area.
type Solved struct {
	Master *shard.Shard
	Area   weight.Area
	Model  *Model
}

// Options carries the collaborators of a Solver. Every field may be left
// zero: records and metrics are then dropped and no progress is drawn.
type Options struct {
	Librarian *librarian.Librarian
	Logger    *logrus.Entry
	Metrics   *metrics.Metrics
	Progress  progress.Factory
}

// Solver joins the shards of a Model into Master one S-box at a time.
type Solver struct {
	cfg    config.Config
	model  *Model
	master *shard.Shard
	tags   tags

	lib      *librarian.Librarian
	log      *logrus.Entry
	metrics  *metrics.Metrics
	progress progress.Factory

	round, pos int
	absorbed   int
}

// New returns a Solver whose Master holds only the free first-round inputs.
func New(cfg config.Config, model *Model, opts Options) *Solver {
	s := &Solver{
		cfg:      cfg,
		model:    model,
		lib:      opts.Librarian,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		progress: opts.Progress,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.progress == nil {
		s.progress = progress.Silent()
	}
	s.master = shard.NewFree(model.NVar, model.freeLHS())
	s.tags = make(tags, model.Block)
	for i := range s.tags {
		s.tags[i] = Tag{Role: RoleFree, Round: -1, Bit: i}
	}
	return s
}

// Master exposes the shard being built.
func (s *Solver) Master() *shard.Shard {
	return s.master
}

// Tags returns a copy of the level tags, top to bottom.
func (s *Solver) Tags() []Tag {
	return append([]Tag(nil), s.tags...)
}

// Solve joins every S-box of every round, absorbing and pruning after each
// join. It stops early when ctx is cancelled.
func (s *Solver) Solve(ctx context.Context) (*Solved, error) {
	for r := 0; r < s.model.Rounds; r++ {
		bar := s.progress.NewProgressBar(int64(s.model.Sboxes()))
		bar.SetMessage(fmt.Sprintf("round %d", r))
		s.round, s.absorbed = r, 0
		for p := 0; p < s.model.Sboxes(); p++ {
			if err := ctx.Err(); err != nil {
				bar.FinishAndClear()
				return nil, err
			}
			s.pos = p
			if err := s.JoinSbox(r, p); err != nil {
				bar.FinishAndClear()
				return nil, err
			}
			bar.Inc(1)
		}
		bar.FinishWithMessage(fmt.Sprintf("round %d: %d nodes", r, s.master.Size()))
		s.logLayout()
	}

	area := s.model.Area()
	if err := s.checkFinalLayout(); err != nil {
		return nil, err
	}
	return &Solved{Master: s.master, Area: area, Model: s.model}, nil
}

// JoinSbox appends the shard of S-box p in round r below Master, absorbs the
// dependencies it introduces, lifts its input levels up to the other inputs
// and prunes Master if it outgrew the soft limit.
func (s *Solver) JoinSbox(r, p int) error {
	if err := s.master.Join(s.model.Shard(r, p)); err != nil {
		return goerrors.WrapPrefix(err, fmt.Sprintf("join round %d sbox %d", r, p), 0)
	}
	for i := range s.model.In[r][p] {
		s.tags = append(s.tags, Tag{Role: RoleInput, Round: r, Pos: p, Bit: i})
	}
	for i := range s.model.Out[r][p] {
		s.tags = append(s.tags, Tag{Role: RoleOutput, Round: r, Pos: p, Bit: i})
	}

	if err := s.absorbAll(); err != nil {
		return err
	}
	if err := s.liftInputs(r, p); err != nil {
		return err
	}
	s.metrics.MasterSize(s.master.Size())
	s.log.WithFields(logrus.Fields{
		"round": r, "sbox": p, "size": s.master.Size(), "depth": s.master.Depth(),
	}).Debug("joined sbox")

	if s.master.Size() > s.cfg.SoftLimit {
		if err := s.prune(); err != nil {
			return err
		}
	}
	return nil
}

// liftInputs moves the input levels of S-box (r, p) directly below the
// inputs already in place, so Master reads inputs first and pending levels
// after.
func (s *Solver) liftInputs(r, p int) error {
	top := s.tags.inputs()
	for i := range s.model.In[r][p] {
		d := s.tags.depthOf(Tag{Role: RoleInput, Round: r, Pos: p, Bit: i})
		if d < 0 {
			return goerrors.Wrap(fmt.Errorf("%w: input %d of round %d sbox %d vanished", ErrInvariant, i, r, p), 0)
		}
		for ; d > top; d-- {
			if err := s.swap(d - 1); err != nil {
				return err
			}
			if err := s.checkHardLimit(); err != nil {
				return err
			}
		}
		top++
	}
	return nil
}

func (s *Solver) swap(d int) error {
	if err := s.master.Swap(d); err != nil {
		return err
	}
	s.tags.swap(d)
	return nil
}

func (s *Solver) checkHardLimit() error {
	limit := s.cfg.HardLimit()
	if limit > 0 && s.master.Size() > limit {
		return goerrors.Wrap(fmt.Errorf("%w: %d nodes > %d at round %d sbox %d",
			ErrHardLimit, s.master.Size(), limit, s.round, s.pos), 0)
	}
	return nil
}

// area returns the current active area.
func (s *Solver) area() (weight.Area, bool) {
	return activeArea(s.model.Block, s.model.Step, s.tags.inputs())
}

func (s *Solver) logLayout() {
	rec := librarian.MasterLayoutMD{
		Round:       s.round,
		Size:        s.master.Size(),
		Depth:       s.master.Depth(),
		Widths:      make([]int, s.master.Depth()+1),
		Step:        s.model.Step,
		Absorptions: s.absorbed,
		Layout:      s.tags.layout(),
	}
	for d := range rec.Widths {
		rec.Widths[d] = s.master.Width(d)
	}
	if a, ok := s.area(); ok {
		rec.AreaStart, rec.AreaEnd = a.Start, a.End
	}
	s.lib.Log(rec)
	s.log.WithFields(logrus.Fields{
		"round": s.round, "size": rec.Size, "absorbed": s.absorbed,
	}).Info("round complete")
}

// checkFinalLayout verifies that Master reads every round's inputs and then
// the last round's outputs.
func (s *Solver) checkFinalLayout() error {
	return CheckLayout(s.model, s.master)
}

// CheckLayout reports whether master has the depth and LHS order of a solved
// Master of model.
func CheckLayout(model *Model, master *shard.Shard) error {
	want := model.ExpectedLHS()
	if master.NVar() != model.NVar || master.Depth() != len(want) {
		return goerrors.Wrap(fmt.Errorf("%w: master has depth %d over %d variables, want %d over %d",
			ErrInvariant, master.Depth(), master.NVar(), len(want), model.NVar), 0)
	}
	for d, lhs := range want {
		if !master.Levels[d].LHS.Equal(lhs) {
			return goerrors.Wrap(fmt.Errorf("%w: level %d has LHS %s, want %s", ErrInvariant, d,
				gf2.Hex(master.Levels[d].LHS, model.NVar), gf2.Hex(lhs, model.NVar)), 0)
		}
	}
	return nil
}

// FromMaster wraps a previously solved Master of model.
func FromMaster(model *Model, master *shard.Shard) (*Solved, error) {
	if err := CheckLayout(model, master); err != nil {
		return nil, err
	}
	return &Solved{Master: master, Area: model.Area(), Model: model}, nil
}

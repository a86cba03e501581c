// Package hull estimates, enumerates and aggregates the differential or
// linear hull between the α and β levels of a solved Master.
package hull

import (
	"errors"
	"fmt"
	"math"
	"sort"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/logging"
	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
	"github.com/mahdiidarabi/crhs-hull/internal/weight"
)

// ErrOnlyTrivialHull is returned when no α node has a non-trivial path to
// the β level.
var ErrOnlyTrivialHull = errors.New("only the trivial hull exists")

// buckets is the number of weights, from the lightest, that feed a score.
const buckets = 3

// Connection is one ranked α→β pair.
type Connection struct {
	AlphaID, BetaID int
	// Lightest is the lowest non-zero inner weight between the pair.
	Lightest     int
	Score        float64
	Log2Estimate float64
	Sub          weight.Counted
	// BetaSegmentWeight is the lightest weight from β to the sink.
	BetaSegmentWeight int
}

// Estimate is the ranked connection table and the Master reduced to the hull
// of the best connection.
type Estimate struct {
	L0          int
	K           float64
	Buckets     [buckets]int
	Connections []Connection
	Reduced     *shard.Shard
}

// Best is the top-ranked connection.
func (e *Estimate) Best() Connection {
	return e.Connections[0]
}

// Estimator ranks α→β connections of a solved Master.
type Estimator struct {
	cfg config.Config
	lib *librarian.Librarian
	log *logrus.Entry
}

// NewEstimator returns an Estimator. lib and log may be nil.
func NewEstimator(cfg config.Config, lib *librarian.Librarian, log *logrus.Entry) *Estimator {
	if log == nil {
		log = logging.Discard()
	}
	return &Estimator{cfg: cfg, lib: lib, log: log}
}

// Estimate scores every connection from the lightest α candidates to the
// β level, keeps the best MaxConnections of them and reduces a copy of
// Master to the paths through the best one.
func (e *Estimator) Estimate(solved *solver.Solved) (*Estimate, error) {
	master, area := solved.Master, solved.Area
	alphas, err := weight.BottomUp(master, area, area.Start, weight.TrivialCounted)
	if err != nil {
		return nil, err
	}
	l0, ok := alphas.NTLEW()
	if !ok {
		return nil, goerrors.Wrap(ErrOnlyTrivialHull, 0)
	}

	est := &Estimate{L0: l0, K: solved.Model.Cipher.BaseTable(0, 0, solved.Model.Mode).K()}
	candidates := lo.Filter(alphas.IDs(), func(id int, _ int) bool {
		w, ok := alphas[id].NTLEW()
		if ok && w-l0 < buckets {
			est.Buckets[w-l0]++
		}
		return ok && w <= l0+e.cfg.BucketSpan
	})

	ends, err := weight.BottomUp(master, area, area.Start, weight.TrivialEndNode)
	if err != nil {
		return nil, err
	}
	betaWeights, err := segmentWeights(master, solved.Model.OutputArea())
	if err != nil {
		return nil, err
	}

	limit := e.cfg.MaxConnections
	working := int(math.Max(20000, 1.1*float64(limit)))
	var conns []Connection
	for _, a := range candidates {
		la, _ := alphas[a].NTLEW()
		conns = append(conns, connections(a, la, ends[a], l0, est.K, betaWeights)...)
		if len(conns) > 2*working {
			conns = rank(conns, working)
		}
	}
	est.Connections = rank(conns, limit)
	if len(est.Connections) == 0 {
		return nil, goerrors.Wrap(ErrOnlyTrivialHull, 0)
	}
	e.record(est, master, area)

	best := est.Best()
	est.Reduced = master.Clone()
	if err := est.Reduced.DeleteMarked(map[int][]bool{
		area.Start: others(master, area.Start, best.AlphaID),
		area.End:   others(master, area.End, best.BetaID),
	}); err != nil {
		return nil, goerrors.WrapPrefix(err, "reduce to best connection", 0)
	}
	e.log.WithFields(logrus.Fields{
		"connections": len(est.Connections),
		"l0":          l0,
		"best":        fmt.Sprintf("%d->%d", best.AlphaID, best.BetaID),
		"log2":        best.Log2Estimate,
		"reduced":     est.Reduced.Size(),
	}).Info("hull estimated")
	return est, nil
}

// connections scores α node a, whose lightest non-trivial weight is la,
// against every β end it reaches. The score sums the path counts of weights
// la..la+2; a pair without paths in that window is skipped.
func connections(a, la int, en weight.EndNode, l0 int, k float64, betaWeights map[int]int) []Connection {
	var out []Connection
	for _, b := range en.Ends() {
		sub := en.Sub(b)
		light, ok := sub.NTLEW()
		if !ok {
			continue
		}
		score := 0.0
		for w := la; w < la+buckets; w++ {
			score += float64(sub.PathsForWeight(w)) * math.Exp2(-k*float64(w-l0))
		}
		if score == 0 {
			continue
		}
		out = append(out, Connection{
			AlphaID:           a,
			BetaID:            b,
			Lightest:          light,
			Score:             score,
			Log2Estimate:      math.Log2(score) - k*float64(l0),
			Sub:               sub,
			BetaSegmentWeight: betaWeights[b],
		})
	}
	return out
}

// rank sorts by descending score, then by α and β ID, and keeps n.
func rank(conns []Connection, n int) []Connection {
	sort.Slice(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.AlphaID != b.AlphaID {
			return a.AlphaID < b.AlphaID
		}
		return a.BetaID < b.BetaID
	})
	if len(conns) > n {
		conns = conns[:n]
	}
	return conns
}

// others marks every node at depth except the one with the given ID.
func others(s *shard.Shard, depth, id int) []bool {
	return lo.Map(s.Levels[depth].Nodes, func(n shard.Node, _ int) bool { return n.ID != id })
}

// segmentWeights is the lightest weight from each node at area.Start to the
// bottom of area.
func segmentWeights(s *shard.Shard, area weight.Area) (map[int]int, error) {
	lvl, err := weight.BottomUp(s, area, area.Start, weight.TrivialPresence)
	if err != nil {
		return nil, err
	}
	return lo.MapValues(lvl, func(p weight.Presence, _ int) int {
		lew, _ := p.LEW()
		return lew
	}), nil
}

func (e *Estimator) record(est *Estimate, master *shard.Shard, area weight.Area) {
	e.lib.Log(librarian.PreSessEstimateMD{
		AlphaDepth:      area.Start,
		BetaDepth:       area.End,
		AlphaWidth:      master.Width(area.Start),
		BetaWidth:       master.Width(area.End),
		AlphaLevelNTLEW: est.L0,
		Buckets:         est.Buckets,
		K:               est.K,
	})
	for i, c := range est.Connections {
		e.lib.Log(librarian.SessEstimate{
			Rank:              i + 1,
			Alpha:             c.AlphaID,
			Beta:              c.BetaID,
			Log2Estimate:      c.Log2Estimate,
			Score:             c.Score,
			SubDistribution:   c.Sub.Counts,
			BetaSegmentWeight: c.BetaSegmentWeight,
		})
	}
}

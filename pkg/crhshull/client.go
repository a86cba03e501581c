package crhshull

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"

	"github.com/mahdiidarabi/crhs-hull/internal/catalog"
	"github.com/mahdiidarabi/crhs-hull/internal/cipher"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
	"github.com/mahdiidarabi/crhs-hull/internal/hull"
	"github.com/mahdiidarabi/crhs-hull/internal/librarian"
	"github.com/mahdiidarabi/crhs-hull/internal/logging"
	"github.com/mahdiidarabi/crhs-hull/internal/metrics"
	"github.com/mahdiidarabi/crhs-hull/internal/progress"
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
)

// Client provides a high-level API for hull searches.
type Client struct {
	cfg      config.Config
	cipher   cipher.Cipher
	log      *logrus.Entry
	progress progress.Factory
	catalog  *catalog.Catalog
	metrics  bool
	workers  int
}

// NewClient creates a new client with default settings.
func NewClient() *Client {
	return &Client{
		cfg:      config.Default(),
		log:      logging.Discard(),
		progress: progress.Silent(),
	}
}

// WithConfig replaces the solver and hull configuration.
func (c *Client) WithConfig(cfg Config) *Client {
	c.cfg = cfg
	return c
}

// WithCipher searches ciph instead of looking Request.Cipher up in the
// catalog.
func (c *Client) WithCipher(ciph Cipher) *Client {
	c.cipher = ciph
	return c
}

// WithLogger sets the operational logger.
func (c *Client) WithLogger(log *logrus.Entry) *Client {
	c.log = log
	return c
}

// WithProgress draws solver and aggregator progress with f.
func (c *Client) WithProgress(f ProgressFactory) *Client {
	c.progress = f
	return c
}

// WithCatalog records every finished run in cat.
func (c *Client) WithCatalog(cat *Catalog) *Client {
	c.catalog = cat
	return c
}

// WithMetrics writes a Prometheus textfile next to the other artefacts.
func (c *Client) WithMetrics(enabled bool) *Client {
	c.metrics = enabled
	return c
}

// WithWorkers sets the number of trail-pricing workers; 0 uses one per CPU.
func (c *Client) WithWorkers(n int) *Client {
	c.workers = n
	return c
}

// Run solves the Master of req, ranks its α→β connections and, unless req
// asks for connections only, aggregates the hull of the best one.
//
// Args:
//   - ctx: Context for cancellation.
//   - req: Cipher, rounds, mode and artefact directories.
//
// Returns:
//   - Report of the run, error otherwise. Artefacts written before an error
//     are left in place.
func (c *Client) Run(ctx context.Context, req Request) (*Report, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ciph, err := c.resolveCipher(req.Cipher)
	if err != nil {
		return nil, err
	}
	defaults := Request{Mode: ModeDifferential, OutDir: ".", RunID: uuid.NewString()}
	if err := mergo.Merge(&req, defaults); err != nil {
		return nil, fmt.Errorf("failed to fill request defaults: %w", err)
	}
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	analysis := req.Mode.Analysis()
	model, err := solver.BuildSystem(ciph, req.Rounds, analysis)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       req.RunID,
		Cipher:      ciph.Name(),
		Mode:        req.Mode,
		Rounds:      req.Rounds,
		Fingerprint: catalog.Fingerprint(ciph.Name(), analysis.String(), req.Rounds, c.cfg),
		Files:       artefacts(req.OutDir, ciph.Name(), req.Mode, req.Rounds, c.cfg, c.metrics),
	}
	if c.metrics {
		report.Metrics = metrics.New(ciph.Name(), analysis.String())
	}
	log := c.log.WithFields(logrus.Fields{"run": req.RunID, "cipher": ciph.Name(), "mode": string(req.Mode)})

	trace, err := os.Create(report.Files.Trace)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace: %w", err)
	}
	defer trace.Close()
	pruning, err := os.Create(report.Files.Pruning)
	if err != nil {
		return nil, fmt.Errorf("failed to create pruning log: %w", err)
	}
	defer pruning.Close()
	lib := librarian.New(librarian.Options{Trace: trace, Prune: pruning, Logger: log, RunID: req.RunID})

	err = c.search(ctx, req, model, report, lib, log)
	if cerr := lib.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write trace: %w", cerr)
	}
	if err != nil {
		return report, err
	}

	if err := writeResults(report.Files.Results, report, model.NVar); err != nil {
		return report, err
	}
	if report.Metrics != nil {
		if err := report.Metrics.WriteFile(report.Files.Metrics); err != nil {
			return report, fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if c.catalog != nil {
		row := report.row(c.cfg)
		row.FinishedAt = time.Now()
		if err := c.catalog.Record(ctx, row); err != nil {
			return report, err
		}
	}
	log.WithField("results", report.Files.Results).Info("search finished")
	return report, nil
}

func (c *Client) resolveCipher(name string) (cipher.Cipher, error) {
	if c.cipher != nil {
		return c.cipher, nil
	}
	ciph, err := cipher.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cipher: %w", err)
	}
	return ciph, nil
}

// search fills report from the solve, estimate and aggregate stages.
func (c *Client) search(ctx context.Context, req Request, model *solver.Model, report *Report,
	lib *librarian.Librarian, log *logrus.Entry) error {
	solved, err := c.master(ctx, req, model, report, lib, log)
	if err != nil {
		return err
	}
	if err := saveMaster(report.Files, report.Fingerprint, solved.Master); err != nil {
		return err
	}
	report.MasterSize = solved.Master.Size()
	report.Metrics.MasterSize(report.MasterSize)

	est, err := hull.NewEstimator(c.cfg, lib, log).Estimate(solved)
	if err != nil {
		return err
	}
	report.Estimate = est
	if req.Mode == ModeConnections {
		return nil
	}

	agg := hull.NewAggregator(hull.Options{
		Config:    c.cfg,
		Workers:   c.workers,
		Librarian: lib,
		Logger:    log,
		Metrics:   report.Metrics,
		Progress:  c.progress,
	})
	report.Results, err = agg.Run(ctx, solved, est)
	return err
}

// master loads the stored Master from req.InDir when its fingerprint
// matches, and solves from scratch otherwise.
func (c *Client) master(ctx context.Context, req Request, model *solver.Model, report *Report,
	lib *librarian.Librarian, log *logrus.Entry) (*solver.Solved, error) {
	if req.InDir != "" {
		solved, err := loadMaster(req.InDir, report.Files, report.Fingerprint, model)
		if err == nil {
			report.Reused = true
			log.WithField("dir", req.InDir).Info("reusing solved master")
			return solved, nil
		}
		entry := log.WithError(err).WithField("dir", req.InDir)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, errStale) {
			entry.Info("no reusable master, solving")
		} else {
			entry.Warn("stored master is unusable, solving")
		}
	}

	return solver.New(c.cfg, model, solver.Options{
		Librarian: lib,
		Logger:    log,
		Metrics:   report.Metrics,
		Progress:  c.progress,
	}).Solve(ctx)
}

package crhshull

import (
	"fmt"
	"path/filepath"

	"github.com/mahdiidarabi/crhs-hull/internal/catalog"
	"github.com/mahdiidarabi/crhs-hull/internal/config"
)

// Mode is the kind of search a Request runs.
type Mode string

const (
	// ModeDifferential aggregates a differential hull.
	ModeDifferential Mode = "differential"
	// ModeLinear aggregates a linear hull.
	ModeLinear Mode = "linear"
	// ModeConnections solves in differential mode and stops after ranking
	// the α→β connections.
	ModeConnections Mode = "cg"
)

// ParseMode accepts the subcommand names of the CLI.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDifferential, ModeLinear, ModeConnections:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Analysis is the cryptanalysis the Master is built for.
func (m Mode) Analysis() Analysis {
	if m == ModeLinear {
		return Linear
	}
	return Differential
}

// Request describes one search.
type Request struct {
	// Cipher names a catalog cipher. It is ignored when the client was
	// given a cipher with WithCipher.
	Cipher string
	// Mode defaults to ModeDifferential.
	Mode   Mode
	Rounds int
	// OutDir receives the artefacts of the run. It is created if missing
	// and defaults to the working directory.
	OutDir string
	// InDir, if set, is searched for a solved Master of an earlier run with
	// the same fingerprint.
	InDir string
	// RunID tags every record; a random UUID is used when empty.
	RunID string
}

// Artefacts are the files a run writes, all under Request.OutDir.
type Artefacts struct {
	Master      string
	Fingerprint string
	Results     string
	Trace       string
	Pruning     string
	Metrics     string
}

// artefacts names the files of a run. The stem is shared by every search
// that would build the same Master.
func artefacts(dir, cipherName string, mode Mode, rounds int, cfg config.Config, withMetrics bool) Artefacts {
	stem := filepath.Join(dir, fmt.Sprintf("%s_r%d_lim%d_mode%s", cipherName, rounds, cfg.SoftLimit, mode.Analysis()))
	results := stem + "_pp_results.txt"
	if mode == ModeConnections {
		results = stem + "_cg_results.txt"
	}
	a := Artefacts{
		Master:      stem + ".bdd",
		Fingerprint: stem + "_fingerprint.txt",
		Results:     results,
		Trace:       stem + "_trace.txt",
		Pruning:     stem + "_pruning_logg.txt",
	}
	if withMetrics {
		a.Metrics = stem + "_metrics.prom"
	}
	return a
}

// Report is what a finished run produced.
type Report struct {
	RunID       string
	Cipher      string
	Mode        Mode
	Rounds      int
	Fingerprint string
	// Reused is true when the Master was loaded from Request.InDir.
	Reused     bool
	MasterSize int
	Estimate   *Estimate
	// Results holds the extracted and constructed passes; it is empty for
	// ModeConnections.
	Results []Result
	Files   Artefacts
	Metrics *Metrics
}

// Truncated reports whether any pass stopped at its path limit.
func (r *Report) Truncated() bool {
	for _, res := range r.Results {
		if res.Status == LimitReached {
			return true
		}
	}
	return false
}

// row is the catalog entry of the report.
func (r *Report) row(cfg config.Config) catalog.Run {
	run := catalog.Run{
		ID:          r.RunID,
		Cipher:      r.Cipher,
		Mode:        string(r.Mode),
		Rounds:      r.Rounds,
		SoftLimit:   cfg.SoftLimit,
		Fingerprint: r.Fingerprint,
		MasterSize:  r.MasterSize,
		Truncated:   r.Truncated(),
	}
	if r.Estimate != nil {
		run.Connections = len(r.Estimate.Connections)
	}
	for _, res := range r.Results {
		if !res.Found {
			continue
		}
		switch res.Pass {
		case PassExtracted:
			run.ExtractedLog2.Float64, run.ExtractedLog2.Valid = res.HullLog2P, true
		case PassConstructed:
			run.ConstructedLog2.Float64, run.ConstructedLog2.Valid = res.HullLog2P, true
		}
	}
	return run
}

package crhshull

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mahdiidarabi/crhs-hull/internal/shard"
	"github.com/mahdiidarabi/crhs-hull/internal/solver"
)

// errStale means the stored Master was built with other settings.
var errStale = errors.New("stored master has a different fingerprint")

// loadMaster reads a solved Master from dir. files names the artefacts of
// the current run; only their base names are used.
func loadMaster(dir string, files Artefacts, fingerprint string, model *solver.Model) (*solver.Solved, error) {
	stored, err := os.ReadFile(filepath.Join(dir, filepath.Base(files.Fingerprint)))
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}
	if string(bytes.TrimSpace(stored)) != fingerprint {
		return nil, errStale
	}

	f, err := os.Open(filepath.Join(dir, filepath.Base(files.Master)))
	if err != nil {
		return nil, fmt.Errorf("failed to open master: %w", err)
	}
	defer f.Close()
	sys, err := shard.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master: %w", err)
	}
	if len(sys.Shards) != 1 {
		return nil, fmt.Errorf("master dump holds %d shards, want 1", len(sys.Shards))
	}
	return solver.FromMaster(model, sys.Shards[0])
}

// saveMaster writes the Master dump and its fingerprint sidecar.
func saveMaster(files Artefacts, fingerprint string, master *shard.Shard) error {
	f, err := os.Create(files.Master)
	if err != nil {
		return fmt.Errorf("failed to create master dump: %w", err)
	}
	if err := shard.DumpShard(f, master); err != nil {
		f.Close()
		return fmt.Errorf("failed to write master dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write master dump: %w", err)
	}
	if err := os.WriteFile(files.Fingerprint, []byte(fingerprint+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write fingerprint: %w", err)
	}
	return nil
}

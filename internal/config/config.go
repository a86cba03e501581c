// Package config holds the solver configuration. A YAML file may override
// any subset of the defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prune variants.
const (
	PruneV2 = "v2"
	PruneV3 = "v3"
)

// Enumeration modes.
const (
	EnumTargeted     = "targeted"
	EnumSemiTargeted = "semi"
	EnumUnbounded    = "unbounded"
)

// Config is the full set of solver and hull-search knobs.
type Config struct {
	// SoftLimit is the Master size above which pruning starts.
	SoftLimit int `yaml:"soft_limit"`
	// HardLimitExp bounds Master at SoftLimit·2^HardLimitExp; 0 disables.
	HardLimitExp int    `yaml:"hard_limit_exp"`
	PruneVariant string `yaml:"prune_variant"`
	// MaxConnections caps the ranked SESS table.
	MaxConnections int `yaml:"max_connections"`
	// UpperLimit caps the number of inner paths per aggregation pass.
	UpperLimit   int    `yaml:"upper_limit"`
	FIFOCapacity int    `yaml:"fifo_capacity"`
	EnumMode     string `yaml:"enum_mode"`
	// BucketSpan is the number of weights above the α-level NT-LEW kept as
	// α candidates.
	BucketSpan int    `yaml:"bucket_span"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SoftLimit:      1 << 16,
		HardLimitExp:   6,
		PruneVariant:   PruneV3,
		MaxConnections: 1000,
		UpperLimit:     1 << 20,
		FIFOCapacity:   200,
		EnumMode:       EnumTargeted,
		BucketSpan:     2,
		LogLevel:       "info",
	}
}

// Load reads path and merges it over Default. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(raw)
}

// Parse reads the YAML document raw over Default. Keys absent from raw keep
// their default; keys present win even when zero.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the solver cannot run with.
func (c Config) Validate() error {
	switch {
	case c.SoftLimit <= 0:
		return fmt.Errorf("soft_limit must be positive, got %d", c.SoftLimit)
	case c.HardLimitExp < 0 || c.HardLimitExp > 30:
		return fmt.Errorf("hard_limit_exp must be in [0, 30], got %d", c.HardLimitExp)
	case c.PruneVariant != PruneV2 && c.PruneVariant != PruneV3:
		return fmt.Errorf("prune_variant must be %q or %q, got %q", PruneV2, PruneV3, c.PruneVariant)
	case c.MaxConnections <= 0:
		return fmt.Errorf("max_connections must be positive, got %d", c.MaxConnections)
	case c.UpperLimit <= 0:
		return fmt.Errorf("upper_limit must be positive, got %d", c.UpperLimit)
	case c.FIFOCapacity <= 0:
		return fmt.Errorf("fifo_capacity must be positive, got %d", c.FIFOCapacity)
	case c.EnumMode != EnumTargeted && c.EnumMode != EnumSemiTargeted && c.EnumMode != EnumUnbounded:
		return fmt.Errorf("enum_mode %q is not one of targeted, semi, unbounded", c.EnumMode)
	case c.BucketSpan < 0:
		return fmt.Errorf("bucket_span must not be negative, got %d", c.BucketSpan)
	}
	return nil
}

// HardLimit is the Master size that aborts a run, or 0 if disabled.
func (c Config) HardLimit() int {
	if c.HardLimitExp == 0 {
		return 0
	}
	return c.SoftLimit << uint(c.HardLimitExp)
}

// SoftLimitFromExp converts a base-2 exponent to a soft limit.
func SoftLimitFromExp(exp int) int {
	return 1 << uint(exp)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200, cfg.FIFOCapacity)
	assert.Equal(t, (1<<16)<<6, cfg.HardLimit())
}

func TestParse_MergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte("soft_limit: 4096\nprune_variant: v2\n"))
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.SoftLimit)
	assert.Equal(t, PruneV2, cfg.PruneVariant)
	assert.Equal(t, Default().MaxConnections, cfg.MaxConnections)
	assert.Equal(t, Default().EnumMode, cfg.EnumMode)
}

func TestParse_ZeroValuesOverride(t *testing.T) {
	cfg, err := Parse([]byte("hard_limit_exp: 0\nbucket_span: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.HardLimitExp)
	assert.Equal(t, 0, cfg.HardLimit())
	assert.Equal(t, 0, cfg.BucketSpan)
	assert.Equal(t, Default().SoftLimit, cfg.SoftLimit)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("prune_variant: v9\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("soft_limit: [1, 2]\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "solver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upper_limit: 50\nenum_mode: unbounded\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.UpperLimit)
	assert.Equal(t, EnumUnbounded, cfg.EnumMode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSoftLimitFromExp(t *testing.T) {
	assert.Equal(t, 1024, SoftLimitFromExp(10))
}

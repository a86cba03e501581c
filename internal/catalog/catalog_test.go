package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/crhs-hull/internal/config"
)

func TestCatalog_RecordAndList(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{ID: "a", Cipher: "toy16", Mode: "diff", Rounds: 3, SoftLimit: 1024, Fingerprint: "f1",
			MasterSize: 900, Connections: 12, ExtractedLog2: sql.NullFloat64{Float64: 9.5, Valid: true},
			ConstructedLog2: sql.NullFloat64{Float64: 9.25, Valid: true}, FinishedAt: now},
		{ID: "b", Cipher: "toy16", Mode: "lin", Rounds: 4, SoftLimit: 1024, Fingerprint: "f2",
			Connections: 3, Truncated: true, FinishedAt: now.Add(time.Hour)},
		{ID: "c", Cipher: "present", Mode: "diff", Rounds: 2, SoftLimit: 64, Fingerprint: "f3", FinishedAt: now},
	}
	for _, r := range runs {
		require.NoError(t, c.Record(ctx, r))
	}

	got, err := c.List(ctx, "toy16")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Truncated)
	assert.False(t, got[0].ExtractedLog2.Valid)
	assert.Equal(t, runs[0], got[1])

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalog_RecordReplaces(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer c.Close()

	r := Run{ID: "x", Cipher: "gift64", Mode: "diff", Rounds: 2, FinishedAt: time.Now()}
	require.NoError(t, c.Record(ctx, r))
	r.Connections = 7
	require.NoError(t, c.Record(ctx, r))

	got, err := c.List(ctx, "gift64")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Connections)
}

func TestFingerprint(t *testing.T) {
	cfg := config.Default()
	a := Fingerprint("toy16", "diff", 3, cfg)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("toy16", "diff", 3, cfg))
	assert.NotEqual(t, a, Fingerprint("toy16", "lin", 3, cfg))

	cfg.SoftLimit++
	assert.NotEqual(t, a, Fingerprint("toy16", "diff", 3, cfg))

	cfg = config.Default()
	cfg.MaxConnections++
	assert.Equal(t, a, Fingerprint("toy16", "diff", 3, cfg), "hull knobs do not change Master")
}

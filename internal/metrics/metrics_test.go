package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("toy16", "diff")

	m.Absorbed(3)
	m.Absorbed(2)
	m.Pruned(7)
	m.Pruned(1)
	m.MasterSize(42)
	m.Aggregated("extracted", false)
	m.Aggregated("constructed", true)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.absorptions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pruneIterations))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.nodesDeleted))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.masterSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pathsAggregated.WithLabelValues("constructed", "skipped")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Absorbed(1)
		m.Pruned(1)
		m.MasterSize(1)
		m.Aggregated("extracted", true)
	})
}

func TestMetrics_WriteFile(t *testing.T) {
	m := New("present", "lin")
	m.Pruned(4)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `crhs_nodes_deleted_total{cipher="present",mode="lin"} 4`)
}

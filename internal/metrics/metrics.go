// Package metrics counts solver work in a private Prometheus registry that
// can be written out as a node-exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the solver counters. A nil *Metrics ignores every update.
type Metrics struct {
	reg *prometheus.Registry

	absorptions     prometheus.Counter
	pruneIterations prometheus.Counter
	nodesDeleted    prometheus.Counter
	pathsAggregated *prometheus.CounterVec
	masterSize      prometheus.Gauge
}

// New registers the counters in a fresh registry, labelled with the cipher
// and mode of the run.
func New(cipher, mode string) *Metrics {
	labels := prometheus.Labels{"cipher": cipher, "mode": mode}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		absorptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crhs_absorptions_total",
			Help:        "Levels absorbed while resolving linear dependencies",
			ConstLabels: labels,
		}),
		pruneIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crhs_prune_iterations_total",
			Help:        "Iterations of the pruning loop",
			ConstLabels: labels,
		}),
		nodesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "crhs_nodes_deleted_total",
			Help:        "Nodes removed from Master by pruning",
			ConstLabels: labels,
		}),
		pathsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crhs_paths_aggregated_total",
			Help:        "Inner paths consumed by the hull aggregator by pass and outcome",
			ConstLabels: labels,
		}, []string{"pass", "outcome"}),
		masterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "crhs_master_size",
			Help:        "Number of nodes in Master",
			ConstLabels: labels,
		}),
	}
	m.reg.MustRegister(m.absorptions, m.pruneIterations, m.nodesDeleted, m.pathsAggregated, m.masterSize)
	return m
}

// Absorbed adds n absorbed levels.
func (m *Metrics) Absorbed(n int) {
	if m != nil {
		m.absorptions.Add(float64(n))
	}
}

// Pruned records one pruning iteration that deleted n nodes.
func (m *Metrics) Pruned(n int) {
	if m != nil {
		m.pruneIterations.Inc()
		m.nodesDeleted.Add(float64(n))
	}
}

// Aggregated records one inner path of pass; skipped paths are counted apart.
func (m *Metrics) Aggregated(pass string, skipped bool) {
	if m == nil {
		return
	}
	outcome := "binned"
	if skipped {
		outcome = "skipped"
	}
	m.pathsAggregated.WithLabelValues(pass, outcome).Inc()
}

// MasterSize sets the current Master size.
func (m *Metrics) MasterSize(n int) {
	if m != nil {
		m.masterSize.Set(float64(n))
	}
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteFile writes every metric to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

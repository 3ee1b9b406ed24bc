// Package observability wires Prometheus metrics into the engine's
// lifecycle hooks.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	nodeRuns     *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors with reg. Passing
// prometheus.DefaultRegisterer wires the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_node_runs_total",
				Help: "Total number of node executions by type and status",
			},
			[]string{"node_type", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lattice_node_duration_seconds",
				Help: "Duration of node executions",
			},
			[]string{"node_type"},
		),
	}
	reg.MustRegister(m.nodeRuns, m.nodeDuration)
	return m
}

// Hooks returns engine hooks that record the collectors.
func (m *Metrics) Hooks() engine.Hooks {
	return engine.Hooks{
		OnNodeFinish: func(nodeID, nodeType string, status graph.NodeStatus, elapsed time.Duration) {
			m.nodeRuns.WithLabelValues(nodeType, string(status)).Inc()
			m.nodeDuration.WithLabelValues(nodeType).Observe(elapsed.Seconds())
		},
	}
}

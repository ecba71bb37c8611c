// Package metrics holds the Prometheus collectors of the reducer worker.
package metrics

import (
	"time"

	"github.com/canopy-network/liquidityx/pkg/liquidity"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	blocks     *prometheus.CounterVec
	commands   *prometheus.CounterVec
	unresolved prometheus.Counter
	duration   prometheus.Histogram
	height     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidityx_blocks_reduced_total",
			Help: "Blocks reduced, labeled by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liquidityx_commands_total",
			Help: "Set commands emitted, labeled by op.",
		}, []string{"op"}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liquidityx_unresolved_inputs_total",
			Help: "Consumed outputs no source could resolve.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "liquidityx_reduce_duration_seconds",
			Help:    "Time taken to reduce and apply one block.",
			Buckets: prometheus.DefBuckets,
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "liquidityx_reduced_height",
			Help: "Height of the last block reduced.",
		}),
	}
	reg.MustRegister(m.blocks, m.commands, m.unresolved, m.duration, m.height)
	return m
}

// ObserveBlock records a successfully reduced block.
func (m *Metrics) ObserveBlock(height uint64, st liquidity.Stats, took time.Duration) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues("ok").Inc()
	m.commands.WithLabelValues("add").Add(float64(st.Added))
	m.commands.WithLabelValues("remove").Add(float64(st.Removed))
	m.unresolved.Add(float64(st.Unresolved))
	m.duration.Observe(took.Seconds())
	m.height.Set(float64(height))
}

func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues("error").Inc()
}

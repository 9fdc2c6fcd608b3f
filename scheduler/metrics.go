package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instrumentation for the tick loop, mirroring
// the shape of a typical engine metrics struct: one registerer, counters
// for discrete events, a gauge for point-in-time state, and a histogram
// for latency.
type Metrics struct {
	ticksTotal           prometheus.Counter
	nodeErrorsTotal       *prometheus.CounterVec
	stageActivationsTotal *prometheus.CounterVec
	activeNodes          prometheus.Gauge
	tickLatency          prometheus.Histogram
}

// NewMetrics registers the scheduler's metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with a global
// default registerer across parallel test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "arc",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks executed.",
		}),
		nodeErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Subsystem: "scheduler",
			Name:      "node_errors_total",
			Help:      "Total number of non-fatal errors reported by node Next calls, by node key.",
		}, []string{"node"}),
		stageActivationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arc",
			Subsystem: "scheduler",
			Name:      "stage_activations_total",
			Help:      "Total number of stage transitions, by sequence key.",
		}, []string{"sequence"}),
		activeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "arc",
			Subsystem: "scheduler",
			Name:      "active_nodes",
			Help:      "Number of nodes dispatched during the most recent tick.",
		}),
		tickLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arc",
			Subsystem: "scheduler",
			Name:      "tick_latency_seconds",
			Help:      "Wall-clock duration of a single scheduler tick.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) recordTick(dispatched int, latencySeconds float64) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.activeNodes.Set(float64(dispatched))
	m.tickLatency.Observe(latencySeconds)
}

func (m *Metrics) recordNodeError(nodeKey string) {
	if m == nil {
		return
	}
	m.nodeErrorsTotal.WithLabelValues(nodeKey).Inc()
}

func (m *Metrics) recordStageActivation(sequenceKey string) {
	if m == nil {
		return
	}
	m.stageActivationsTotal.WithLabelValues(sequenceKey).Inc()
}

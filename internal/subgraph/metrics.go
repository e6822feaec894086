package subgraph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records subgraph query counts and latency per network.
type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers subgraph collectors on reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "subgraph",
			Name:      "queries_total",
			Help:      "Subgraph queries by network and outcome.",
		}, []string{"network", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "analytics",
			Subsystem: "subgraph",
			Name:      "query_duration_seconds",
			Help:      "Subgraph query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"network"}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.duration)
	}
	return m
}

func (m *Metrics) observe(network string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queries.WithLabelValues(network, outcome).Inc()
	m.duration.WithLabelValues(network).Observe(elapsed.Seconds())
}

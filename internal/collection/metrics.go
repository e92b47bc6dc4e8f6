package collection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded by Metrics.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Metrics records fetch outcomes for every synchroniser sharing it.
type Metrics struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collection collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketdesk",
			Subsystem: "collection",
			Name:      "fetches_total",
			Help:      "List fetches by resource and outcome (applied, stale, failed).",
		}, []string{"resource", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketdesk",
			Subsystem: "collection",
			Name:      "fetch_seconds",
			Help:      "List fetch latency by resource.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.duration)
	}
	return m
}

func (m *Metrics) observe(resource, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, outcome).Inc()
	m.duration.WithLabelValues(resource).Observe(took.Seconds())
}

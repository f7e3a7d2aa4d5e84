package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/timeline/internal/domain/model"
)

// Metrics holds the Prometheus collectors for session gating. A nil *Metrics
// records nothing.
type Metrics struct {
	decisions    *prometheus.CounterVec
	verification *prometheus.HistogramVec
}

// NewMetrics creates the session collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timeline",
			Subsystem: "session",
			Name:      "decisions_total",
			Help:      "Settled session guard decisions by outcome and reason.",
		}, []string{"decision", "reason"}),
		verification: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timeline",
			Subsystem: "session",
			Name:      "verification_seconds",
			Help:      "Latency of credential verification calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.decisions, m.verification)
	return m
}

func (m *Metrics) recordDecision(decision model.SessionDecision, reason model.Reason) {
	if m == nil {
		return
	}
	label := string(reason)
	if label == "" {
		label = "none"
	}
	m.decisions.WithLabelValues(string(decision), label).Inc()
}

func (m *Metrics) observeVerification(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verification.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

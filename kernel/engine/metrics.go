package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeAcknowledged = "acknowledged"
	outcomeConflict     = "conflict"
	outcomeError        = "error"
)

type Metrics struct {
	deletions *prometheus.CounterVec
	duration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelctl_deletions_total",
			Help: "Trained model deletion requests by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "modelctl_deletion_duration_seconds",
			Help:    "Time taken to handle a trained model deletion request.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observe(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeAcknowledged
	if err != nil {
		outcome = outcomeError
		if IsConflict(err) {
			outcome = outcomeConflict
		}
	}
	m.deletions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

package passbridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatchMetrics counts dispatch outcomes.
type DispatchMetrics struct {
	Stages          *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	SignDuration    prometheus.Histogram
}

// NewDispatchMetrics registers the dispatch collectors with reg. A nil reg
// uses the default registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &DispatchMetrics{
		Stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passbridge_dispatch_tokens_total",
			Help: "Save tokens issued, by the fallback stage that produced them",
		}, []string{"stage", "prefix"}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passbridge_dispatch_persist_failures_total",
			Help: "Remote class or object persistence failures during dispatch",
		}, []string{"resource", "prefix"}),
		SignDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "passbridge_dispatch_sign_duration_seconds",
			Help:    "Duration of save token signing",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *DispatchMetrics) incrementStage(stage dispatchStage, prefix string) {
	if m == nil {
		return
	}
	m.Stages.WithLabelValues(stage.String(), prefix).Inc()
}

func (m *DispatchMetrics) incrementPersistFailure(resource, prefix string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(resource, prefix).Inc()
}

func (m *DispatchMetrics) observeSign(start time.Time) {
	if m == nil {
		return
	}
	m.SignDuration.Observe(time.Since(start).Seconds())
}

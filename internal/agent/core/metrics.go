package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors updated by the orchestrator. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageWarnings *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	bucketed      *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "learnpath",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent in each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		stageWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnpath",
			Name:      "stage_warnings_total",
			Help:      "Warnings emitted by each pipeline stage.",
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnpath",
			Name:      "stage_failures_total",
			Help:      "Stage executions aborted by an error.",
		}, []string{"stage"}),
		bucketed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnpath",
			Name:      "programs_bucketed_total",
			Help:      "Programs placed into each result bucket.",
		}, []string{"bucket"}),
	}
	for _, c := range []prometheus.Collector{m.stageDuration, m.stageWarnings, m.stageFailures, m.bucketed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(rec AuditRecord) {
	if m == nil {
		return
	}
	stage := string(rec.AgentName)
	m.stageDuration.WithLabelValues(stage).Observe(rec.EndedAt.Sub(rec.StartedAt).Seconds())
	if n := len(rec.Warnings); n > 0 {
		m.stageWarnings.WithLabelValues(stage).Add(float64(n))
	}
	for bucket, n := range rec.Summary.BucketCounts {
		m.bucketed.WithLabelValues(string(bucket)).Add(float64(n))
	}
}

func (m *Metrics) observeFailure(stage Stage) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(string(stage)).Inc()
}

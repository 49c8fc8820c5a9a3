package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StepMetrics records step attempts by outcome and their durations
type StepMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	jobs     *prometheus.CounterVec
}

// NewStepMetrics registers the pipeline metrics on reg
func NewStepMetrics(reg prometheus.Registerer) *StepMetrics {
	factory := promauto.With(reg)
	return &StepMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_step_runs_total",
			Help: "Step attempts by step and outcome (completed, errored, rejected)",
		}, []string{"step", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "narrator_step_duration_seconds",
			Help:    "Wall time of step attempts that ran",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"step"}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "narrator_jobs_total",
			Help: "Processed jobs by result (succeeded, failed)",
		}, []string{"result"}),
	}
}

// ObserveStep counts one step attempt. Rejected attempts never ran and carry no duration.
func (m *StepMetrics) ObserveStep(step, outcome string, elapsed time.Duration) {
	m.runs.WithLabelValues(step, outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(step).Observe(elapsed.Seconds())
	}
}

// ObserveJob counts one finished job
func (m *StepMetrics) ObserveJob(err error) {
	result := "succeeded"
	if err != nil {
		result = "failed"
	}
	m.jobs.WithLabelValues(result).Inc()
}

package switcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow run results.
const (
	ResultSuccess  = "success"
	ResultDegraded = "degraded"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
)

// Metrics records workflow outcomes.
type Metrics interface {
	IncRuns(workflow, result string)
	ObserveStep(state State, d time.Duration)
}

type promMetrics struct {
	runs  *prometheus.CounterVec
	steps *prometheus.HistogramVec
}

// NewMetrics registers the switch collectors with reg. A nil reg returns
// a no-op implementation.
func NewMetrics(reg prometheus.Registerer) Metrics {
	if reg == nil {
		return NopMetrics()
	}
	factory := promauto.With(reg)
	return &promMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "antigravity_agent",
			Name:      "switch_runs_total",
			Help:      "Total number of switch workflow runs by result",
		}, []string{"workflow", "result"}),
		steps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "antigravity_agent",
			Name:      "switch_step_duration_seconds",
			Help:      "Duration of switch workflow steps in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
}

func (m *promMetrics) IncRuns(workflow, result string) {
	m.runs.WithLabelValues(workflow, result).Inc()
}

func (m *promMetrics) ObserveStep(state State, d time.Duration) {
	m.steps.WithLabelValues(state.String()).Observe(d.Seconds())
}

type noopMetrics struct{}

func (noopMetrics) IncRuns(_, _ string)                  {}
func (noopMetrics) ObserveStep(_ State, _ time.Duration) {}

// NopMetrics discards everything.
func NopMetrics() Metrics {
	return noopMetrics{}
}

package batch

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the batch runner's progress and cost as Prometheus
// gauges/counters, grounded on the teacher's internal/observability.Metrics
// (trimmed to what a batch run of tasks actually emits).
type Metrics struct {
	TasksRunning   prometheus.Gauge
	TasksCompleted *prometheus.CounterVec // labels: resolved (true|false)
	TokensUsed     *prometheus.CounterVec // labels: kind (input|output)
	CostUSD        prometheus.Counter
	RunDuration    prometheus.Histogram
}

// NewMetrics registers a fresh set of batch-runner metrics on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		TasksRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agent_verify_batch_tasks_running",
			Help: "Number of tasks currently executing in the batch runner's worker pool.",
		}),
		TasksCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_verify_batch_tasks_completed_total",
			Help: "Completed tasks by resolution outcome.",
		}, []string{"resolved"}),
		TokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_verify_batch_tokens_total",
			Help: "Cumulative tokens consumed across the batch run.",
		}, []string{"kind"}),
		CostUSD: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_verify_batch_cost_usd_total",
			Help: "Cumulative estimated model cost in USD across the batch run.",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_verify_batch_task_duration_seconds",
			Help:    "Wall-clock duration of a single task run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics (§11).
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

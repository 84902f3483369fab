// Package metrics exposes Prometheus instrumentation for runs, stages, and
// retention sweeps. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sweep actions reported by Recorder.Swept.
const (
	ActionSoftDeleted = "soft_deleted"
	ActionPurged      = "purged"
	ActionReaped      = "reaped"
)

// Recorder owns a private registry and the runtime's collectors.
type Recorder struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	sweeps        *prometheus.CounterVec
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainn",
			Name:      "runs_total",
			Help:      "Finished agent runs by terminal status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rainn",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of executed stages, model call included.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainn",
			Name:      "sweep_total",
			Help:      "Runs affected by retention sweeps by action.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.runs,
		r.stageDuration,
		r.sweeps,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RunFinished counts a run that reached a terminal status.
func (r *Recorder) RunFinished(status string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(status).Inc()
}

// StageFinished observes the duration of one executed stage.
func (r *Recorder) StageFinished(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Swept adds n affected runs for a sweep action.
func (r *Recorder) Swept(action string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sweeps.WithLabelValues(action).Add(float64(n))
}

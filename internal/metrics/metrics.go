// Package metrics counts step outcomes and durations.
//
// A [Recorder] is handed to the lifecycle executor as its observer. After a
// plan the CLI writes the registry to a node-exporter textfile so a host
// scraper can pick the numbers up without sunbeam serving HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sunbeam/internal/step"
)

// Recorder holds the step metrics of one process.
type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sunbeam_step_results_total",
				Help: "Total number of executed steps by step name and result.",
			},
			[]string{"step", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sunbeam_step_duration_seconds",
				Help:    "Duration of steps by step name in seconds.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
			},
			[]string{"step"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sunbeam_plan_last_run_timestamp_seconds",
				Help: "Unix time of the last run of a plan by plan name and outcome.",
			},
			[]string{"plan", "result"},
		),
	}
	r.registry.MustRegister(r.outcomes, r.duration, r.lastRun)
	return r
}

// Registry returns the registry holding the step metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep counts the step result. Skipped steps carry no duration.
func (r *Recorder) ObserveStep(name string, result step.Result, elapsed time.Duration) {
	r.outcomes.WithLabelValues(name, result.Type.String()).Inc()
	if !result.IsSkipped() {
		r.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}

// ObservePlan records when a plan last finished and whether it failed.
func (r *Recorder) ObservePlan(name string, err error, at time.Time) {
	result := "completed"
	if err != nil {
		result = "failed"
	}
	r.lastRun.WithLabelValues(name, result).Set(float64(at.Unix()))
}

// WriteToTextfile writes the registry in the text exposition format to path,
// replacing the file atomically. An empty path is a no-op.
func (r *Recorder) WriteToTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

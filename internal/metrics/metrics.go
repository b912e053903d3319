// Package metrics counts what sync runs do, on a private Prometheus
// registry. A run is a short-lived process, so instead of serving an
// endpoint the registry is written to a node-exporter textfile after each
// run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
)

const namespace = "rowsync"

// Recorder implements engine.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	warnings *prometheus.CounterVec
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

var _ engine.Recorder = (*Recorder)(nil)

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records loaded by entity and outcome.",
		}, []string{"entity", "outcome"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Row-level warnings by entity.",
		}, []string{"entity"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_attempts_total",
			Help:      "Source reads, retries included, by entity.",
		}, []string{"entity"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Duration of one entity process.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"entity"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by mode and final status.",
		}, []string{"mode", "status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.records, r.warnings, r.attempts, r.duration, r.runs, r.lastRun)
	return r
}

// Registry exposes the registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveProcess implements engine.Recorder.
func (r *Recorder) ObserveProcess(rep pipeline.Report) {
	load := rep.Load
	for outcome, n := range map[model.Outcome]int{
		model.OutcomeCreated:   load.Created,
		model.OutcomeUpdated:   load.Updated,
		model.OutcomeUnchanged: load.Unchanged,
		model.OutcomeFailed:    load.Failed,
		model.OutcomeRemoved:   load.Removed,
	} {
		if n > 0 {
			r.records.WithLabelValues(rep.Entity, string(outcome)).Add(float64(n))
		}
	}
	if n := len(rep.Warnings); n > 0 {
		r.warnings.WithLabelValues(rep.Entity).Add(float64(n))
	}
	r.attempts.WithLabelValues(rep.Entity).Add(float64(rep.Attempts))
	r.duration.WithLabelValues(rep.Entity).Observe(rep.Duration.Seconds())
}

// ObserveRun implements engine.Recorder.
func (r *Recorder) ObserveRun(sum engine.Summary) {
	r.runs.WithLabelValues(string(sum.Mode), string(sum.Status)).Inc()
	r.lastRun.Set(float64(sum.StartedAt.Add(sum.Duration).Unix()))
}

// WriteTextfile writes the registry in the text exposition format. The
// write is atomic, so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

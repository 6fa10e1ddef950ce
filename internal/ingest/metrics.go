// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run outcomes on a private registry so a one-shot run can
// write them to a node_exporter textfile.
type Metrics struct {
	reg *prometheus.Registry

	runs        *prometheus.CounterVec
	newPapers   prometheus.Counter
	skipped     prometheus.Counter
	degraded    prometheus.Counter
	failed      prometheus.Counter
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics creates and registers the ingestion metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magpie_ingest_runs_total",
			Help: "Ingestion runs by final state.",
		}, []string{"state"}),
		newPapers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magpie_ingest_new_papers_total",
			Help: "Papers inserted into the store.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magpie_ingest_skipped_papers_total",
			Help: "Candidates skipped because they were already stored.",
		}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magpie_ingest_degraded_papers_total",
			Help: "Inserted papers carrying at least one placeholder summary.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magpie_ingest_failed_candidates_total",
			Help: "Candidates dropped without being stored.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "magpie_ingest_last_run_duration_seconds",
			Help: "Wall-clock duration of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "magpie_ingest_last_success_timestamp_seconds",
			Help: "Unix time of the last run that reached the done state.",
		}),
	}
	m.reg.MustRegister(m.runs, m.newPapers, m.skipped, m.degraded, m.failed, m.duration, m.lastSuccess)
	return m
}

// Observe adds the counts of res.
func (m *Metrics) Observe(res RunResult) {
	m.runs.WithLabelValues(res.State.String()).Inc()
	m.newPapers.Add(float64(res.NewPapers))
	m.skipped.Add(float64(res.Skipped))
	m.degraded.Add(float64(res.Degraded))
	m.failed.Add(float64(res.Failed))
	m.duration.Set(res.Duration.Seconds())
	if res.State == StateDone {
		m.lastSuccess.SetToCurrentTime()
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteFile writes the metrics to path in the Prometheus text format. The
// file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

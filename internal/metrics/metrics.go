// Package metrics provides Prometheus metrics for linksync passes.
//
// linksync is not a server, so metrics are written to a node-exporter
// textfile after every pass instead of being scraped. Counters and the
// histogram live as long as the process, so they only accumulate under
// watch; a one-shot sync starts them from zero. The linksync_last_pass_*
// gauges describe the most recent pass in either mode.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ning0612/linksync/internal/domain"
)

// Recorder owns a private registry holding the pass metrics
type Recorder struct {
	registry *prometheus.Registry

	passesTotal     *prometheus.CounterVec
	filesLinked     prometheus.Counter
	filesSkipped    *prometheus.CounterVec
	passDuration    prometheus.Histogram
	cacheEntries    prometheus.Gauge
	lastSuccessTime prometheus.Gauge

	lastPassSuccess  prometheus.Gauge
	lastPassTime     prometheus.Gauge
	lastPassDuration prometheus.Gauge
	lastPassLinked   prometheus.Gauge
	lastPassSkipped  *prometheus.GaugeVec
}

// NewRecorder creates a recorder with all metrics registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		passesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_passes_total",
				Help: "Total number of synchronization passes",
			},
			[]string{"status"},
		),

		filesLinked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "linksync_files_linked_total",
				Help: "Total number of source files linked",
			},
		),

		filesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_files_skipped_total",
				Help: "Total number of source files left alone",
			},
			[]string{"reason"},
		),

		passDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linksync_pass_duration_seconds",
				Help:    "Synchronization pass duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_cache_entries",
				Help: "Number of files recorded in the link cache",
			},
		),

		lastSuccessTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_last_success_timestamp_seconds",
				Help: "Unix time of the last successful pass",
			},
		),

		lastPassSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_last_pass_success",
				Help: "1 if the most recent pass succeeded, 0 otherwise",
			},
		),

		lastPassTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_last_pass_timestamp_seconds",
				Help: "Unix time the most recent pass finished",
			},
		),

		lastPassDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_last_pass_duration_seconds",
				Help: "Duration of the most recent pass in seconds",
			},
		),

		lastPassLinked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksync_last_pass_files_linked",
				Help: "Source files linked by the most recent pass",
			},
		),

		lastPassSkipped: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "linksync_last_pass_files_skipped",
				Help: "Source files left alone by the most recent pass",
			},
			[]string{"reason"},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PassResult summarizes one pass for recording
type PassResult struct {
	Success      bool
	Duration     time.Duration
	Finished     time.Time
	Linked       int
	Skipped      map[domain.SkipReason]int
	CacheEntries int
	CacheEnabled bool
}

// RecordPass records the outcome of one pass
func (r *Recorder) RecordPass(res PassResult) {
	status := "success"
	if !res.Success {
		status = "failed"
	}
	r.passesTotal.WithLabelValues(status).Inc()
	r.passDuration.Observe(res.Duration.Seconds())
	r.filesLinked.Add(float64(res.Linked))
	for reason, n := range res.Skipped {
		r.filesSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}

	r.lastPassTime.Set(float64(res.Finished.Unix()))
	r.lastPassDuration.Set(res.Duration.Seconds())
	r.lastPassLinked.Set(float64(res.Linked))
	r.lastPassSkipped.Reset()
	for reason, n := range res.Skipped {
		r.lastPassSkipped.WithLabelValues(string(reason)).Set(float64(n))
	}

	if res.Success {
		r.lastPassSuccess.Set(1)
		r.lastSuccessTime.Set(float64(res.Finished.Unix()))
		if res.CacheEnabled {
			r.cacheEntries.Set(float64(res.CacheEntries))
		}
	} else {
		r.lastPassSuccess.Set(0)
	}
}

// WriteTextfile writes all metrics to path in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

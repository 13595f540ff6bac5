// Package metrics wraps Prometheus collectors for the execution core:
// one struct owning a registry plus counters/histograms/gauges, with a
// no-op-safe nil receiver pattern so callers can pass a nil *Recorder
// in tests without special-casing every call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes the execution core's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	actionBatchesTotal       *prometheus.CounterVec
	verificationBatchesTotal *prometheus.CounterVec
	navigationsTotal         *prometheus.CounterVec
	navigationDuration       prometheus.Histogram
	pathfinderDuration       prometheus.Histogram
	pathfinderPathLength     prometheus.Histogram

	tasksActive       *prometheus.GaugeVec
	devicesLocked     prometheus.Gauge
	campaignsTotal    *prometheus.CounterVec
}

// New registers and returns a Recorder backed by a fresh registry.
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		actionBatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "action_batches_total", Help: "Action batches executed, by outcome.",
		}, []string{"success"}),
		verificationBatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_batches_total", Help: "Verification batches executed, by outcome.",
		}, []string{"success"}),
		navigationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "navigations_total", Help: "Navigations executed, by outcome.",
		}, []string{"success"}),
		navigationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "navigation_duration_ms", Help: "Navigation wall time in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		pathfinderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pathfinder_duration_ms", Help: "Shortest-path lookup time in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		pathfinderPathLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pathfinder_path_length", Help: "Hop count of returned paths.",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		}),
		tasksActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tasks_active", Help: "Tasks currently tracked, by status.",
		}, []string{"status"}),
		devicesLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "devices_locked", Help: "Device locks currently held.",
		}),
		campaignsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "campaigns_total", Help: "Campaign executions, by outcome.",
		}, []string{"success"}),
	}
	reg.MustRegister(
		r.actionBatchesTotal, r.verificationBatchesTotal, r.navigationsTotal,
		r.navigationDuration, r.pathfinderDuration, r.pathfinderPathLength,
		r.tasksActive, r.devicesLocked, r.campaignsTotal,
	)
	return r
}

// Handler returns an http.Handler serving this Recorder's registry in
// the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (r *Recorder) RecordActionBatch(success bool, n int) {
	if r == nil {
		return
	}
	r.actionBatchesTotal.WithLabelValues(boolLabel(success)).Inc()
}

func (r *Recorder) RecordVerificationBatch(success bool) {
	if r == nil {
		return
	}
	r.verificationBatchesTotal.WithLabelValues(boolLabel(success)).Inc()
}

func (r *Recorder) RecordNavigation(success bool, durationMS int64) {
	if r == nil {
		return
	}
	r.navigationsTotal.WithLabelValues(boolLabel(success)).Inc()
	r.navigationDuration.Observe(float64(durationMS))
}

func (r *Recorder) RecordPathfind(durationMS float64, pathLength int) {
	if r == nil {
		return
	}
	r.pathfinderDuration.Observe(durationMS)
	r.pathfinderPathLength.Observe(float64(pathLength))
}

func (r *Recorder) SetTasksActive(status string, n int) {
	if r == nil {
		return
	}
	r.tasksActive.WithLabelValues(status).Set(float64(n))
}

func (r *Recorder) SetDevicesLocked(n int) {
	if r == nil {
		return
	}
	r.devicesLocked.Set(float64(n))
}

func (r *Recorder) RecordCampaign(success bool) {
	if r == nil {
		return
	}
	r.campaignsTotal.WithLabelValues(boolLabel(success)).Inc()
}

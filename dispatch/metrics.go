/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Execution statuses used as label values.
const (
	ExecutionStatusOK     = "ok"
	ExecutionStatusFailed = "failed"
)

// DefaultDurationBuckets is the default set of buckets for duration histograms (in seconds).
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// MetricsCollector represents a collector of metrics for Dispatcher.
type MetricsCollector interface {
	// SetPendingItems sets the current number of items waiting for admission.
	SetPendingItems(n int)
	// IncSubmitted increments the total number of accepted submissions.
	IncSubmitted()
	// IncRejected increments the total number of submissions rejected because the dispatcher is stopped.
	IncRejected()
	// ObserveAdmission registers an admission and the time the item spent in the queue.
	ObserveAdmission(queueWait time.Duration)
	// ObserveExecution registers a finished Executor call.
	ObserveExecution(duration time.Duration, failed bool)
	// AddDiscarded increments the total number of pending items discarded on stop.
	AddDiscarded(n int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets for the queue wait and execution duration histograms.
	DurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for Dispatcher.
type PrometheusMetrics struct {
	PendingItems      prometheus.Gauge
	SubmittedTotal    prometheus.Counter
	RejectedTotal     prometheus.Counter
	AdmittedTotal     prometheus.Counter
	DiscardedTotal    prometheus.Counter
	QueueWait         prometheus.Histogram
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultDurationBuckets
	}
	return &PrometheusMetrics{
		PendingItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_pending_items",
			Help:        "Number of items waiting for admission.",
			ConstLabels: opts.ConstLabels,
		}),
		SubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_submitted_total",
			Help:        "Number of accepted submissions.",
			ConstLabels: opts.ConstLabels,
		}),
		RejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_rejected_total",
			Help:        "Number of submissions rejected after the dispatcher was stopped.",
			ConstLabels: opts.ConstLabels,
		}),
		AdmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_admitted_total",
			Help:        "Number of admitted items.",
			ConstLabels: opts.ConstLabels,
		}),
		DiscardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_discarded_total",
			Help:        "Number of pending items discarded on stop.",
			ConstLabels: opts.ConstLabels,
		}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_queue_wait_seconds",
			Help:        "Time items spent in the queue before admission.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}),
		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_executions_total",
			Help:        "Number of finished executor calls.",
			ConstLabels: opts.ConstLabels,
		}, []string{"status"}),
		ExecutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "dispatch_execution_duration_seconds",
			Help:        "Duration of executor calls.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pm.PendingItems,
		pm.SubmittedTotal,
		pm.RejectedTotal,
		pm.AdmittedTotal,
		pm.DiscardedTotal,
		pm.QueueWait,
		pm.ExecutionsTotal,
		pm.ExecutionDuration,
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

// SetPendingItems sets the current number of items waiting for admission.
func (pm *PrometheusMetrics) SetPendingItems(n int) {
	pm.PendingItems.Set(float64(n))
}

// IncSubmitted increments the total number of accepted submissions.
func (pm *PrometheusMetrics) IncSubmitted() {
	pm.SubmittedTotal.Inc()
}

// IncRejected increments the total number of rejected submissions.
func (pm *PrometheusMetrics) IncRejected() {
	pm.RejectedTotal.Inc()
}

// ObserveAdmission registers an admission and the time the item spent in the queue.
func (pm *PrometheusMetrics) ObserveAdmission(queueWait time.Duration) {
	pm.AdmittedTotal.Inc()
	pm.QueueWait.Observe(queueWait.Seconds())
}

// ObserveExecution registers a finished Executor call.
func (pm *PrometheusMetrics) ObserveExecution(duration time.Duration, failed bool) {
	status := ExecutionStatusOK
	if failed {
		status = ExecutionStatusFailed
	}
	pm.ExecutionsTotal.WithLabelValues(status).Inc()
	pm.ExecutionDuration.Observe(duration.Seconds())
}

// AddDiscarded increments the total number of discarded items.
func (pm *PrometheusMetrics) AddDiscarded(n int) {
	pm.DiscardedTotal.Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetPendingItems(int)                  {}
func (disabledMetrics) IncSubmitted()                        {}
func (disabledMetrics) IncRejected()                         {}
func (disabledMetrics) ObserveAdmission(time.Duration)       {}
func (disabledMetrics) ObserveExecution(time.Duration, bool) {}
func (disabledMetrics) AddDiscarded(int)                     {}

var disabledMetricsCollector = disabledMetrics{}

// MustRegisterMetrics implements service.MetricsRegisterer interface.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	pm.MustRegister()
}

// UnregisterMetrics implements service.MetricsRegisterer interface.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	pm.Unregister()
}

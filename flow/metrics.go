package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for engine execution.
//
// Metrics exposed (all namespaced "gaiaflow_"):
//
//  1. inflight_nodes (gauge): nodes currently executing.
//  2. step_latency_ms (histogram): node execution duration in milliseconds.
//     Labels: node_id, status (success/error/timeout).
//     Buckets: 1ms to 10s.
//  3. node_retries_total (counter): retry attempts per node.
//     Labels: node_id.
//  4. branch_merges_total (counter): completed fan-out merges.
//  5. store_errors_total (counter): failed step/checkpoint writes.
//
// All methods are safe on a nil *Metrics, so engine code records
// unconditionally and metrics stay opt-in.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	engine, err := flow.New(reducer, st, emitter,
//	    flow.WithMetrics(flow.NewMetrics(registry)),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	inflight     prometheus.Gauge
	stepLatency  *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	branchMerges prometheus.Counter
	storeErrors  prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the provided
// Prometheus registry. A nil registry falls back to the default global
// registerer; a dedicated registry is recommended for isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	m := &Metrics{}

	m.inflight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "gaiaflow",
		Name:      "inflight_nodes",
		Help:      "Current number of workflow nodes executing",
	})

	m.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gaiaflow",
		Name:      "step_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}, // 1ms to 10s
	}, []string{"node_id", "status"}) // status: success, error, timeout

	m.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaiaflow",
		Name:      "node_retries_total",
		Help:      "Cumulative count of node retry attempts",
	}, []string{"node_id"})

	m.branchMerges = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "gaiaflow",
		Name:      "branch_merges_total",
		Help:      "Completed fan-out branch merges",
	})

	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "gaiaflow",
		Name:      "store_errors_total",
		Help:      "Failed persistence operations",
	})

	return m
}

// NodeStarted increments the inflight node gauge.
func (m *Metrics) NodeStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// NodeFinished decrements the inflight node gauge.
func (m *Metrics) NodeFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

// ObserveStep records the execution duration of a node.
// Status is one of "success", "error", "timeout".
func (m *Metrics) ObserveStep(nodeID string, d time.Duration, status string) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(nodeID, status).Observe(float64(d.Milliseconds()))
}

// ObserveRetry increments the retry counter for a node.
func (m *Metrics) ObserveRetry(nodeID string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(nodeID).Inc()
}

// ObserveBranchMerge increments the fan-out merge counter.
func (m *Metrics) ObserveBranchMerge() {
	if m == nil {
		return
	}
	m.branchMerges.Inc()
}

// ObserveStoreError increments the persistence failure counter.
func (m *Metrics) ObserveStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

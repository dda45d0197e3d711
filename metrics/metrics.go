// Package metrics records orchestration metrics. Recorder is the narrow
// interface used by the engine, prober and enricher; Prometheus is the
// production implementation and NoOp the default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives orchestration measurements.
type Recorder interface {
	// ObserveRequest counts a request by the path it took ("action" or "generate").
	ObserveRequest(path string)
	// ObserveBackendCall records one cascade attempt.
	ObserveBackendCall(backend string, dur time.Duration, success bool)
	// ObserveProbe records a liveness probe outcome.
	ObserveProbe(backend string, available bool)
	// ObserveFallback counts replies produced by the rule-based responder.
	ObserveFallback()
	// ObserveAction records an executed action.
	ObserveAction(actionType string, success bool)
	// ObserveEnrichmentFailure counts an omitted enrichment source.
	ObserveEnrichmentFailure(source string)
}

// NoOp discards all measurements.
type NoOp struct{}

func (NoOp) ObserveRequest(string) {}
func (NoOp) ObserveBackendCall(string, time.Duration, bool) {}
func (NoOp) ObserveProbe(string, bool) {}
func (NoOp) ObserveFallback() {}
func (NoOp) ObserveAction(string, bool) {}
func (NoOp) ObserveEnrichmentFailure(string) {}

// OrNoOp returns r, or NoOp when r is nil.
func OrNoOp(r Recorder) Recorder {
	if r == nil {
		return NoOp{}
	}
	return r
}

// Config configures the Prometheus recorder.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Namespace prefixes every metric name.
	Namespace string

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:      "chatcore",
		LatencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// Prometheus exports orchestration metrics in Prometheus format.
type Prometheus struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	probes          *prometheus.CounterVec
	fallbacks       prometheus.Counter
	actions         *prometheus.CounterVec
	enrichmentFails *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates a recorder registered on its own (or the supplied) registry.
func NewPrometheus(cfg Config) *Prometheus {
	def := DefaultConfig()
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = def.LatencyBuckets
	}
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	p := &Prometheus{registry: registry}

	p.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "requests_total",
			Help:      "Total number of chat requests by path",
		},
		[]string{"path"},
	)
	p.backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "backend_calls_total",
			Help:      "Total number of generation calls per backend",
		},
		[]string{"backend", "status"},
	)
	p.backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "backend_latency_seconds",
			Help:      "Generation call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"backend"},
	)
	p.probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "backend_probes_total",
			Help:      "Total number of backend liveness probes",
		},
		[]string{"backend", "result"},
	)
	p.fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "fallback_responses_total",
			Help:      "Replies produced by the rule-based responder after backend exhaustion",
		},
	)
	p.actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "actions_total",
			Help:      "Total number of executed actions",
		},
		[]string{"type", "status"},
	)
	p.enrichmentFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "enrichment_failures_total",
			Help:      "Enrichment sources omitted because they failed or timed out",
		},
		[]string{"source"},
	)

	registry.MustRegister(
		p.requests,
		p.backendCalls,
		p.backendLatency,
		p.probes,
		p.fallbacks,
		p.actions,
		p.enrichmentFails,
	)
	return p
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler returns an HTTP handler serving the registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) ObserveRequest(path string) {
	p.requests.WithLabelValues(path).Inc()
}

func (p *Prometheus) ObserveBackendCall(backend string, dur time.Duration, success bool) {
	p.backendCalls.WithLabelValues(backend, status(success)).Inc()
	p.backendLatency.WithLabelValues(backend).Observe(dur.Seconds())
}

func (p *Prometheus) ObserveProbe(backend string, available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	p.probes.WithLabelValues(backend, result).Inc()
}

func (p *Prometheus) ObserveFallback() { p.fallbacks.Inc() }

func (p *Prometheus) ObserveAction(actionType string, success bool) {
	p.actions.WithLabelValues(actionType, status(success)).Inc()
}

func (p *Prometheus) ObserveEnrichmentFailure(source string) {
	p.enrichmentFails.WithLabelValues(source).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Package metrics exports enrichment metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

const namespace = "enrich"

// Exporter records attempt, provider job and circuit metrics.
type Exporter struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	storageFailures prometheus.Counter

	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	circuitState *prometheus.GaugeVec
	webhooks     *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use. Nil creates a new one.
	Registry *prometheus.Registry

	// Buckets for duration histograms, in seconds.
	DurationBuckets []float64

	// RuntimeCollectors adds the Go and process collectors.
	RuntimeCollectors bool
}

// DefaultConfig returns buckets sized for provider jobs that take seconds to
// minutes.
func DefaultConfig() Config {
	return Config{
		DurationBuckets:   []float64{1, 5, 15, 30, 60, 120, 180, 300, 600},
		RuntimeCollectors: true,
	}
}

// New creates an Exporter and registers its collectors.
func New(cfg Config) *Exporter {
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Enrichment attempts by final status",
		},
		[]string{"status", "skipped"},
	)
	e.attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of an enrichment attempt",
			Buckets:   cfg.DurationBuckets,
		},
		[]string{"skipped"},
	)
	e.storageFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Attempts whose enrichment record could not be written",
		},
	)
	e.jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "jobs_total",
			Help:      "Provider jobs by final job status and whether data came back",
		},
		[]string{"provider", "job_status", "has_data"},
	)
	e.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "job_duration_seconds",
			Help:      "Time from submission to terminal state",
			Buckets:   cfg.DurationBuckets,
		},
		[]string{"provider"},
	)
	e.circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_state",
			Help:      "Submission circuit state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"provider"},
	)
	e.webhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Webhook requests by outcome",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		e.attempts,
		e.attemptDuration,
		e.storageFailures,
		e.jobs,
		e.jobDuration,
		e.circuitState,
		e.webhooks,
	)
	if cfg.RuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return e
}

// ObserveProvider records one provider pipeline. An empty status means the
// job was never submitted.
func (e *Exporter) ObserveProvider(p model.Provider, status model.JobStatus, hasData bool, elapsed time.Duration) {
	js := string(status)
	if js == "" {
		js = "not_submitted"
	}
	e.jobs.WithLabelValues(string(p), js, boolLabel(hasData)).Inc()
	e.jobDuration.WithLabelValues(string(p)).Observe(elapsed.Seconds())
}

// ObserveAttempt records one enrichment attempt.
func (e *Exporter) ObserveAttempt(status model.EnrichmentStatus, skipped, storageOK bool, elapsed time.Duration) {
	e.attempts.WithLabelValues(string(status), boolLabel(skipped)).Inc()
	e.attemptDuration.WithLabelValues(boolLabel(skipped)).Observe(elapsed.Seconds())
	if !skipped && !storageOK {
		e.storageFailures.Inc()
	}
}

// ObserveCircuit is a resilience.ServiceBreakers state hook.
func (e *Exporter) ObserveCircuit(service string, _, to resilience.CircuitState) {
	e.circuitState.WithLabelValues(service).Set(float64(to))
}

// ObserveWebhook counts a webhook request by outcome.
func (e *Exporter) ObserveWebhook(outcome string) {
	e.webhooks.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape handler for the exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

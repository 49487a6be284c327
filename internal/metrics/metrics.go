// Package metrics exposes authentication counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for redirects and callbacks
const (
	OutcomeRedirected       = "redirected"
	OutcomeProviderNotFound = "provider_not_found"
	OutcomeAuthenticated    = "authenticated"
	OutcomeReturned         = "returned"
	OutcomeError            = "error"
)

// UnknownProvider is the provider label for names that are not configured
const UnknownProvider = "unknown"

// Recorder is what the HTTP handlers report to
type Recorder interface {
	RecordRedirect(provider, outcome string)
	RecordCallback(outcome string, duration time.Duration)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordRedirect(string, string)        {}
func (NopRecorder) RecordCallback(string, time.Duration) {}

// Collector records to Prometheus
type Collector struct {
	redirects       *prometheus.CounterVec
	callbacks       *prometheus.CounterVec
	callbackLatency prometheus.Histogram
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simple_auth_redirects_total",
			Help: "Redirects to an authentication provider by provider and outcome.",
		}, []string{"provider", "outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simple_auth_callbacks_total",
			Help: "Provider callbacks by outcome.",
		}, []string{"outcome"}),
		callbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simple_auth_callback_duration_seconds",
			Help:    "Time spent resolving a provider callback.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.redirects, c.callbacks, c.callbackLatency)
	return c
}

func (c *Collector) RecordRedirect(provider, outcome string) {
	c.redirects.WithLabelValues(provider, outcome).Inc()
}

func (c *Collector) RecordCallback(outcome string, duration time.Duration) {
	c.callbacks.WithLabelValues(outcome).Inc()
	c.callbackLatency.Observe(duration.Seconds())
}

// Handler serves the metrics gathered by gatherer for scraping
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metrics collects and exposes Prometheus metrics for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the polling loop records against.
type Recorder interface {
	RecordRound()
	RecordCheck(outcome string, duration time.Duration)
	RecordRenderFailure()
	RecordNotification(kind string)
}

// Availability outcomes recorded per hotel check.
const (
	OutcomeAvailable   = "available"
	OutcomeUnavailable = "unavailable"
	OutcomeUnknown     = "unknown"
)

// Collector implements Recorder backed by a Prometheus registry.
type Collector struct {
	rounds        prometheus.Counter
	checks        *prometheus.CounterVec
	renderFail    prometheus.Counter
	notifications *prometheus.CounterVec
	checkLatency  prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toyoko_rounds_total",
			Help: "Completed polling rounds.",
		}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toyoko_checks_total",
			Help: "Hotel checks by availability outcome.",
		}, []string{"outcome"}),
		renderFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toyoko_render_failures_total",
			Help: "Fetches that degraded to unknown availability.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toyoko_notifications_total",
			Help: "Alert notifications by transition kind.",
		}, []string{"kind"}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toyoko_check_latency_seconds",
			Help:    "Latency of one hotel check including rendering.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.rounds,
		c.checks,
		c.renderFail,
		c.notifications,
		c.checkLatency,
	)

	return c
}

func (c *Collector) RecordRound() {
	c.rounds.Inc()
}

func (c *Collector) RecordCheck(outcome string, duration time.Duration) {
	c.checks.WithLabelValues(outcome).Inc()
	c.checkLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordRenderFailure() {
	c.renderFail.Inc()
}

func (c *Collector) RecordNotification(kind string) {
	c.notifications.WithLabelValues(kind).Inc()
}

// Nop is a Recorder that discards everything, for tests.
type Nop struct{}

func (Nop) RecordRound() {}

func (Nop) RecordCheck(string, time.Duration) {}

func (Nop) RecordRenderFailure() {}

func (Nop) RecordNotification(string) {}

// Handler returns the scrape handler for the gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	httpRequests     *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	documentLoads    prometheus.Counter
	documentSaves    prometheus.Counter
	legacyMigrations prometheus.Counter
	authFailures     prometheus.Counter
}

// NewCollector registers the API's metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noveldesk_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "noveldesk_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		documentLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noveldesk_document_loads_total",
			Help: "Document trees served to clients.",
		}),
		documentSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noveldesk_document_saves_total",
			Help: "Document trees persisted for clients.",
		}),
		legacyMigrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noveldesk_legacy_migrations_total",
			Help: "Legacy plaintext records rewritten as encrypted records.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noveldesk_auth_failures_total",
			Help: "Requests rejected by credential verification.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.documentLoads,
		c.documentSaves,
		c.legacyMigrations,
		c.authFailures,
	)

	return c
}

func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordDocumentLoad() { c.documentLoads.Inc() }

func (c *Collector) RecordDocumentSave() { c.documentSaves.Inc() }

func (c *Collector) RecordLegacyMigration() { c.legacyMigrations.Inc() }

func (c *Collector) RecordAuthFailure() { c.authFailures.Inc() }

// Handler returns the scrape endpoint handler for the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

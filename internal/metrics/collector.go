// Package metrics exposes Prometheus metrics for the library and its HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Reference library
	ReferencesStored  *prometheus.CounterVec
	ReferencesRevoked *prometheus.CounterVec
	LookupsDegraded   prometheus.Counter

	// Revision history
	RevisionsRecorded prometheus.Counter
	RevisionsTrimmed  prometheus.Counter
	PatchHunksFailed  prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReferencesStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "references_stored_total",
				Help:      "References stored, by outcome (created or shared)",
			},
			[]string{"outcome"},
		),
		ReferencesRevoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "references_revoked_total",
				Help:      "Reference access revocations, by outcome (unshared or deleted)",
			},
			[]string{"outcome"},
		),
		LookupsDegraded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_lookups_degraded_total",
				Help:      "Metadata lookups answered with a degraded record",
			},
		),
		RevisionsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revisions_recorded_total",
				Help:      "Document revisions recorded",
			},
		),
		RevisionsTrimmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revisions_trimmed_total",
				Help:      "Document revisions removed by history trimming",
			},
		),
		PatchHunksFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "patch_hunks_failed_total",
				Help:      "Patch hunks that could not be placed",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ReferencesStored,
		c.ReferencesRevoked,
		c.LookupsDegraded,
		c.RevisionsRecorded,
		c.RevisionsTrimmed,
		c.PatchHunksFailed,
	)

	return c
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ReferenceStored counts a created or shared reference
func (c *Collector) ReferenceStored(outcome string) {
	if c == nil {
		return
	}
	c.ReferencesStored.WithLabelValues(outcome).Inc()
}

// ReferenceRevoked counts a revocation
func (c *Collector) ReferenceRevoked(outcome string) {
	if c == nil {
		return
	}
	c.ReferencesRevoked.WithLabelValues(outcome).Inc()
}

// LookupDegraded counts a degraded metadata lookup
func (c *Collector) LookupDegraded() {
	if c == nil {
		return
	}
	c.LookupsDegraded.Inc()
}

// RevisionRecorded counts a new revision
func (c *Collector) RevisionRecorded() {
	if c == nil {
		return
	}
	c.RevisionsRecorded.Inc()
}

// RevisionsRemoved counts revisions dropped by trimming
func (c *Collector) RevisionsRemoved(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.RevisionsTrimmed.Add(float64(n))
}

// HunksFailed counts patch hunks that could not be placed
func (c *Collector) HunksFailed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.PatchHunksFailed.Add(float64(n))
}

// ObserveRequest records one HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

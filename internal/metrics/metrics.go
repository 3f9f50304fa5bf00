// Package metrics exposes cache and upstream fetch counters to Prometheus.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mta_realtime"

// Metrics implements cache.Observer and feed.Recorder
type Metrics struct {
	registry       *prometheus.Registry
	cacheRequests  *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheEntries   prometheus.Gauge
	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	decodeFailures *prometheus.CounterVec
}

// New registers the collectors on a fresh registry. Go runtime and process
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m := &Metrics{
		registry: reg,
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by category and result.",
		}, []string{"category", "result"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed from the cache by category.",
		}, []string{"category"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held in the cache.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetches_total",
			Help:      "Upstream feed fetches by category and outcome.",
		}, []string{"category", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch and decode latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"category"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "decode_failures_total",
			Help:      "Feeds that could not be decoded, by category.",
		}, []string{"category"}),
	}

	reg.MustRegister(
		m.cacheRequests,
		m.cacheEvictions,
		m.cacheEntries,
		m.fetches,
		m.fetchDuration,
		m.decodeFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CacheHit(key string) {
	m.cacheRequests.WithLabelValues(category(key), "hit").Inc()
}

func (m *Metrics) CacheMiss(key string) {
	m.cacheRequests.WithLabelValues(category(key), "miss").Inc()
}

func (m *Metrics) CacheEvict(key string) {
	m.cacheEvictions.WithLabelValues(category(key)).Inc()
}

func (m *Metrics) CacheSize(n int) {
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) ObserveFetch(category, outcome string, elapsed time.Duration) {
	m.fetches.WithLabelValues(category, outcome).Inc()
	m.fetchDuration.WithLabelValues(category).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDecodeFailure(category string) {
	m.decodeFailures.WithLabelValues(category).Inc()
}

// category extracts the label from a "category:id" cache key. Keys
// without a separator are their own category.
func category(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Package metrics exposes this service's Prometheus collectors: browser
// pool occupancy, render outcomes and latency, and HTTP request counts.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector this service registers. Fields are
// exported collectors rather than wrapped behind Record*/Update* methods
// in some places and not others — callers that already hold a
// prometheus.Gauge/Counter reference (the daemon's HTTP handler, in
// particular) should use it directly rather than plumbing values back through here.
type Metrics struct {
	BrowserPoolSize      prometheus.Gauge
	BrowserPoolAvailable prometheus.Gauge
	BrowserPoolRestarts  prometheus.Counter

	RendersTotal   *prometheus.CounterVec
	RenderDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec

	restartsMu       sync.Mutex
	restartsObserved int64
}

// New creates and registers every collector against registerer.
func New(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		BrowserPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      "size",
			Help:      "Total number of browser instances in the pool.",
		}),
		BrowserPoolAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      "available",
			Help:      "Number of browser instances in the pool's round-robin queue.",
		}),
		BrowserPoolRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      "restarts_total",
			Help:      "Total number of browser instances restarted by the pool.",
		}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Total number of render requests by outcome.",
		}, []string{"outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent generating a PDF, from acquiring a browser to the last byte written.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by path and status code.",
		}, []string{"path", "status"}),
	}

	registerer.MustRegister(
		m.BrowserPoolSize,
		m.BrowserPoolAvailable,
		m.BrowserPoolRestarts,
		m.RendersTotal,
		m.RenderDuration,
		m.HTTPRequests,
	)
	return m
}

// Handler returns the HTTP handler this service's metrics endpoint should
// mount, scraping whatever registry New registered into.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePoolStats records a browser.Pool snapshot's occupancy fields. It
// takes plain ints rather than importing the browser package's PoolStats
// type directly, keeping metrics a leaf package nothing else needs to
// import back. totalRestarts is the pool's own cumulative counter;
// ObservePoolStats tracks how much of it has already been added to the
// Prometheus counter so repeated snapshots only add the delta.
func (m *Metrics) ObservePoolStats(size, available int, totalRestarts int64) {
	m.BrowserPoolSize.Set(float64(size))
	m.BrowserPoolAvailable.Set(float64(available))

	m.restartsMu.Lock()
	delta := totalRestarts - m.restartsObserved
	if delta > 0 {
		m.restartsObserved = totalRestarts
	}
	m.restartsMu.Unlock()

	if delta > 0 {
		m.BrowserPoolRestarts.Add(float64(delta))
	}
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's prometheus registry and instruments.
type Collector struct {
	reg *prometheus.Registry

	FeedFetches   *prometheus.CounterVec // labels: group, result (ok|unavailable|malformed|cached)
	FetchDuration prometheus.Histogram

	ArrivalsServed prometheus.Counter
	RequestErrors  *prometheus.CounterVec // label: endpoint
}

// NewCollector builds and registers all instruments on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainsense_feed_fetches_total",
			Help: "Realtime feed fetch attempts by group and result.",
		}, []string{"group", "result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainsense_feed_fetch_duration_seconds",
			Help:    "Realtime feed fetch+decode latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ArrivalsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainsense_arrivals_served_total",
			Help: "Total arrival predictions returned to clients.",
		}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainsense_request_errors_total",
			Help: "Request-level errors by endpoint.",
		}, []string{"endpoint"}),
	}

	reg.MustRegister(c.FeedFetches, c.FetchDuration, c.ArrivalsServed, c.RequestErrors)
	return c
}

// ObserveFetch records one feed fetch attempt.
func (c *Collector) ObserveFetch(group, result string, elapsed time.Duration) {
	c.FeedFetches.WithLabelValues(group, result).Inc()
	if result != "cached" {
		c.FetchDuration.Observe(elapsed.Seconds())
	}
}

// Handler serves the registry in prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

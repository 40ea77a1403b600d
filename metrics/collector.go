// Package metrics holds the prometheus collectors for the web server and the
// upstream service clients.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so several can coexist in one process (tests).
type Collector struct {
	reg *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamCallsTotal   *prometheus.CounterVec
	upstreamCallDuration *prometheus.HistogramVec

	featureUsesTotal *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{reg: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.upstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls made to external services",
		},
		[]string{"service", "outcome"},
	)
	c.upstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "External service call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)
	c.featureUsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_uses_total",
			Help:      "Feature invocations by page",
		},
		[]string{"feature", "outcome"},
	)

	c.reg.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.upstreamCallsTotal,
		c.upstreamCallDuration,
		c.featureUsesTotal,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveUpstream satisfies clients.Observer.
func (c *Collector) ObserveUpstream(service string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.upstreamCallsTotal.WithLabelValues(service, outcome).Inc()
	c.upstreamCallDuration.WithLabelValues(service).Observe(d.Seconds())
}

func (c *Collector) RecordFeature(feature string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.featureUsesTotal.WithLabelValues(feature, outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

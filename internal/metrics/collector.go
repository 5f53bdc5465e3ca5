// Package metrics exposes a run as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clickload/internal/runner"
)

const namespace = "clickload"

// Collector implements runner.Observer. Each Collector owns its registry so
// several runs in one process do not clash.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseBytes   *prometheus.CounterVec
	users           *prometheus.GaugeVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests sent by virtual users",
			},
			[]string{"profile", "method", "name", "result"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Response time of completed requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "name"},
		),
		responseBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_bytes_total",
				Help:      "Response body bytes read",
			},
			[]string{"method", "name"},
		),
		users: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "users",
				Help:      "Running virtual users",
			},
			[]string{"profile"},
		),
	}
}

func (c *Collector) ObserveRequest(res runner.RequestResult) {
	result := "success"
	if !res.Success {
		result = "failure"
	}
	c.requestsTotal.WithLabelValues(res.Profile, res.Method, res.Name, result).Inc()
	c.requestDuration.WithLabelValues(res.Method, res.Name).Observe(res.Latency.Seconds())
	c.responseBytes.WithLabelValues(res.Method, res.Name).Add(float64(res.Bytes))
}

func (c *Collector) ObserveUsers(profile string, delta int) {
	c.users.WithLabelValues(profile).Add(float64(delta))
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

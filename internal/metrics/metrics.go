package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cyberwise"

// Collector holds the portal's prometheus metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	applications *prometheus.CounterVec
	reviews      *prometheus.CounterVec
	logins       *prometheus.CounterVec
	sweptFiles   prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code.",
			}, []string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		applications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applications_submitted_total",
				Help:      "Application submissions by outcome.",
			}, []string{"outcome"},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "application_reviews_total",
				Help:      "Application reviews by decision.",
			}, []string{"decision"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by result.",
			}, []string{"result"},
		),
		sweptFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphan_uploads_removed_total",
				Help:      "Upload files removed by the orphan sweep.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.applications.Describe(ch)
	c.reviews.Describe(ch)
	c.logins.Describe(ch)
	c.sweptFiles.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.applications.Collect(ch)
	c.reviews.Collect(ch)
	c.logins.Collect(ch)
	c.sweptFiles.Collect(ch)
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ApplicationSubmitted(outcome string) {
	if c == nil {
		return
	}
	c.applications.WithLabelValues(outcome).Inc()
}

func (c *Collector) ApplicationReviewed(decision string) {
	if c == nil {
		return
	}
	c.reviews.WithLabelValues(decision).Inc()
}

func (c *Collector) LoginAttempt(result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) OrphansRemoved(n int) {
	if c == nil {
		return
	}
	c.sweptFiles.Add(float64(n))
}

// NewRegistry returns a registry holding c plus the Go and process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

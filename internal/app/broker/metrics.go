package broker

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicelink"

// Metrics holds the broker collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	mintsTotal      *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of broker HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of broker HTTP requests",
			},
			[]string{"route", "method", "code"},
		),
		mintsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_mints_total",
				Help:      "Total number of session mint attempts",
			},
			[]string{"status"}, // status: success, error
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the mint rate limiter",
			},
		),
	}
	m.Registry.MustRegister(m.requestDuration, m.requestsTotal, m.mintsTotal, m.rateLimited)
	return m
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveMint(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.mintsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lapfinder/internal/analysis"
)

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	analyses        *prometheus.CounterVec
	samples         prometheus.Histogram
	topLoss         *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lapfinder_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lapfinder_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"route"}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lapfinder_analyses_total",
			Help: "Telemetry analyses by outcome",
		}, []string{"outcome"}),
		samples: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lapfinder_analysis_samples",
			Help:    "Retained samples per analysis",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		}),
		topLoss: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lapfinder_top_cause_total",
			Help: "Top cause of the highest-ranked segment per analysis",
		}, []string{"cause"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) observeAnalysis(samples int, reports []analysis.SegmentReport) {
	m.analyses.WithLabelValues("ok").Inc()
	m.samples.Observe(float64(samples))
	if len(reports) > 0 {
		m.topLoss.WithLabelValues(reports[0].TopCause).Inc()
	}
}

func (m *Metrics) observeFailure(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

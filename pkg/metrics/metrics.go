// Package metrics exposes extraction and proxy counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
)

const namespace = "postcard"

// Source attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Extraction results.
const (
	ResultSuccess   = "success"
	ResultDemo      = "demo"
	ResultInvalid   = "invalid"
	ResultExhausted = "exhausted"
	ResultCanceled  = "canceled"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	sourceAttempts *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	extractions    *prometheus.CounterVec
	proxyRequests  *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		sourceAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_attempts_total",
				Help:      "Source adapter attempts by outcome",
			},
			[]string{"source", "outcome"},
		),
		sourceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_duration_seconds",
				Help:      "Time spent in each source adapter",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
			},
			[]string{"source"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Extraction requests by result",
			},
			[]string{"result"},
		),
		proxyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_proxy_requests_total",
				Help:      "Image proxy requests by result",
			},
			[]string{"result"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "image_cache_hits",
			Help:      "Image cache hits since start",
		},
		func() float64 { return float64(httpcache.CacheStats().Hits) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "image_cache_misses",
			Help:      "Image cache misses since start",
		},
		func() float64 { return float64(httpcache.CacheStats().Misses) },
	)

	return m
}

// SourceAttempt records one adapter call.
func (m *Metrics) SourceAttempt(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sourceAttempts.WithLabelValues(source, outcome).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Extraction records the result of one Extract call.
func (m *Metrics) Extraction(result string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(result).Inc()
}

// ImageProxy records the result of one proxied image request.
func (m *Metrics) ImageProxy(result string) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(result).Inc()
}

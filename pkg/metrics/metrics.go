// Package metrics exposes scoring and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/mchmarny/dropwatch/pkg/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dropwatch"

// Metrics holds the collectors of one server instance.
type Metrics struct {
	registry *prometheus.Registry

	RowsScored      *prometheus.CounterVec
	ScoreFailures   *prometheus.CounterVec
	ScoreLatency    prometheus.Histogram
	ModelLoaded     prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPRequestTime *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsScored: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_scored_total",
				Help:      "Total number of scored rows by risk label.",
			},
			[]string{"label"},
		),
		ScoreFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "score_failures_total",
				Help:      "Total number of scoring requests that produced no predictions.",
			},
			[]string{"reason"},
		),
		ScoreLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score_duration_seconds",
				Help:      "Time spent reading and scoring an uploaded table.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ModelLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "model_loaded",
				Help:      "1 when a model is loaded, 0 otherwise.",
			},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordScore records a successful scoring run.
func (m *Metrics) RecordScore(s table.Summary, duration time.Duration) {
	m.RowsScored.WithLabelValues(risk.LabelHigh.String()).Add(float64(s.High))
	m.RowsScored.WithLabelValues(risk.LabelMedium.String()).Add(float64(s.Medium))
	m.RowsScored.WithLabelValues(risk.LabelLow.String()).Add(float64(s.Low))
	m.ScoreLatency.Observe(duration.Seconds())
}

// RecordFailure records a scoring run that produced no predictions.
func (m *Metrics) RecordFailure(reason string) {
	m.ScoreFailures.WithLabelValues(reason).Inc()
}

// SetModelLoaded flips the model gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}

// RecordRequest records one served HTTP request. route should be the
// matched pattern, not the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestTime.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Package metrics exposes the Prometheus collectors of the OCR pipeline.
// All methods are safe on a nil *Metrics so components can run unobserved.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liquidation"

type Metrics struct {
	variantsEvaluated   prometheus.Counter
	earlyStops          prometheus.Counter
	recognitionFailures *prometheus.CounterVec
	recognitionSeconds  *prometheus.HistogramVec
	pageConfidence      prometheus.Histogram
	documentsProcessed  *prometheus.CounterVec
	missingFields       prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		variantsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_evaluated_total",
			Help:      "Image variants sent to the recognizer.",
		}),
		earlyStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ensemble_early_stops_total",
			Help:      "Pages whose ensemble stopped before exhausting the grid.",
		}),
		recognitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_failures_total",
			Help:      "Recognition calls that failed closed, by engine and reason.",
		}, []string{"engine", "reason"}),
		recognitionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "Latency of single recognition calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}, []string{"engine"}),
		pageConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_best_confidence",
			Help:      "Best confidence reached per page.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		documentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents processed, by final status.",
		}, []string{"status"}),
		missingFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_fields_total",
			Help:      "Entries reported in missing-field reports.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.variantsEvaluated,
			m.earlyStops,
			m.recognitionFailures,
			m.recognitionSeconds,
			m.pageConfidence,
			m.documentsProcessed,
			m.missingFields,
		)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) VariantEvaluated() {
	if m == nil {
		return
	}
	m.variantsEvaluated.Inc()
}

func (m *Metrics) EarlyStop() {
	if m == nil {
		return
	}
	m.earlyStops.Inc()
}

func (m *Metrics) RecognitionFailed(engine, reason string) {
	if m == nil {
		return
	}
	m.recognitionFailures.WithLabelValues(engine, reason).Inc()
}

func (m *Metrics) ObserveRecognition(engine string, d time.Duration) {
	if m == nil {
		return
	}
	m.recognitionSeconds.WithLabelValues(engine).Observe(d.Seconds())
}

func (m *Metrics) ObservePage(confidence float64) {
	if m == nil {
		return
	}
	m.pageConfidence.Observe(confidence)
}

func (m *Metrics) DocumentProcessed(status string) {
	if m == nil {
		return
	}
	m.documentsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) MissingFields(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.missingFields.Add(float64(n))
}

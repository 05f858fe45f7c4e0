package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks the document processing pipeline. The service label is
// fixed at construction; only the outcome varies per observation.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processed       *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	chunksIndexed   prometheus.Histogram
	queueLag        prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	m := &WorkerMetrics{
		registry: registry,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "iqa",
			Subsystem:   "worker",
			Name:        "documents_processed_total",
			Help:        "Processed documents by outcome.",
			ConstLabels: serviceLabel,
		}, []string{"outcome"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "iqa",
			Subsystem:   "worker",
			Name:        "document_process_duration_seconds",
			Help:        "Document processing duration by outcome.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: serviceLabel,
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "iqa",
			Subsystem:   "worker",
			Name:        "documents_in_flight",
			Help:        "Documents currently being processed.",
			ConstLabels: serviceLabel,
		}),
		chunksIndexed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "iqa",
			Subsystem:   "worker",
			Name:        "chunks_indexed_per_document",
			Help:        "Chunk count per successfully indexed document.",
			Buckets:     []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
			ConstLabels: serviceLabel,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "iqa",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between document upload and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		}),
	}
	registry.MustRegister(m.processed, m.processDuration, m.inFlight, m.chunksIndexed, m.queueLag)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.inFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.inFlight.Dec()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.processed.WithLabelValues(outcome).Inc()
	m.processDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveChunksIndexed(count int) {
	if count < 0 {
		return
	}
	m.chunksIndexed.Observe(float64(count))
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

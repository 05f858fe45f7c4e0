package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal              *prometheus.CounterVec
	queryNoContextTotal     *prometheus.CounterVec
	queryRetrievedChunks    *prometheus.HistogramVec
	queryDuration           *prometheus.HistogramVec
	providerFallbackTotal   *prometheus.CounterVec
	confidenceUnparsedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqa",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total answered questions by provider actually used.",
		},
		[]string{"service", "provider"},
	)
	queryNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqa",
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total answered questions without any retrieved source.",
		},
		[]string{"service"},
	)
	queryRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iqa",
			Subsystem: "query",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iqa",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	providerFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqa",
			Subsystem: "provider",
			Name:      "fallback_total",
			Help:      "Total queries answered by a provider other than the requested one.",
		},
		[]string{"service", "requested", "used"},
	)
	confidenceUnparsedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iqa",
			Subsystem: "provider",
			Name:      "confidence_unparsed_total",
			Help:      "Total provider replies whose confidence could not be parsed.",
		},
		[]string{"service", "provider"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryNoContextTotal,
		queryRetrievedChunks,
		queryDuration,
		providerFallbackTotal,
		confidenceUnparsedTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		queryTotal:              queryTotal,
		queryNoContextTotal:     queryNoContextTotal,
		queryRetrievedChunks:    queryRetrievedChunks,
		queryDuration:           queryDuration,
		providerFallbackTotal:   providerFallbackTotal,
		confidenceUnparsedTotal: confidenceUnparsedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordQuery(service, requested, used string, chunksFound int, confidenceUnparsed bool, duration time.Duration) {
	if used == "" {
		used = "unknown"
	}
	m.queryTotal.WithLabelValues(service, used).Inc()
	m.queryRetrievedChunks.WithLabelValues(service).Observe(float64(chunksFound))
	m.queryDuration.WithLabelValues(service).Observe(duration.Seconds())

	if chunksFound == 0 {
		m.queryNoContextTotal.WithLabelValues(service).Inc()
	}
	if requested != "" && requested != used {
		m.providerFallbackTotal.WithLabelValues(service, requested, used).Inc()
	}
	if confidenceUnparsed {
		m.confidenceUnparsedTotal.WithLabelValues(service, used).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

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

	retrieveTotal      *prometheus.CounterVec
	retrieveDuration   *prometheus.HistogramVec
	retrievedPassages  *prometheus.HistogramVec
	degradedTotal      *prometheus.CounterVec
	lowConfidenceTotal *prometheus.CounterVec
	cacheEventsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrieveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrag",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total completed retrieval requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrieveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrag",
			Subsystem: "retrieval",
			Name:      "passages",
			Help:      "Distribution of passages returned per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrag",
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Total requests served with a degraded pipeline stage.",
		},
		[]string{"service", "stage"},
	)
	lowConfidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrag",
			Subsystem: "retrieval",
			Name:      "low_confidence_total",
			Help:      "Total requests answered below the confidence threshold.",
		},
		[]string{"service"},
	)
	cacheEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrag",
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Result cache hits and misses.",
		},
		[]string{"service", "event"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrieveTotal,
		retrieveDuration,
		retrievedPassages,
		degradedTotal,
		lowConfidenceTotal,
		cacheEventsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		retrieveTotal:      retrieveTotal,
		retrieveDuration:   retrieveDuration,
		retrievedPassages:  retrievedPassages,
		degradedTotal:      degradedTotal,
		lowConfidenceTotal: lowConfidenceTotal,
		cacheEventsTotal:   cacheEventsTotal,
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

// RecordRetrieval observes one completed retrieval: passage count,
// duration, degraded stages and the confidence outcome.
func (m *HTTPServerMetrics) RecordRetrieval(service string, passages int, lowConfidence bool, degradedStages []string, duration time.Duration) {
	outcome := "ok"
	if lowConfidence {
		outcome = "low_confidence"
		m.lowConfidenceTotal.WithLabelValues(service).Inc()
	}
	m.retrieveTotal.WithLabelValues(service, outcome).Inc()
	m.retrieveDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.retrievedPassages.WithLabelValues(service).Observe(float64(passages))
	for _, stage := range degradedStages {
		m.degradedTotal.WithLabelValues(service, stage).Inc()
	}
}

func (m *HTTPServerMetrics) RecordCacheEvent(service string, hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	m.cacheEventsTotal.WithLabelValues(service, event).Inc()
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

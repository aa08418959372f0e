package core

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bookshelf/pkg/domain"
)

// MetricsRecorder receives service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, err error, duration time.Duration)
	ObserveCollectionSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, error, time.Duration) {}
func (noopMetrics) ObserveCollectionSize(int)                             {}

// Operation result labels.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// ResultLabel classifies err for metrics and logs.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrInvalid):
		return ResultInvalid
	case errors.Is(err, domain.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}

// PrometheusMetrics publishes service and HTTP metrics to a Prometheus registry.
type PrometheusMetrics struct {
	operations       *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec
	books            prometheus.Gauge
	requests         *prometheus.CounterVec
	requestSeconds   *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the bookshelf collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "operations_total",
			Help:      "Book operations by name and result.",
		}, []string{"operation", "result"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookshelf",
			Name:      "operation_duration_seconds",
			Help:      "Book operation latency including snapshot I/O.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		books: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookshelf",
			Name:      "books",
			Help:      "Books in the collection as of the last load or save.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookshelf",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.operations, m.operationSeconds, m.books, m.requests, m.requestSeconds)
	return m
}

// Observe implements MetricsRecorder.
func (m *PrometheusMetrics) Observe(_ context.Context, operation string, err error, duration time.Duration) {
	if operation == "" {
		return
	}
	m.operations.WithLabelValues(operation, ResultLabel(err)).Inc()
	m.operationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCollectionSize implements MetricsRecorder.
func (m *PrometheusMetrics) ObserveCollectionSize(n int) {
	m.books.Set(float64(n))
}

// ObserveHTTP records one served request.
func (m *PrometheusMetrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

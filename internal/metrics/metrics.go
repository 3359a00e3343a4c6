// Package metrics provides the engine's ambient Prometheus
// instrumentation: store-operation counters/histograms and
// network-filesystem retry counters. It is instrumentation only — the
// one importer under pkg/lamina is the facade, which takes an optional
// *Metrics (nil-safe) in its Config; the lower-level stores never use it.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels the store call an observation belongs to.
const (
	OperationPut             = "put"
	OperationGet             = "get"
	OperationDelete          = "delete"
	OperationList            = "list"
	OperationCopy            = "copy"
	OperationCompleteUpload  = "complete_multipart_upload"
	OperationAbortUpload     = "abort_multipart_upload"
)

// Metrics holds every Prometheus collector the engine registers. A nil
// *Metrics is valid and every method becomes a no-op, so instrumenting
// a call site never requires a nil check at the call site itself.
type Metrics struct {
	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationBytes    *prometheus.HistogramVec
	retryTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers the engine's metric collectors against a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		operationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lamina",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of store operations, by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lamina",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Store operation latency.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"operation"},
		),
		operationBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lamina",
				Subsystem: "store",
				Name:      "operation_bytes",
				Help:      "Bytes transferred per object put, get, or multipart completion.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"operation"},
		),
		retryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lamina",
				Subsystem: "netfs",
				Name:      "retry_total",
				Help:      "Total number of network-filesystem retry attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.operationTotal,
		m.operationDuration,
		m.operationBytes,
		m.retryTotal,
	)
	return m
}

// ObserveOperation records one store operation's outcome and latency.
func (m *Metrics) ObserveOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operationTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveBytes records the size of a single object transfer: a put, a
// get, or a completed multipart upload.
func (m *Metrics) ObserveBytes(operation string, n int64) {
	if m == nil || n < 0 {
		return
	}
	m.operationBytes.WithLabelValues(operation).Observe(float64(n))
}

// ObserveRetry records one netfs retry attempt.
func (m *Metrics) ObserveRetry(succeeded bool) {
	if m == nil {
		return
	}
	outcome := "succeeded"
	if !succeeded {
		outcome = "exhausted"
	}
	m.retryTotal.WithLabelValues(outcome).Inc()
}

// Serve starts an HTTP server exposing the registry on /metrics at
// addr, shutting down when ctx is cancelled. It blocks until the
// server stops; callers typically run it in its own goroutine.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

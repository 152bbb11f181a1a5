// Package observability wires a Prometheus registry and a handful of
// gauges/counters into the worker pipeline, grounded on the teacher's
// core/system_health_logging.go (a registry plus per-subsystem gauges
// exposed over promhttp).
package observability

import (
	"context"
	"time"

	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"paymentproc/internal/store"
)

// Metrics holds the gauges, counters and histogram that the worker
// runner, the retry helpers, the Confirmation Checker and the status
// gauge collector update; the HTTP surface serves them at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	BatchesByStatus  *prometheus.GaugeVec
	WorkerTickSeconds *prometheus.HistogramVec
	BatchesFailed    prometheus.Counter
	PaymentsConfirmed prometheus.Counter
	RetryIncrements  *prometheus.CounterVec
}

// New builds a fresh registry with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		BatchesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "paymentproc_batches_by_status",
			Help: "Number of payment batches currently in each status.",
		}, []string{"status"}),
		WorkerTickSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "paymentproc_worker_tick_seconds",
			Help: "Duration of one worker tick.",
		}, []string{"worker"}),
		BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paymentproc_batches_failed_total",
			Help: "Total number of batches that transitioned to FAILED.",
		}),
		PaymentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paymentproc_payments_confirmed_total",
			Help: "Total number of payments that transitioned to CONFIRMED.",
		}),
		RetryIncrements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paymentproc_retry_increments_total",
			Help: "Total number of times a worker incremented a batch's retry_count.",
		}, []string{"worker"}),
	}

	reg.MustRegister(m.BatchesByStatus, m.WorkerTickSeconds, m.BatchesFailed,
		m.PaymentsConfirmed, m.RetryIncrements)
	return m
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBatchCounts snapshots the current per-status batch counts from st
// and updates BatchesByStatus.
func (m *Metrics) RecordBatchCounts(ctx context.Context, st store.Store) error {
	counts, err := st.CountBatchesByStatus(ctx)
	if err != nil {
		return err
	}
	for status, n := range counts {
		m.BatchesByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
	return nil
}

// RunStatusGaugeCollector periodically refreshes BatchesByStatus from st
// until ctx is cancelled, grounded on the teacher's RunMetricsCollector
// ticker loop (core/system_health_logging.go).
func (m *Metrics) RunStatusGaugeCollector(ctx context.Context, st store.Store, interval time.Duration, log *logrus.Logger) {
	entry := log.WithField("component", "status_gauge_collector")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.RecordBatchCounts(ctx, st); err != nil {
				entry.WithError(err).Warn("record batch counts failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

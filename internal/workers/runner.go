// Package workers implements the five cooperating pollers that advance
// batches through the pipeline, one per source status, grounded on the
// teacher's RunMetricsCollector ticker loop
// (core/system_health_logging.go).
package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/observability"
)

// Tick is one worker's unit of work. more reports whether the worker
// should run again immediately instead of sleeping a full interval
// (used by the Batch Creator when it may have more work than one fetch
// returned).
type Tick func(ctx context.Context) (more bool, err error)

// Run drives tick on a fixed interval until ctx is cancelled. Each tick
// is timed and logged; a tick error never stops the loop, matching
// spec §7's "workers never crash the process on per-batch errors".
func Run(ctx context.Context, name string, interval time.Duration, log *logrus.Logger, metrics *observability.Metrics, tick Tick) {
	entry := log.WithField("worker", name)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			entry.Info("worker stopping")
			return
		case <-ticker.C:
			runOnce(ctx, entry, name, metrics, tick)
		}
	}
}

func runOnce(ctx context.Context, entry *logrus.Entry, name string, metrics *observability.Metrics, tick Tick) {
	for {
		start := time.Now()
		more, err := tick(ctx)
		elapsed := time.Since(start)
		if metrics != nil {
			metrics.WorkerTickSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
		}
		if err != nil {
			entry.WithError(err).WithField("duration", elapsed).Warn("tick failed")
		} else {
			entry.WithField("duration", elapsed).Debug("tick complete")
		}
		if !more {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

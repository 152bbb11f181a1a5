package workers

import (
	"context"
	"time"

	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
)

// bumpRetryOrFail increments batch.RetryCount and, if it has now reached
// model.MaxRetries, fails the batch and its active payments; otherwise it
// reverts the batch to revertStatus and records msg as the error message
// (spec §5 "Retry/backoff", §7 "Terminal").
func bumpRetryOrFail(ctx context.Context, q store.Queries, metrics *observability.Metrics, worker string, batch *model.PaymentBatch, revertStatus model.BatchStatus, msg string) error {
	batch.RetryCount++
	if metrics != nil {
		metrics.RetryIncrements.WithLabelValues(worker).Inc()
	}
	if batch.RetryCount >= model.MaxRetries {
		return failBatch(ctx, q, metrics, batch, msg)
	}
	batch.Status = revertStatus
	batch.ErrorMessage = &msg
	batch.UpdatedAt = time.Now().UTC()
	return q.UpdateBatch(ctx, batch)
}

// failBatch transitions batch and every one of its active payments to
// FAILED, recording msg on both (spec §4.3, §7).
func failBatch(ctx context.Context, q store.Queries, metrics *observability.Metrics, batch *model.PaymentBatch, msg string) error {
	now := time.Now().UTC()
	batch.Status = model.BatchFailed
	batch.ErrorMessage = &msg
	batch.UpdatedAt = now
	if err := q.UpdateBatch(ctx, batch); err != nil {
		return err
	}
	if metrics != nil {
		metrics.BatchesFailed.Inc()
	}

	active, err := q.ListActivePaymentsByBatch(ctx, batch.ID)
	if err != nil {
		return err
	}
	for _, p := range active {
		p.Status = model.PaymentFailed
		p.FailureReason = &msg
		p.UpdatedAt = now
		if err := q.UpdatePayment(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
)

// BatchCreator groups RECEIVED payments per account into new
// PENDING_BATCHING batches (spec §4.2).
type BatchCreator struct {
	store    store.Store
	maxBatch int
	metrics  *observability.Metrics
	log      *logrus.Entry
}

// NewBatchCreator constructs a Batch Creator worker. Creation failures
// don't bump a batch's retry_count (there's no batch yet). The worker
// stores metrics but does not update it; its tick timing is recorded by
// Run.
func NewBatchCreator(st store.Store, maxBatch int, metrics *observability.Metrics, log *logrus.Logger) *BatchCreator {
	return &BatchCreator{store: st, maxBatch: maxBatch, metrics: metrics, log: log.WithField("component", "batch_creator")}
}

// Tick implements one pass: fetch up to maxBatch RECEIVED payments, group
// by account, and create one batch per group. more reports whether the
// fetch hit the limit, meaning there may be more RECEIVED payments
// waiting right away.
func (w *BatchCreator) Tick(ctx context.Context) (bool, error) {
	received, err := w.store.ListPaymentsByStatus(ctx, model.PaymentReceived, w.maxBatch)
	if err != nil {
		w.log.WithError(err).Warn("list received payments")
		return false, err
	}
	if len(received) == 0 {
		return false, nil
	}

	groups := make(map[string][]*model.Payment)
	for _, p := range received {
		groups[p.AccountName] = append(groups[p.AccountName], p)
	}

	for account, payments := range groups {
		if err := w.createBatch(ctx, account, payments); err != nil {
			w.log.WithError(err).WithField("account_name", account).Warn("create batch failed, will retry next tick")
		}
	}

	return len(received) == w.maxBatch, nil
}

func (w *BatchCreator) createBatch(ctx context.Context, account string, payments []*model.Payment) error {
	return w.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		now := time.Now().UTC()
		batch := &model.PaymentBatch{
			ID:               uuid.NewString(),
			AccountName:      account,
			PrIdempotencyKey: uuid.NewString(),
			Status:           model.BatchPendingBatching,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := q.InsertBatch(ctx, batch); err != nil {
			return err
		}
		for _, p := range payments {
			batchID := batch.ID
			p.Status = model.PaymentBatched
			p.PaymentBatchID = &batchID
			p.UpdatedAt = now
			if err := q.UpdatePayment(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

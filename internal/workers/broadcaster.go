package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/basenode"
	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
	"paymentproc/internal/txpayload"
)

const (
	mempoolPollRetries  = 10
	mempoolPollInterval = 2 * time.Second

	broadcasterName = "broadcaster"
)

// Broadcaster submits AWAITING_BROADCAST batches to the base node and
// either loops a consolidation cycle back to PENDING_BATCHING or advances
// a final cycle to AWAITING_CONFIRMATION (spec §4.5).
type Broadcaster struct {
	store   store.Store
	node    *basenode.Client
	metrics *observability.Metrics
	log     *logrus.Entry
}

// NewBroadcaster constructs a Broadcaster worker.
func NewBroadcaster(st store.Store, node *basenode.Client, metrics *observability.Metrics, log *logrus.Logger) *Broadcaster {
	return &Broadcaster{store: st, node: node, metrics: metrics, log: log.WithField("component", broadcasterName)}
}

func (w *Broadcaster) retry(ctx context.Context, batch *model.PaymentBatch, revert model.BatchStatus, msg string) error {
	return bumpRetryOrFail(ctx, w.store, w.metrics, broadcasterName, batch, revert, msg)
}

func (w *Broadcaster) fail(ctx context.Context, batch *model.PaymentBatch, msg string) error {
	return failBatch(ctx, w.store, w.metrics, batch, msg)
}

// Tick processes every batch currently in AWAITING_BROADCAST.
func (w *Broadcaster) Tick(ctx context.Context) (bool, error) {
	batches, err := w.store.ListBatchesByStatus(ctx, model.BatchAwaitingBroadcast, fetchLimit)
	if err != nil {
		return false, err
	}
	for _, b := range batches {
		if err := w.processBatch(ctx, b); err != nil {
			w.log.WithError(err).WithField("batch_id", b.ID).Warn("broadcaster tick failed for batch")
		}
	}
	return len(batches) == fetchLimit, nil
}

func (w *Broadcaster) processBatch(ctx context.Context, batch *model.PaymentBatch) error {
	if batch.SignedTxJSON == nil {
		return w.fail(ctx, batch, "awaiting broadcast batch has no signed payload")
	}
	payload, err := txpayload.UnmarshalPayload(*batch.SignedTxJSON)
	if err != nil {
		return w.fail(ctx, batch, fmt.Sprintf("unmarshal signed payload: %v", err))
	}
	if len(payload.Steps) == 0 {
		return w.fail(ctx, batch, "signed payload has no steps")
	}
	isConsolidationCycle := payload.Steps[0].IsConsolidation

	batch.Status = model.BatchBroadcasting
	batch.UpdatedAt = time.Now().UTC()
	if err := w.store.UpdateBatch(ctx, batch); err != nil {
		return err
	}

	signedSteps := make([]txpayload.SignedPayload, len(payload.Steps))
	for i, step := range payload.Steps {
		var sp txpayload.SignedPayload
		if err := json.Unmarshal(step.Signed, &sp); err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingBroadcast, fmt.Sprintf("unmarshal signed step %d: %v", i, err))
		}
		signedSteps[i] = sp

		result, err := w.node.SubmitTransaction(ctx, step.Signed)
		if err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingBroadcast, fmt.Sprintf("submit step %d: %v", i, err))
		}
		if !result.Accepted {
			return w.retry(ctx, batch, model.BatchAwaitingBroadcast, fmt.Sprintf("step %d rejected: %s", i, result.RejectionReason))
		}
	}

	if isConsolidationCycle {
		if err := w.awaitMempoolInclusion(ctx, signedSteps); err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingBroadcast, err.Error())
		}
		batch.Status = model.BatchPendingBatching
		batch.ErrorMessage = nil
		batch.UpdatedAt = time.Now().UTC()
		return w.store.UpdateBatch(ctx, batch)
	}

	batch.Status = model.BatchAwaitingConfirm
	batch.IntermediateContextJSON = nil
	batch.ErrorMessage = nil
	batch.UpdatedAt = time.Now().UTC()
	return w.store.UpdateBatch(ctx, batch)
}

// awaitMempoolInclusion polls the base node for every submitted
// consolidation step until each has reached IN_MEMPOOL or MINED, or the
// retry budget is exhausted.
func (w *Broadcaster) awaitMempoolInclusion(ctx context.Context, steps []txpayload.SignedPayload) error {
	pending := make([]bool, len(steps))
	for i := range pending {
		pending[i] = true
	}

	for attempt := 0; attempt < mempoolPollRetries; attempt++ {
		allDone := true
		for i, sp := range steps {
			if !pending[i] {
				continue
			}
			result, err := w.node.TransactionQuery(ctx, sp.KernelPublicNonce, sp.KernelSignature)
			if err != nil {
				return fmt.Errorf("transaction_query step %d: %w", i, err)
			}
			switch result.Location {
			case basenode.LocationInMempool, basenode.LocationMined:
				pending[i] = false
			default:
				allDone = false
			}
		}
		if allDone {
			return nil
		}
		if attempt < mempoolPollRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(mempoolPollInterval):
			}
		}
	}
	return fmt.Errorf("consolidation steps did not reach mempool within %d retries", mempoolPollRetries)
}

package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/signer"
	"paymentproc/internal/store"
	"paymentproc/internal/txpayload"
)

const transactionSignerName = "transaction_signer"

// TransactionSigner drives AWAITING_SIGNATURE batches through the
// external signer subprocess, one step at a time (spec §4.4).
type TransactionSigner struct {
	store   store.Store
	signer  *signer.Signer
	metrics *observability.Metrics
	log     *logrus.Entry
}

// NewTransactionSigner constructs a Transaction Signer worker.
func NewTransactionSigner(st store.Store, sg *signer.Signer, metrics *observability.Metrics, log *logrus.Logger) *TransactionSigner {
	return &TransactionSigner{store: st, signer: sg, metrics: metrics, log: log.WithField("component", transactionSignerName)}
}

func (w *TransactionSigner) retry(ctx context.Context, batch *model.PaymentBatch, revert model.BatchStatus, msg string) error {
	return bumpRetryOrFail(ctx, w.store, w.metrics, transactionSignerName, batch, revert, msg)
}

func (w *TransactionSigner) fail(ctx context.Context, batch *model.PaymentBatch, msg string) error {
	return failBatch(ctx, w.store, w.metrics, batch, msg)
}

// Tick processes every batch currently in AWAITING_SIGNATURE.
func (w *TransactionSigner) Tick(ctx context.Context) (bool, error) {
	batches, err := w.store.ListBatchesByStatus(ctx, model.BatchAwaitingSignature, fetchLimit)
	if err != nil {
		return false, err
	}
	for _, b := range batches {
		if err := w.processBatch(ctx, b); err != nil {
			w.log.WithError(err).WithField("batch_id", b.ID).Warn("transaction signer tick failed for batch")
		}
	}
	return len(batches) == fetchLimit, nil
}

func (w *TransactionSigner) processBatch(ctx context.Context, batch *model.PaymentBatch) error {
	if batch.UnsignedTxJSON == nil {
		return w.fail(ctx, batch, "awaiting signature batch has no unsigned payload")
	}
	payload, err := txpayload.UnmarshalPayload(*batch.UnsignedTxJSON)
	if err != nil {
		return w.fail(ctx, batch, fmt.Sprintf("unmarshal unsigned payload: %v", err))
	}

	batch.Status = model.BatchSigningInProgress
	batch.UpdatedAt = time.Now().UTC()
	if err := w.store.UpdateBatch(ctx, batch); err != nil {
		return err
	}

	signedSteps := make([]txpayload.Step, len(payload.Steps))
	var intermediate txpayload.IntermediateContext
	anyConsolidation := false

	for i, step := range payload.Steps {
		signedRaw, err := w.signer.SignStep(ctx, step.Unsigned)
		if err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingSignature, fmt.Sprintf("sign step %d: %v", i, err))
		}

		var sp txpayload.SignedPayload
		if err := json.Unmarshal(signedRaw, &sp); err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingSignature, fmt.Sprintf("unmarshal signed step %d: %v", i, err))
		}

		step.Unsigned = nil
		step.Signed = signedRaw
		signedSteps[i] = step

		if step.IsConsolidation {
			anyConsolidation = true
			intermediate.UTXOs = append(intermediate.UTXOs, sp.Outputs...)
		}
	}

	signedPayload := &txpayload.Payload{Steps: signedSteps}
	signedJSON, err := txpayload.MarshalPayload(signedPayload)
	if err != nil {
		return w.retry(ctx, batch, model.BatchAwaitingSignature, fmt.Sprintf("marshal signed payload: %v", err))
	}

	batch.SignedTxJSON = &signedJSON
	if anyConsolidation {
		ctxJSON, err := txpayload.MarshalIntermediateContext(&intermediate)
		if err != nil {
			return w.retry(ctx, batch, model.BatchAwaitingSignature, fmt.Sprintf("marshal intermediate context: %v", err))
		}
		batch.IntermediateContextJSON = &ctxJSON
	} else {
		batch.IntermediateContextJSON = nil
	}
	batch.Status = model.BatchAwaitingBroadcast
	batch.ErrorMessage = nil
	batch.UpdatedAt = time.Now().UTC()
	return w.store.UpdateBatch(ctx, batch)
}

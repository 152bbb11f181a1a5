package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/basenode"
	"paymentproc/internal/config"
	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
	"paymentproc/internal/txpayload"
)

const confirmationCheckerName = "confirmation_checker"

// ConfirmationChecker polls the base node for AWAITING_CONFIRMATION
// batches and finalizes them once they clear the confirmation threshold
// (spec §4.6).
type ConfirmationChecker struct {
	store   store.Store
	node    *basenode.Client
	cfg     *config.Config
	metrics *observability.Metrics
	log     *logrus.Entry
}

// NewConfirmationChecker constructs a Confirmation Checker worker.
func NewConfirmationChecker(st store.Store, node *basenode.Client, cfg *config.Config, metrics *observability.Metrics, log *logrus.Logger) *ConfirmationChecker {
	return &ConfirmationChecker{store: st, node: node, cfg: cfg, metrics: metrics, log: log.WithField("component", confirmationCheckerName)}
}

func (w *ConfirmationChecker) retry(ctx context.Context, batch *model.PaymentBatch, revert model.BatchStatus, msg string) error {
	return bumpRetryOrFail(ctx, w.store, w.metrics, confirmationCheckerName, batch, revert, msg)
}

func (w *ConfirmationChecker) fail(ctx context.Context, batch *model.PaymentBatch, msg string) error {
	return failBatch(ctx, w.store, w.metrics, batch, msg)
}

// Tick processes every batch currently in AWAITING_CONFIRMATION.
func (w *ConfirmationChecker) Tick(ctx context.Context) (bool, error) {
	batches, err := w.store.ListBatchesByStatus(ctx, model.BatchAwaitingConfirm, fetchLimit)
	if err != nil {
		return false, err
	}
	for _, b := range batches {
		if err := w.processBatch(ctx, b); err != nil {
			w.log.WithError(err).WithField("batch_id", b.ID).Warn("confirmation checker tick failed for batch")
		}
	}
	return len(batches) == fetchLimit, nil
}

func (w *ConfirmationChecker) processBatch(ctx context.Context, batch *model.PaymentBatch) error {
	if batch.SignedTxJSON == nil {
		return w.fail(ctx, batch, "awaiting confirmation batch has no signed payload")
	}
	payload, err := txpayload.UnmarshalPayload(*batch.SignedTxJSON)
	if err != nil {
		return w.fail(ctx, batch, fmt.Sprintf("unmarshal signed payload: %v", err))
	}
	if len(payload.Steps) != 1 {
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, fmt.Sprintf("expected exactly one step, got %d", len(payload.Steps)))
	}

	var sp txpayload.SignedPayload
	if err := json.Unmarshal(payload.Steps[0].Signed, &sp); err != nil {
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, fmt.Sprintf("unmarshal signed step: %v", err))
	}

	result, err := w.node.TransactionQuery(ctx, sp.KernelPublicNonce, sp.KernelSignature)
	if err != nil {
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, fmt.Sprintf("transaction_query: %v", err))
	}

	switch result.Location {
	case basenode.LocationInMempool:
		return nil

	case basenode.LocationMined:
		return w.handleMined(ctx, batch, sp, result)

	default:
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, "transaction dropped or reorged")
	}
}

func (w *ConfirmationChecker) handleMined(ctx context.Context, batch *model.PaymentBatch, sp txpayload.SignedPayload, result basenode.QueryResult) error {
	if result.MinedHeight == nil {
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, "mined result missing mined_height")
	}

	tip, err := w.node.GetTipInfo(ctx)
	if err != nil {
		return w.retry(ctx, batch, model.BatchAwaitingConfirm, fmt.Sprintf("get_tip_info: %v", err))
	}

	confirmations := tip.Metadata.BestBlockHeight - *result.MinedHeight + 1
	if confirmations < 0 {
		confirmations = 0
	}
	if confirmations < int64(w.cfg.RequiredConfirmations) {
		return nil
	}

	return w.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		active, err := q.ListActivePaymentsByBatch(ctx, batch.ID)
		if err != nil {
			return err
		}
		if len(active) != len(sp.SentHashes) {
			msg := fmt.Sprintf("sent_hashes count (%d) does not match active payment count (%d)", len(sp.SentHashes), len(active))
			return failBatch(ctx, q, w.metrics, batch, msg)
		}

		now := time.Now().UTC()
		headerHash := ""
		if result.MinedHeaderHash != nil {
			headerHash = *result.MinedHeaderHash
		}

		for i, p := range active {
			ref := derivePayref(headerHash, sp.SentHashes[i])
			p.Status = model.PaymentConfirmed
			p.Payref = &ref
			p.UpdatedAt = now
			if err := q.UpdatePayment(ctx, p); err != nil {
				return err
			}
			if w.metrics != nil {
				w.metrics.PaymentsConfirmed.Inc()
			}
		}

		batch.Status = model.BatchConfirmed
		batch.MinedHeight = result.MinedHeight
		batch.MinedHeaderHash = result.MinedHeaderHash
		if result.MinedTimestamp != nil {
			ts := time.Unix(*result.MinedTimestamp, 0).UTC()
			batch.MinedTimestamp = &ts
		}
		batch.ErrorMessage = nil
		batch.UpdatedAt = now
		return q.UpdateBatch(ctx, batch)
	})
}

// derivePayref combines the mined header hash and a payment's sent hash
// into the reference string returned to callers as proof of settlement.
func derivePayref(headerHash, sentHash string) string {
	sum := sha256.Sum256([]byte(headerHash + sentHash))
	return hex.EncodeToString(sum[:])
}

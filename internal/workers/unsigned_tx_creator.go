package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/config"
	"paymentproc/internal/fundsapi"
	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
	"paymentproc/internal/txpayload"
)

const fetchLimit = 100

const unsignedTxCreatorName = "unsigned_tx_creator"

// UnsignedTxCreator is the split/finalize heart of the pipeline (spec
// §4.3): for each PENDING_BATCHING batch it locks funds, decides between
// a single-step payout and a multi-step consolidation split, and writes
// the resulting unsigned payload.
type UnsignedTxCreator struct {
	store   store.Store
	cfg     *config.Config
	funds   *fundsapi.Client
	metrics *observability.Metrics
	log     *logrus.Entry
}

// NewUnsignedTxCreator constructs an Unsigned TX Creator worker.
func NewUnsignedTxCreator(st store.Store, cfg *config.Config, funds *fundsapi.Client, metrics *observability.Metrics, log *logrus.Logger) *UnsignedTxCreator {
	return &UnsignedTxCreator{store: st, cfg: cfg, funds: funds, metrics: metrics, log: log.WithField("component", unsignedTxCreatorName)}
}

func (w *UnsignedTxCreator) retry(ctx context.Context, batch *model.PaymentBatch, revert model.BatchStatus, msg string) error {
	return bumpRetryOrFail(ctx, w.store, w.metrics, unsignedTxCreatorName, batch, revert, msg)
}

func (w *UnsignedTxCreator) fail(ctx context.Context, batch *model.PaymentBatch, msg string) error {
	return failBatch(ctx, w.store, w.metrics, batch, msg)
}

// Tick processes every batch currently in PENDING_BATCHING.
func (w *UnsignedTxCreator) Tick(ctx context.Context) (bool, error) {
	batches, err := w.store.ListBatchesByStatus(ctx, model.BatchPendingBatching, fetchLimit)
	if err != nil {
		return false, err
	}
	for _, b := range batches {
		if err := w.processBatch(ctx, b); err != nil {
			w.log.WithError(err).WithField("batch_id", b.ID).Warn("unsigned tx creator tick failed for batch")
		}
	}
	return len(batches) == fetchLimit, nil
}

func (w *UnsignedTxCreator) processBatch(ctx context.Context, batch *model.PaymentBatch) error {
	active, err := w.store.ListActivePaymentsByBatch(ctx, batch.ID)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return w.fail(ctx, batch, "no active payments")
	}

	acct, ok := w.cfg.AccountByName(batch.AccountName)
	if !ok {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("account %q is no longer configured", batch.AccountName))
	}

	if batch.IntermediateContextJSON != nil {
		return w.finalize(ctx, batch, acct, active)
	}
	return w.fresh(ctx, batch, acct, active)
}

func (w *UnsignedTxCreator) fresh(ctx context.Context, batch *model.PaymentBatch, acct config.AccountConfig, active []*model.Payment) error {
	var total int64
	for _, p := range active {
		total += p.Amount
	}
	amountToLock := total + txpayload.FeeBuffer

	balance, err := w.funds.GetBalance(ctx, batch.AccountName)
	if err != nil {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("get_balance: %v", err))
	}
	if balance.Available() < amountToLock {
		w.log.WithField("batch_id", batch.ID).WithField("account_name", batch.AccountName).
			Warn("insufficient balance, will retry next poll")
		return nil
	}

	locked, err := w.funds.LockFunds(ctx, batch.AccountName, amountToLock, batch.PrIdempotencyKey)
	if err != nil {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("lock_funds: %v", err))
	}

	if len(locked.UTXOs) <= w.cfg.MaxInputCountPerTx {
		return w.buildSinglePayoutStep(ctx, batch, acct, active, locked.UTXOs)
	}
	return w.buildConsolidationSplit(ctx, batch, acct, locked.UTXOs)
}

func (w *UnsignedTxCreator) buildSinglePayoutStep(ctx context.Context, batch *model.PaymentBatch, acct config.AccountConfig, active []*model.Payment, utxos []fundsapi.UTXO) error {
	body := txpayload.PayoutUnsignedBody{
		Inputs:     toUnsignedInputs(utxos),
		Recipients: toRecipients(active),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("marshal payout body: %v", err))
	}
	payload := &txpayload.Payload{Steps: []txpayload.Step{{
		StepIndex:       0,
		IsConsolidation: false,
		TxID:            fmt.Sprintf("%s-payout", batch.ID),
		Unsigned:        raw,
	}}}
	return w.commitPayload(ctx, batch, payload)
}

func (w *UnsignedTxCreator) buildConsolidationSplit(ctx context.Context, batch *model.PaymentBatch, acct config.AccountConfig, utxos []fundsapi.UTXO) error {
	var steps []txpayload.Step
	for i := 0; i*w.cfg.MaxInputCountPerTx < len(utxos); i++ {
		start := i * w.cfg.MaxInputCountPerTx
		end := start + w.cfg.MaxInputCountPerTx
		if end > len(utxos) {
			end = len(utxos)
		}
		chunk := utxos[start:end]

		var chunkTotal int64
		for _, u := range chunk {
			chunkTotal += u.Value
		}
		fee := txpayload.EstimateFee(w.cfg.FeePerGram, len(chunk), 1)
		outputValue := chunkTotal - fee
		if outputValue <= 0 {
			return w.fail(ctx, batch, fmt.Sprintf("consolidation chunk %d has non-positive net output", i))
		}

		body := txpayload.ConsolidationUnsignedBody{
			Inputs:      toUnsignedInputs(chunk),
			OutputValue: outputValue,
			SelfAddress: acct.PublicSpendKey,
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return w.fail(ctx, batch, fmt.Sprintf("marshal consolidation body: %v", err))
		}
		steps = append(steps, txpayload.Step{
			StepIndex:       i,
			IsConsolidation: true,
			TxID:            fmt.Sprintf("%s-consolidation-%d", batch.ID, i),
			Unsigned:        raw,
		})
	}
	return w.commitPayload(ctx, batch, &txpayload.Payload{Steps: steps})
}

func (w *UnsignedTxCreator) finalize(ctx context.Context, batch *model.PaymentBatch, acct config.AccountConfig, active []*model.Payment) error {
	interm, err := txpayload.UnmarshalIntermediateContext(*batch.IntermediateContextJSON)
	if err != nil {
		return w.fail(ctx, batch, fmt.Sprintf("unmarshal intermediate context: %v", err))
	}

	inputs := make([]txpayload.UnsignedInput, 0, len(interm.UTXOs))
	for _, o := range interm.UTXOs {
		inputs = append(inputs, txpayload.UnsignedInput{Commitment: o.Commitment, Value: o.Value})
	}
	body := txpayload.PayoutUnsignedBody{
		Inputs:     inputs,
		Recipients: toRecipients(active),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("marshal finalize body: %v", err))
	}
	payload := &txpayload.Payload{Steps: []txpayload.Step{{
		StepIndex:       0,
		IsConsolidation: false,
		TxID:            fmt.Sprintf("%s-finalize", batch.ID),
		Unsigned:        raw,
	}}}
	return w.commitPayload(ctx, batch, payload)
}

func (w *UnsignedTxCreator) commitPayload(ctx context.Context, batch *model.PaymentBatch, payload *txpayload.Payload) error {
	marshalled, err := txpayload.MarshalPayload(payload)
	if err != nil {
		return w.retry(ctx, batch, model.BatchPendingBatching, fmt.Sprintf("marshal payload: %v", err))
	}
	batch.UnsignedTxJSON = &marshalled
	batch.SignedTxJSON = nil
	batch.Status = model.BatchAwaitingSignature
	batch.ErrorMessage = nil
	batch.UpdatedAt = time.Now().UTC()
	return w.store.UpdateBatch(ctx, batch)
}

func toUnsignedInputs(utxos []fundsapi.UTXO) []txpayload.UnsignedInput {
	out := make([]txpayload.UnsignedInput, len(utxos))
	for i, u := range utxos {
		out[i] = txpayload.UnsignedInput{Commitment: u.Commitment, Value: u.Value}
	}
	return out
}

func toRecipients(payments []*model.Payment) []txpayload.PayoutRecipient {
	out := make([]txpayload.PayoutRecipient, len(payments))
	for i, p := range payments {
		out[i] = txpayload.PayoutRecipient{PaymentID: p.ID, Address: p.RecipientAddress, Amount: p.Amount}
	}
	return out
}

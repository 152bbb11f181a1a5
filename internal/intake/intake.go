// Package intake implements the three operations callers use to get
// payments into the pipeline: single submission, bulk batch submission,
// and cancellation. All three enforce the idempotency and validation
// rules of spec §4.1.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paymentproc/internal/apperr"
	"paymentproc/internal/model"
	"paymentproc/internal/store"
)

// MaxBatchSize bounds a single bulk submission (spec §4.1, §8).
const MaxBatchSize = 100

// Service is the Intake component.
type Service struct {
	store           store.Store
	accountExists   func(string) bool
	log             *logrus.Entry
}

// New constructs an intake Service. accountExists reports whether a
// given account name is configured (injected so intake doesn't need to
// know about config's internal shape).
func New(st store.Store, accountExists func(string) bool, log *logrus.Logger) *Service {
	return &Service{store: st, accountExists: accountExists, log: log.WithField("component", "intake")}
}

// BulkItem is one line of a bulk batch submission.
type BulkItem struct {
	ClientID         string
	RecipientAddress string
	Amount           int64
	PaymentID        *string
}

// CreateSinglePaymentResult reports whether the returned payment is a
// freshly created row or a replayed one.
type CreateSinglePaymentResult struct {
	Payment *model.Payment
	Created bool
}

// CreateSinglePayment implements spec §4.1 "Create single payment".
func (s *Service) CreateSinglePayment(ctx context.Context, clientID, accountName, recipientAddress string, amount int64, paymentID *string) (*CreateSinglePaymentResult, error) {
	if !s.accountExists(accountName) {
		return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("unknown account %q", accountName))
	}
	if amount <= 0 {
		return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("amount must be positive"))
	}

	var result CreateSinglePaymentResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		existing, err := q.GetPaymentByClientAccount(ctx, clientID, accountName)
		if err == nil {
			result = CreateSinglePaymentResult{Payment: existing, Created: false}
			return nil
		}
		if err != store.ErrNotFound {
			return apperr.Wrap(err, "lookup existing payment")
		}

		now := time.Now().UTC()
		p := &model.Payment{
			ID:               uuid.NewString(),
			ClientID:         clientID,
			AccountName:      accountName,
			Status:           model.PaymentReceived,
			RecipientAddress: recipientAddress,
			Amount:           amount,
			PaymentID:        paymentID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := q.InsertPayment(ctx, p); err != nil {
			return apperr.Wrap(err, "insert payment")
		}
		result = CreateSinglePaymentResult{Payment: p, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateBulkBatchResult reports whether the returned batch+payments are a
// fresh creation or a replayed one.
type CreateBulkBatchResult struct {
	Batch    *model.PaymentBatch
	Payments []*model.Payment
	Created  bool
}

// CreateBulkBatch implements spec §4.1 "Create bulk batch".
func (s *Service) CreateBulkBatch(ctx context.Context, accountName string, items []BulkItem) (*CreateBulkBatchResult, error) {
	if !s.accountExists(accountName) {
		return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("unknown account %q", accountName))
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("items must not be empty"))
	}
	if len(items) > MaxBatchSize {
		return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("items exceed MAX_BATCH_SIZE (%d)", MaxBatchSize))
	}
	for _, it := range items {
		if it.Amount <= 0 {
			return nil, apperr.New(apperr.Validation, "intake", fmt.Errorf("amount must be positive for client_id %q", it.ClientID))
		}
	}

	var result CreateBulkBatchResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		clientIDs := make([]string, len(items))
		for i, it := range items {
			clientIDs[i] = it.ClientID
		}
		existing, err := q.GetPaymentsByClientIDs(ctx, accountName, clientIDs)
		if err != nil {
			return apperr.Wrap(err, "lookup existing payments")
		}

		switch {
		case len(existing) == len(items):
			batchID, consistent := singleBatchID(existing)
			if !consistent {
				return apperr.New(apperr.Validation, "intake", fmt.Errorf("duplicate payments found, but they do not form a single consistent batch"))
			}
			batch, err := q.GetBatch(ctx, batchID)
			if err != nil {
				return apperr.Wrap(err, "reload existing batch")
			}
			result = CreateBulkBatchResult{Batch: batch, Payments: existing, Created: false}
			return nil

		case len(existing) > 0:
			return apperr.New(apperr.Validation, "intake", fmt.Errorf("partial batches not allowed (%d of %d client_ids already exist)", len(existing), len(items)))

		default:
			return s.createFreshBatch(ctx, q, accountName, items, &result)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) createFreshBatch(ctx context.Context, q store.Queries, accountName string, items []BulkItem, result *CreateBulkBatchResult) error {
	now := time.Now().UTC()
	batch := &model.PaymentBatch{
		ID:                uuid.NewString(),
		AccountName:       accountName,
		PrIdempotencyKey:  uuid.NewString(),
		Status:            model.BatchPendingBatching,
		RetryCount:        0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := q.InsertBatch(ctx, batch); err != nil {
		return apperr.Wrap(err, "insert batch")
	}

	payments := make([]*model.Payment, 0, len(items))
	for _, it := range items {
		batchID := batch.ID
		p := &model.Payment{
			ID:               uuid.NewString(),
			ClientID:         it.ClientID,
			AccountName:      accountName,
			Status:           model.PaymentBatched,
			PaymentBatchID:   &batchID,
			RecipientAddress: it.RecipientAddress,
			Amount:           it.Amount,
			PaymentID:        it.PaymentID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := q.InsertPayment(ctx, p); err != nil {
			return apperr.Wrap(err, "insert payment")
		}
		payments = append(payments, p)
	}

	*result = CreateBulkBatchResult{Batch: batch, Payments: payments, Created: true}
	return nil
}

// singleBatchID reports the common payment_batch_id across payments, and
// whether every payment shares a non-null one.
func singleBatchID(payments []*model.Payment) (string, bool) {
	if len(payments) == 0 {
		return "", false
	}
	var id string
	for i, p := range payments {
		if p.PaymentBatchID == nil {
			return "", false
		}
		if i == 0 {
			id = *p.PaymentBatchID
			continue
		}
		if *p.PaymentBatchID != id {
			return "", false
		}
	}
	return id, true
}

// CancelPayment implements spec §4.1 "Cancel payment".
func (s *Service) CancelPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	var cancelled model.Payment
	err := s.store.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		p, err := q.GetPayment(ctx, paymentID)
		if err == store.ErrNotFound {
			return apperr.New(apperr.NotFound, "intake", fmt.Errorf("payment %q not found", paymentID))
		}
		if err != nil {
			return apperr.Wrap(err, "load payment")
		}

		var batch *model.PaymentBatch
		if p.PaymentBatchID != nil {
			batch, err = q.GetBatch(ctx, *p.PaymentBatchID)
			if err != nil {
				return apperr.Wrap(err, "load batch")
			}
			if !batch.CancellableByUser() {
				return apperr.New(apperr.Validation, "intake", fmt.Errorf("batch is too far along"))
			}
		} else if p.Status.IsTerminal() {
			return apperr.New(apperr.Validation, "intake", fmt.Errorf("payment is already in a final state"))
		}

		now := time.Now().UTC()
		p.Status = model.PaymentCancelled
		p.UpdatedAt = now
		if err := q.UpdatePayment(ctx, p); err != nil {
			return apperr.Wrap(err, "update payment")
		}
		cancelled = *p

		if batch != nil {
			if err := s.reconcileBatchAfterCancel(ctx, q, batch, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// reconcileBatchAfterCancel applies spec §4.1's post-cancel batch rule:
// CANCELLED if no active payments remain, otherwise reset to
// PENDING_BATCHING with cleared tx payloads since the payment set changed.
func (s *Service) reconcileBatchAfterCancel(ctx context.Context, q store.Queries, batch *model.PaymentBatch, now time.Time) error {
	active, err := q.ListActivePaymentsByBatch(ctx, batch.ID)
	if err != nil {
		return apperr.Wrap(err, "list active payments")
	}
	if len(active) == 0 {
		batch.Status = model.BatchCancelled
	} else {
		batch.Status = model.BatchPendingBatching
		batch.UnsignedTxJSON = nil
		batch.SignedTxJSON = nil
	}
	batch.UpdatedAt = now
	if err := q.UpdateBatch(ctx, batch); err != nil {
		return apperr.Wrap(err, "update batch")
	}
	return nil
}

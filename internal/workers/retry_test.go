package workers

import (
	"context"
	"testing"

	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store/memstore"
)

func seedBatchWithActivePayment(t *testing.T, st *memstore.Store, status model.BatchStatus, retryCount int) *model.PaymentBatch {
	t.Helper()
	ctx := context.Background()
	batch := &model.PaymentBatch{ID: "b1", AccountName: "acct1", Status: status, RetryCount: retryCount}
	if err := st.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	batchID := batch.ID
	if err := st.InsertPayment(ctx, &model.Payment{ID: "p1", PaymentBatchID: &batchID, Status: model.PaymentBatched}); err != nil {
		t.Fatalf("InsertPayment: %v", err)
	}
	return batch
}

func TestBumpRetryOrFail_RevertsBeforeMaxRetries(t *testing.T) {
	st := memstore.New()
	batch := seedBatchWithActivePayment(t, st, model.BatchAwaitingSignature, 0)
	metrics := observability.New()

	if err := bumpRetryOrFail(context.Background(), st, metrics, "test_worker", batch, model.BatchAwaitingSignature, "transient hiccup"); err != nil {
		t.Fatalf("bumpRetryOrFail: %v", err)
	}

	reloaded, err := st.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if reloaded.Status != model.BatchAwaitingSignature {
		t.Errorf("status = %s, want reverted to AWAITING_SIGNATURE", reloaded.Status)
	}
	if reloaded.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", reloaded.RetryCount)
	}
	if reloaded.ErrorMessage == nil || *reloaded.ErrorMessage != "transient hiccup" {
		t.Errorf("ErrorMessage = %v, want set", reloaded.ErrorMessage)
	}
}

func TestBumpRetryOrFail_FailsAtMaxRetries(t *testing.T) {
	st := memstore.New()
	batch := seedBatchWithActivePayment(t, st, model.BatchAwaitingSignature, model.MaxRetries-1)
	metrics := observability.New()

	if err := bumpRetryOrFail(context.Background(), st, metrics, "test_worker", batch, model.BatchAwaitingSignature, "out of retries"); err != nil {
		t.Fatalf("bumpRetryOrFail: %v", err)
	}

	reloadedBatch, err := st.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if reloadedBatch.Status != model.BatchFailed {
		t.Errorf("status = %s, want FAILED", reloadedBatch.Status)
	}

	payment, err := st.GetPayment(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.Status != model.PaymentFailed {
		t.Errorf("payment status = %s, want FAILED", payment.Status)
	}
	if payment.FailureReason == nil || *payment.FailureReason != "out of retries" {
		t.Errorf("FailureReason = %v, want set", payment.FailureReason)
	}
}

func TestFailBatch_FailsAllActivePaymentsOnly(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	batch := &model.PaymentBatch{ID: "b1", Status: model.BatchAwaitingBroadcast}
	if err := st.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	batchID := batch.ID
	active := &model.Payment{ID: "p1", PaymentBatchID: &batchID, Status: model.PaymentBatched}
	cancelled := &model.Payment{ID: "p2", PaymentBatchID: &batchID, Status: model.PaymentCancelled}
	for _, p := range []*model.Payment{active, cancelled} {
		if err := st.InsertPayment(ctx, p); err != nil {
			t.Fatalf("InsertPayment(%s): %v", p.ID, err)
		}
	}

	metrics := observability.New()
	if err := failBatch(ctx, st, metrics, batch, "terminal error"); err != nil {
		t.Fatalf("failBatch: %v", err)
	}

	gotActive, err := st.GetPayment(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPayment(p1): %v", err)
	}
	if gotActive.Status != model.PaymentFailed {
		t.Errorf("active payment status = %s, want FAILED", gotActive.Status)
	}

	gotCancelled, err := st.GetPayment(ctx, "p2")
	if err != nil {
		t.Fatalf("GetPayment(p2): %v", err)
	}
	if gotCancelled.Status != model.PaymentCancelled {
		t.Errorf("already-cancelled payment status = %s, want left as CANCELLED", gotCancelled.Status)
	}
}

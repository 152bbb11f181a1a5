package memstore

import (
	"context"
	"testing"
	"time"

	"paymentproc/internal/model"
	"paymentproc/internal/store"
)

func TestPaymentCRUD(t *testing.T) {
	s := New()
	ctx := t.Context()

	p := &model.Payment{ID: "p1", ClientID: "c1", AccountName: "acct1", Status: model.PaymentReceived, Amount: 100, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := s.InsertPayment(ctx, p); err != nil {
		t.Fatalf("InsertPayment: %v", err)
	}

	got, err := s.GetPayment(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if got.ClientID != "c1" {
		t.Errorf("ClientID = %s, want c1", got.ClientID)
	}

	if _, err := s.GetPayment(ctx, "nonexistent"); err != store.ErrNotFound {
		t.Errorf("GetPayment(nonexistent) err = %v, want ErrNotFound", err)
	}

	got.Status = model.PaymentConfirmed
	if err := s.UpdatePayment(ctx, got); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	reloaded, err := s.GetPayment(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPayment after update: %v", err)
	}
	if reloaded.Status != model.PaymentConfirmed {
		t.Errorf("status after update = %s, want CONFIRMED", reloaded.Status)
	}
}

func TestUpdatePayment_NotFound(t *testing.T) {
	s := New()
	err := s.UpdatePayment(t.Context(), &model.Payment{ID: "nonexistent"})
	if err != store.ErrNotFound {
		t.Errorf("UpdatePayment(nonexistent) = %v, want ErrNotFound", err)
	}
}

func TestGetPaymentByClientAccount(t *testing.T) {
	s := New()
	ctx := t.Context()
	if err := s.InsertPayment(ctx, &model.Payment{ID: "p1", ClientID: "c1", AccountName: "acct1"}); err != nil {
		t.Fatalf("InsertPayment: %v", err)
	}

	got, err := s.GetPaymentByClientAccount(ctx, "c1", "acct1")
	if err != nil {
		t.Fatalf("GetPaymentByClientAccount: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("ID = %s, want p1", got.ID)
	}

	if _, err := s.GetPaymentByClientAccount(ctx, "c1", "acct2"); err != store.ErrNotFound {
		t.Errorf("GetPaymentByClientAccount wrong account = %v, want ErrNotFound", err)
	}
}

func TestListActivePaymentsByBatch_ExcludesCancelledAndFailed(t *testing.T) {
	s := New()
	ctx := t.Context()
	batchID := "b1"
	payments := []*model.Payment{
		{ID: "p1", PaymentBatchID: &batchID, Status: model.PaymentBatched},
		{ID: "p2", PaymentBatchID: &batchID, Status: model.PaymentCancelled},
		{ID: "p3", PaymentBatchID: &batchID, Status: model.PaymentFailed},
		{ID: "p4", PaymentBatchID: &batchID, Status: model.PaymentConfirmed},
	}
	for _, p := range payments {
		if err := s.InsertPayment(ctx, p); err != nil {
			t.Fatalf("InsertPayment(%s): %v", p.ID, err)
		}
	}

	active, err := s.ListActivePaymentsByBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("ListActivePaymentsByBatch: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active payments, want 2 (p1, p4)", len(active))
	}
}

func TestBatchCRUDAndCountByStatus(t *testing.T) {
	s := New()
	ctx := t.Context()

	b1 := &model.PaymentBatch{ID: "b1", Status: model.BatchPendingBatching}
	b2 := &model.PaymentBatch{ID: "b2", Status: model.BatchPendingBatching}
	b3 := &model.PaymentBatch{ID: "b3", Status: model.BatchConfirmed}
	for _, b := range []*model.PaymentBatch{b1, b2, b3} {
		if err := s.InsertBatch(ctx, b); err != nil {
			t.Fatalf("InsertBatch(%s): %v", b.ID, err)
		}
	}

	pending, err := s.ListBatchesByStatus(ctx, model.BatchPendingBatching, 0)
	if err != nil {
		t.Fatalf("ListBatchesByStatus: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending batches, want 2", len(pending))
	}

	counts, err := s.CountBatchesByStatus(ctx)
	if err != nil {
		t.Fatalf("CountBatchesByStatus: %v", err)
	}
	if counts[model.BatchPendingBatching] != 2 || counts[model.BatchConfirmed] != 1 {
		t.Errorf("counts = %+v, want PENDING_BATCHING=2 CONFIRMED=1", counts)
	}
}

func TestWithinTx_WriteVisibleAfterCommit(t *testing.T) {
	s := New()
	ctx := t.Context()
	err := s.WithinTx(ctx, func(ctx context.Context, q store.Queries) error {
		return q.InsertBatch(ctx, &model.PaymentBatch{ID: "b1", Status: model.BatchPendingBatching})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	got, err := s.GetBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Status != model.BatchPendingBatching {
		t.Errorf("status = %s, want PENDING_BATCHING", got.Status)
	}
}

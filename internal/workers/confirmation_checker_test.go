package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"paymentproc/internal/basenode"
	"paymentproc/internal/config"
	"paymentproc/internal/model"
	"paymentproc/internal/observability"
	"paymentproc/internal/store/memstore"
	"paymentproc/internal/txpayload"
)

func minedBaseNode(t *testing.T, minedHeight, tipHeight int64, headerHash string) *basenode.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/query":
			json.NewEncoder(w).Encode(basenode.QueryResult{Location: basenode.LocationMined, MinedHeight: &minedHeight, MinedHeaderHash: &headerHash})
		case "/tip":
			w.Write([]byte(`{"metadata":{"best_block_height":` + itoa(tipHeight) + `}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return basenode.New(srv.URL)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func seedAwaitingConfirmBatch(t *testing.T, st *memstore.Store, sentHashes ...string) *model.PaymentBatch {
	t.Helper()
	ctx := context.Background()
	raw, err := json.Marshal(txpayload.SignedPayload{KernelPublicNonce: "n1", KernelSignature: "s1", SentHashes: sentHashes})
	if err != nil {
		t.Fatalf("marshal SignedPayload: %v", err)
	}
	signedJSON, err := txpayload.MarshalPayload(&txpayload.Payload{Steps: []txpayload.Step{
		{StepIndex: 0, IsConsolidation: false, TxID: "b1-payout", Signed: raw},
	}})
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}
	batch := &model.PaymentBatch{ID: "b1", Status: model.BatchAwaitingConfirm, SignedTxJSON: &signedJSON}
	if err := st.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	batchID := batch.ID
	for i, hash := range sentHashes {
		id := "p-" + string(rune('a'+i))
		if err := st.InsertPayment(ctx, &model.Payment{ID: id, PaymentBatchID: &batchID, Status: model.PaymentBatched, RecipientAddress: hash}); err != nil {
			t.Fatalf("InsertPayment: %v", err)
		}
	}
	return batch
}

func TestConfirmationChecker_ConfirmsAfterEnoughConfirmations(t *testing.T) {
	st := memstore.New()
	seedAwaitingConfirmBatch(t, st, "sent-hash-1")

	cfg := &config.Config{RequiredConfirmations: 3}
	w := NewConfirmationChecker(st, minedBaseNode(t, 100, 103, "header-hash-1"), cfg, observability.New(), discardLogger())
	if _, err := w.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	batch, err := st.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != model.BatchConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", batch.Status)
	}

	payment, err := st.GetPayment(context.Background(), "p-a")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.Status != model.PaymentConfirmed || payment.Payref == nil {
		t.Errorf("payment = %+v, want CONFIRMED with a payref set", payment)
	}
}

func TestConfirmationChecker_NotEnoughConfirmationsYet(t *testing.T) {
	st := memstore.New()
	seedAwaitingConfirmBatch(t, st, "sent-hash-1")

	cfg := &config.Config{RequiredConfirmations: 10}
	w := NewConfirmationChecker(st, minedBaseNode(t, 100, 101, "header-hash-1"), cfg, observability.New(), discardLogger())
	if _, err := w.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	batch, err := st.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != model.BatchAwaitingConfirm {
		t.Errorf("status = %s, want left at AWAITING_CONFIRMATION", batch.Status)
	}
}

func TestConfirmationChecker_SentHashesMismatchFailsBatch(t *testing.T) {
	st := memstore.New()
	seedAwaitingConfirmBatch(t, st, "sent-hash-1", "sent-hash-2")
	// Cancel the second seeded payment so one active payment remains
	// against two sent hashes.
	second, err := st.GetPayment(context.Background(), "p-b")
	if err != nil {
		t.Fatalf("GetPayment(p-b): %v", err)
	}
	second.Status = model.PaymentCancelled
	if err := st.UpdatePayment(context.Background(), second); err != nil {
		t.Fatalf("UpdatePayment(p-b): %v", err)
	}

	cfg := &config.Config{RequiredConfirmations: 1}
	w := NewConfirmationChecker(st, minedBaseNode(t, 100, 101, "header-hash-1"), cfg, observability.New(), discardLogger())
	if _, err := w.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	batch, err := st.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != model.BatchFailed {
		t.Errorf("status = %s, want FAILED (sent_hashes count 2 != active payment count 1)", batch.Status)
	}
}

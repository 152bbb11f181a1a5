package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"paymentproc/internal/config"
	"paymentproc/internal/intake"
	"paymentproc/internal/observability"
	"paymentproc/internal/store"
	"paymentproc/internal/store/memstore"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	st := memstore.New()
	accountExists := func(name string) bool { return name == "acct1" }
	svc := intake.New(st, accountExists, testLogger())
	cfg := &config.Config{Network: "testnet"}
	return NewRouter(svc, st, cfg, observability.New(), testLogger()), st
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreatePayment_RejectsUnknownAccount(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v1/payments", paymentRequest{
		ClientID: "c1", AccountName: "unknown-acct", RecipientAddress: "addr1", Amount: 1000,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePayment_ThenGetPayment(t *testing.T) {
	router, _ := testRouter(t)
	createRec := doJSON(t, router, http.MethodPost, "/v1/payments", paymentRequest{
		ClientID: "c1", AccountName: "acct1", RecipientAddress: "addr1", Amount: 1000,
	})
	if createRec.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, want 202, body = %s", createRec.Code, createRec.Body.String())
	}
	var created paymentResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}

	getRec := doJSON(t, router, http.MethodGet, "/v1/payments/"+created.ID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200, body = %s", getRec.Code, getRec.Body.String())
	}
	var fetched paymentResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("unmarshal get response: %v", err)
	}
	if fetched.ID != created.ID || fetched.Status != "RECEIVED" {
		t.Errorf("fetched = %+v, want matching id with status RECEIVED", fetched)
	}
}

func TestGetPayment_NotFound(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v1/payments/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBatch_ThenCancelPayment(t *testing.T) {
	router, _ := testRouter(t)
	createRec := doJSON(t, router, http.MethodPost, "/v1/payment-batches", bulkBatchRequest{
		AccountName: "acct1",
		Items: []bulkBatchItemRequest{
			{ClientID: "c1", RecipientAddress: "a1", Amount: 100},
		},
	})
	if createRec.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, want 202, body = %s", createRec.Code, createRec.Body.String())
	}
	var created batchResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if len(created.Payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(created.Payments))
	}

	cancelRec := doJSON(t, router, http.MethodPost, "/v1/payments/"+created.Payments[0].ID+"/cancel", nil)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200, body = %s", cancelRec.Code, cancelRec.Body.String())
	}
	var cancelled cancelResponse
	if err := json.Unmarshal(cancelRec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("unmarshal cancel response: %v", err)
	}
	if cancelled.Status != "CANCELLED" {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
}

func TestHealthVersion(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body versionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal version response: %v", err)
	}
	if body.Network != "testnet" {
		t.Errorf("network = %s, want testnet", body.Network)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Error("Content-Type header not set on /metrics response")
	}
}

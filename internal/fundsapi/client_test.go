package fundsapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct1/balance" {
			t.Errorf("path = %s, want /accounts/acct1/balance", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Balance{TotalCredits: 5000, TotalDebits: 1000})
	}))
	defer srv.Close()

	c := New(srv.URL)
	balance, err := c.GetBalance(t.Context(), "acct1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got := balance.Available(); got != 4000 {
		t.Errorf("Available() = %d, want 4000", got)
	}
}

func TestGetBalance_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.GetBalance(t.Context(), "acct1"); err == nil {
		t.Fatal("GetBalance with a 500 response, want error")
	}
}

func TestLockFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req LockFundsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 150000 || req.IdempotencyKey != "idem-1" {
			t.Errorf("request = %+v, want amount 150000 idempotency_key idem-1", req)
		}
		json.NewEncoder(w).Encode(LockFundsResponse{UTXOs: []UTXO{{Commitment: "c1", Value: 100000}, {Commitment: "c2", Value: 50000}}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.LockFunds(t.Context(), "acct1", 150000, "idem-1")
	if err != nil {
		t.Fatalf("LockFunds: %v", err)
	}
	if len(resp.UTXOs) != 2 {
		t.Fatalf("got %d UTXOs, want 2", len(resp.UTXOs))
	}
}

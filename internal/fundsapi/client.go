// Package fundsapi is a thin HTTP client for the Funds API collaborator:
// it locks UTXOs for an account and reports balances. The wire format and
// the UTXO encoding itself are opaque to the core (spec §6).
package fundsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the Funds API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Funds API client against baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Balance is the response of GetBalance.
type Balance struct {
	TotalCredits int64 `json:"total_credits"`
	TotalDebits  int64 `json:"total_debits"`
}

// Available returns the spendable balance (credits minus debits).
func (b Balance) Available() int64 {
	return b.TotalCredits - b.TotalDebits
}

// GetBalance fetches the current balance for account.
func (c *Client) GetBalance(ctx context.Context, account string) (Balance, error) {
	var out Balance
	url := fmt.Sprintf("%s/accounts/%s/balance", c.baseURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("funds api get_balance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("funds api get_balance: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("funds api get_balance: decode: %w", err)
	}
	return out, nil
}

// UTXO is an opaque unspent output as returned by the Funds API.
type UTXO struct {
	Commitment string          `json:"commitment"`
	Value      int64           `json:"value"`
	Raw        json.RawMessage `json:"raw"`
}

// LockFundsRequest is the lock_funds request body.
type LockFundsRequest struct {
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// LockFundsResponse is the lock_funds response body.
type LockFundsResponse struct {
	UTXOs []UTXO `json:"utxos"`
}

// LockFunds locks amount base units of account's funds, returning the
// UTXOs chosen to cover it. idempotencyKey makes retried calls replay-safe:
// the same key always returns the same UTXO set.
func (c *Client) LockFunds(ctx context.Context, account string, amount int64, idempotencyKey string) (LockFundsResponse, error) {
	var out LockFundsResponse
	body, err := json.Marshal(LockFundsRequest{Amount: amount, IdempotencyKey: idempotencyKey})
	if err != nil {
		return out, err
	}
	url := fmt.Sprintf("%s/accounts/%s/lock-funds", c.baseURL, account)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("funds api lock_funds: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("funds api lock_funds: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("funds api lock_funds: decode: %w", err)
	}
	return out, nil
}

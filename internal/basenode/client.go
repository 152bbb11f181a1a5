// Package basenode is a thin HTTP client for the Base Node collaborator:
// submitting transactions and querying their chain location.
package basenode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Location is a transaction's on-chain status as reported by the node.
type Location string

const (
	LocationInMempool Location = "IN_MEMPOOL"
	LocationMined     Location = "MINED"
	LocationNotStored Location = "NOT_STORED"
	LocationNone      Location = "NONE"
)

// Client talks to the Base Node over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Base Node client against baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// SubmitResult is the response of SubmitTransaction.
type SubmitResult struct {
	Accepted        bool   `json:"accepted"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// SubmitTransaction submits an opaque signed transaction payload.
func (c *Client) SubmitTransaction(ctx context.Context, tx json.RawMessage) (SubmitResult, error) {
	var out SubmitResult
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(tx))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("base node submit_transaction: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("base node submit_transaction: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("base node submit_transaction: decode: %w", err)
	}
	return out, nil
}

// QueryResult is the response of TransactionQuery.
type QueryResult struct {
	Location        Location `json:"location"`
	MinedHeight      *int64   `json:"mined_height,omitempty"`
	MinedHeaderHash  *string  `json:"mined_header_hash,omitempty"`
	MinedTimestamp   *int64   `json:"mined_timestamp,omitempty"`
}

// TransactionQuery looks up a transaction by its kernel signature.
func (c *Client) TransactionQuery(ctx context.Context, kernelNonce, kernelSig string) (QueryResult, error) {
	var out QueryResult
	url := fmt.Sprintf("%s/transactions/query?nonce=%s&sig=%s", c.baseURL, kernelNonce, kernelSig)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("base node transaction_query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("base node transaction_query: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("base node transaction_query: decode: %w", err)
	}
	return out, nil
}

// TipInfo is the response of GetTipInfo.
type TipInfo struct {
	Metadata struct {
		BestBlockHeight int64 `json:"best_block_height"`
	} `json:"metadata"`
}

// GetTipInfo returns the current chain tip.
func (c *Client) GetTipInfo(ctx context.Context) (TipInfo, error) {
	var out TipInfo
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tip", nil)
	if err != nil {
		return out, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("base node get_tip_info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("base node get_tip_info: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("base node get_tip_info: decode: %w", err)
	}
	return out, nil
}

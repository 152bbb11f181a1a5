package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paymentproc/internal/apperr"
	"paymentproc/internal/config"
	"paymentproc/internal/intake"
	"paymentproc/internal/model"
	"paymentproc/internal/store"
)

type handlers struct {
	svc   *intake.Service
	store store.Store
	cfg   *config.Config
}

type paymentRequest struct {
	ClientID         string  `json:"client_id"`
	AccountName      string  `json:"account_name"`
	RecipientAddress string  `json:"recipient_address"`
	Amount           int64   `json:"amount"`
	PaymentID        *string `json:"payment_id,omitempty"`
}

type paymentResponse struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"client_id"`
	AccountName      string  `json:"account_name"`
	Status           string  `json:"status"`
	PaymentBatchID   *string `json:"payment_batch_id,omitempty"`
	RecipientAddress string  `json:"recipient_address"`
	Amount           int64   `json:"amount"`
	PaymentID        *string `json:"payment_id,omitempty"`
	Payref           *string `json:"payref,omitempty"`
	FailureReason    *string `json:"failure_reason,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		ClientID:         p.ClientID,
		AccountName:      p.AccountName,
		Status:           string(p.Status),
		PaymentBatchID:   p.PaymentBatchID,
		RecipientAddress: p.RecipientAddress,
		Amount:           p.Amount,
		PaymentID:        p.PaymentID,
		Payref:           p.Payref,
		FailureReason:    p.FailureReason,
		CreatedAt:        p.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:        p.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// createPayment implements spec §6 "POST /v1/payments".
func (h *handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "httpapi", err))
		return
	}
	result, err := h.svc.CreateSinglePayment(r.Context(), req.ClientID, req.AccountName, req.RecipientAddress, req.Amount, req.PaymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusAccepted
	if !result.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, toPaymentResponse(result.Payment))
}

// getPayment implements spec §6 "GET /v1/payments/{id}".
func (h *handlers) getPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.GetPayment(r.Context(), id)
	if err == store.ErrNotFound {
		writeError(w, apperr.New(apperr.NotFound, "httpapi", err))
		return
	}
	if err != nil {
		writeError(w, apperr.New(apperr.Transient, "httpapi", err))
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

type cancelResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// cancelPayment implements spec §6 "POST /v1/payments/{id}/cancel".
func (h *handlers) cancelPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.CancelPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{PaymentID: p.ID, Status: string(p.Status)})
}

type bulkBatchItemRequest struct {
	ClientID         string  `json:"client_id"`
	RecipientAddress string  `json:"recipient_address"`
	Amount           int64   `json:"amount"`
	PaymentID        *string `json:"payment_id,omitempty"`
}

type bulkBatchRequest struct {
	AccountName string                 `json:"account_name"`
	Items       []bulkBatchItemRequest `json:"items"`
}

type batchResponse struct {
	ID               string            `json:"id"`
	AccountName      string            `json:"account_name"`
	Status           string            `json:"status"`
	PrIdempotencyKey string            `json:"pr_idempotency_key"`
	RetryCount       int               `json:"retry_count"`
	Payments         []paymentResponse `json:"payments"`
}

// createBatch implements spec §6 "POST /v1/payment-batches".
func (h *handlers) createBatch(w http.ResponseWriter, r *http.Request) {
	var req bulkBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "httpapi", err))
		return
	}
	items := make([]intake.BulkItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = intake.BulkItem{
			ClientID:         it.ClientID,
			RecipientAddress: it.RecipientAddress,
			Amount:           it.Amount,
			PaymentID:        it.PaymentID,
		}
	}
	result, err := h.svc.CreateBulkBatch(r.Context(), req.AccountName, items)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusAccepted
	if !result.Created {
		status = http.StatusOK
	}
	payments := make([]paymentResponse, len(result.Payments))
	for i, p := range result.Payments {
		payments[i] = toPaymentResponse(p)
	}
	writeJSON(w, status, batchResponse{
		ID:               result.Batch.ID,
		AccountName:      result.Batch.AccountName,
		Status:           string(result.Batch.Status),
		PrIdempotencyKey: result.Batch.PrIdempotencyKey,
		RetryCount:       result.Batch.RetryCount,
		Payments:         payments,
	})
}

package model

import "time"

// PaymentStatus is the lifecycle status of a single outbound transfer.
type PaymentStatus string

const (
	PaymentReceived  PaymentStatus = "RECEIVED"
	PaymentBatched   PaymentStatus = "BATCHED"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// IsTerminal reports whether status is one a payment never leaves.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentConfirmed, PaymentFailed, PaymentCancelled:
		return true
	default:
		return false
	}
}

// Payment is a single outbound transfer request.
type Payment struct {
	ID               string
	ClientID         string
	AccountName      string
	Status           PaymentStatus
	PaymentBatchID   *string
	RecipientAddress string
	Amount           int64
	PaymentID        *string // caller-supplied memo, distinct from the server ID
	Payref           *string
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the payment still participates in its batch
// (not cancelled, not failed).
func (p *Payment) IsActive() bool {
	return p.Status != PaymentCancelled && p.Status != PaymentFailed
}

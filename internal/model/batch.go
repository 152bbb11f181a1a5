package model

import "time"

// BatchStatus is the lifecycle status of a PaymentBatch.
type BatchStatus string

const (
	BatchPendingBatching     BatchStatus = "PENDING_BATCHING"
	BatchAwaitingSignature   BatchStatus = "AWAITING_SIGNATURE"
	BatchSigningInProgress   BatchStatus = "SIGNING_IN_PROGRESS"
	BatchAwaitingBroadcast   BatchStatus = "AWAITING_BROADCAST"
	BatchBroadcasting        BatchStatus = "BROADCASTING"
	BatchAwaitingConfirm     BatchStatus = "AWAITING_CONFIRMATION"
	BatchConfirmed           BatchStatus = "CONFIRMED"
	BatchFailed              BatchStatus = "FAILED"
	BatchCancelled           BatchStatus = "CANCELLED"
)

// IsTerminal reports whether status is one a batch never leaves.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchConfirmed, BatchFailed, BatchCancelled:
		return true
	default:
		return false
	}
}

// MaxRetries is the retry_count ceiling; reaching it fails a batch and
// its active payments.
const MaxRetries = 10

// PaymentBatch is a unit of orchestrated on-chain work for one account.
type PaymentBatch struct {
	ID                      string
	AccountName             string
	PrIdempotencyKey        string
	Status                  BatchStatus
	UnsignedTxJSON          *string
	SignedTxJSON            *string
	IntermediateContextJSON *string
	ErrorMessage            *string
	RetryCount              int
	MinedHeight             *int64
	MinedHeaderHash         *string
	MinedTimestamp          *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// CancellableByUser reports whether a payment belonging to this batch may
// still be cancelled per spec §4.1 ("cancel payment").
func (b *PaymentBatch) CancellableByUser() bool {
	return b.Status == BatchPendingBatching || b.Status == BatchAwaitingSignature
}

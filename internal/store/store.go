// Package store is the durable persistence layer: two tables, payments
// and payment_batches, mutated through short transactions so every state
// transition is crash-safe (spec §5).
package store

import (
	"context"
	"errors"

	"paymentproc/internal/model"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// Queries is the set of operations available either directly against the
// pool or scoped to a transaction via Store.WithinTx.
type Queries interface {
	// Payments
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	GetPaymentByClientAccount(ctx context.Context, clientID, accountName string) (*model.Payment, error)
	GetPaymentsByClientIDs(ctx context.Context, accountName string, clientIDs []string) ([]*model.Payment, error)
	InsertPayment(ctx context.Context, p *model.Payment) error
	UpdatePayment(ctx context.Context, p *model.Payment) error
	ListPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error)
	ListActivePaymentsByBatch(ctx context.Context, batchID string) ([]*model.Payment, error)

	// Batches
	GetBatch(ctx context.Context, id string) (*model.PaymentBatch, error)
	InsertBatch(ctx context.Context, b *model.PaymentBatch) error
	UpdateBatch(ctx context.Context, b *model.PaymentBatch) error
	ListBatchesByStatus(ctx context.Context, status model.BatchStatus, limit int) ([]*model.PaymentBatch, error)
	CountBatchesByStatus(ctx context.Context) (map[model.BatchStatus]int, error)
}

// Store is Queries plus the ability to run a group of them atomically.
type Store interface {
	Queries
	WithinTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

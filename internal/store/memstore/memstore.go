// Package memstore is an in-memory Store used by unit tests, the
// idiomatic Go stand-in for a database in tests that don't need a live
// Postgres instance.
package memstore

import (
	"context"
	"sync"

	"paymentproc/internal/model"
	"paymentproc/internal/store"
)

// Store is a goroutine-safe in-memory implementation of store.Store.
type Store struct {
	mu       sync.Mutex
	payments map[string]*model.Payment
	batches  map[string]*model.PaymentBatch
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		payments: make(map[string]*model.Payment),
		batches:  make(map[string]*model.PaymentBatch),
	}
}

// WithinTx runs fn against this store directly: the in-memory store has
// no real transactions, but since all of its operations already hold the
// single mutex for their duration, grouping several of them inside one
// WithinTx call is still atomic with respect to concurrent callers.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &locked{s})
}

// locked exposes Queries methods that assume the caller already holds s.mu
// (used from within WithinTx, and as the direct non-tx path below).
type locked struct{ s *Store }

func (s *Store) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).GetPayment(ctx, id)
}
func (s *Store) GetPaymentByClientAccount(ctx context.Context, clientID, accountName string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).GetPaymentByClientAccount(ctx, clientID, accountName)
}
func (s *Store) GetPaymentsByClientIDs(ctx context.Context, accountName string, clientIDs []string) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).GetPaymentsByClientIDs(ctx, accountName, clientIDs)
}
func (s *Store) InsertPayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).InsertPayment(ctx, p)
}
func (s *Store) UpdatePayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).UpdatePayment(ctx, p)
}
func (s *Store) ListPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).ListPaymentsByStatus(ctx, status, limit)
}
func (s *Store) ListActivePaymentsByBatch(ctx context.Context, batchID string) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).ListActivePaymentsByBatch(ctx, batchID)
}
func (s *Store) GetBatch(ctx context.Context, id string) (*model.PaymentBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).GetBatch(ctx, id)
}
func (s *Store) InsertBatch(ctx context.Context, b *model.PaymentBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).InsertBatch(ctx, b)
}
func (s *Store) UpdateBatch(ctx context.Context, b *model.PaymentBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).UpdateBatch(ctx, b)
}
func (s *Store) ListBatchesByStatus(ctx context.Context, status model.BatchStatus, limit int) ([]*model.PaymentBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).ListBatchesByStatus(ctx, status, limit)
}
func (s *Store) CountBatchesByStatus(ctx context.Context) (map[model.BatchStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&locked{s}).CountBatchesByStatus(ctx)
}

func (l *locked) GetPayment(_ context.Context, id string) (*model.Payment, error) {
	p, ok := l.s.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *locked) GetPaymentByClientAccount(_ context.Context, clientID, accountName string) (*model.Payment, error) {
	for _, p := range l.s.payments {
		if p.ClientID == clientID && p.AccountName == accountName {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (l *locked) GetPaymentsByClientIDs(_ context.Context, accountName string, clientIDs []string) ([]*model.Payment, error) {
	want := make(map[string]bool, len(clientIDs))
	for _, c := range clientIDs {
		want[c] = true
	}
	var out []*model.Payment
	for _, p := range l.s.payments {
		if p.AccountName == accountName && want[p.ClientID] {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *locked) InsertPayment(_ context.Context, p *model.Payment) error {
	cp := *p
	l.s.payments[p.ID] = &cp
	return nil
}

func (l *locked) UpdatePayment(_ context.Context, p *model.Payment) error {
	if _, ok := l.s.payments[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	l.s.payments[p.ID] = &cp
	return nil
}

func (l *locked) ListPaymentsByStatus(_ context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range l.s.payments {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (l *locked) ListActivePaymentsByBatch(_ context.Context, batchID string) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range l.s.payments {
		if p.PaymentBatchID != nil && *p.PaymentBatchID == batchID && p.IsActive() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *locked) GetBatch(_ context.Context, id string) (*model.PaymentBatch, error) {
	b, ok := l.s.batches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (l *locked) InsertBatch(_ context.Context, b *model.PaymentBatch) error {
	cp := *b
	l.s.batches[b.ID] = &cp
	return nil
}

func (l *locked) UpdateBatch(_ context.Context, b *model.PaymentBatch) error {
	if _, ok := l.s.batches[b.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *b
	l.s.batches[b.ID] = &cp
	return nil
}

func (l *locked) ListBatchesByStatus(_ context.Context, status model.BatchStatus, limit int) ([]*model.PaymentBatch, error) {
	var out []*model.PaymentBatch
	for _, b := range l.s.batches {
		if b.Status == status {
			cp := *b
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (l *locked) CountBatchesByStatus(_ context.Context) (map[model.BatchStatus]int, error) {
	out := make(map[model.BatchStatus]int)
	for _, b := range l.s.batches {
		out[b.Status]++
	}
	return out, nil
}

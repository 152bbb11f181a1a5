package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"paymentproc/internal/model"
)

type queries struct {
	ex execer
}

func (q queries) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	row := q.ex.QueryRowContext(ctx, `
		SELECT id, client_id, account_name, status, payment_batch_id, recipient_address,
		       amount, payment_id, payref, failure_reason, created_at, updated_at
		FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (q queries) GetPaymentByClientAccount(ctx context.Context, clientID, accountName string) (*model.Payment, error) {
	row := q.ex.QueryRowContext(ctx, `
		SELECT id, client_id, account_name, status, payment_batch_id, recipient_address,
		       amount, payment_id, payref, failure_reason, created_at, updated_at
		FROM payments WHERE client_id = $1 AND account_name = $2`, clientID, accountName)
	return scanPayment(row)
}

func (q queries) GetPaymentsByClientIDs(ctx context.Context, accountName string, clientIDs []string) ([]*model.Payment, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	rows, err := q.ex.QueryContext(ctx, `
		SELECT id, client_id, account_name, status, payment_batch_id, recipient_address,
		       amount, payment_id, payref, failure_reason, created_at, updated_at
		FROM payments WHERE account_name = $1 AND client_id = ANY($2)`, accountName, pq.Array(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("store: get payments by client ids: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (q queries) InsertPayment(ctx context.Context, p *model.Payment) error {
	_, err := q.ex.ExecContext(ctx, `
		INSERT INTO payments (id, client_id, account_name, status, payment_batch_id,
		                       recipient_address, amount, payment_id, payref, failure_reason,
		                       created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.ClientID, p.AccountName, p.Status, p.PaymentBatchID, p.RecipientAddress,
		p.Amount, p.PaymentID, p.Payref, p.FailureReason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert payment: %w", err)
	}
	return nil
}

func (q queries) UpdatePayment(ctx context.Context, p *model.Payment) error {
	_, err := q.ex.ExecContext(ctx, `
		UPDATE payments SET status=$2, payment_batch_id=$3, payref=$4, failure_reason=$5,
		       updated_at=$6
		WHERE id=$1`,
		p.ID, p.Status, p.PaymentBatchID, p.Payref, p.FailureReason, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: update payment: %w", err)
	}
	return nil
}

func (q queries) ListPaymentsByStatus(ctx context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	rows, err := q.ex.QueryContext(ctx, `
		SELECT id, client_id, account_name, status, payment_batch_id, recipient_address,
		       amount, payment_id, payref, failure_reason, created_at, updated_at
		FROM payments WHERE status = $1 ORDER BY created_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list payments by status: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (q queries) ListActivePaymentsByBatch(ctx context.Context, batchID string) ([]*model.Payment, error) {
	rows, err := q.ex.QueryContext(ctx, `
		SELECT id, client_id, account_name, status, payment_batch_id, recipient_address,
		       amount, payment_id, payref, failure_reason, created_at, updated_at
		FROM payments
		WHERE payment_batch_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at`, batchID, model.PaymentCancelled, model.PaymentFailed)
	if err != nil {
		return nil, fmt.Errorf("store: list active payments by batch: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayment(row *sql.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.ClientID, &p.AccountName, &p.Status, &p.PaymentBatchID,
		&p.RecipientAddress, &p.Amount, &p.PaymentID, &p.Payref, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan payment: %w", err)
	}
	return &p, nil
}

func scanPayments(rows *sql.Rows) ([]*model.Payment, error) {
	var out []*model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.AccountName, &p.Status, &p.PaymentBatchID,
			&p.RecipientAddress, &p.Amount, &p.PaymentID, &p.Payref, &p.FailureReason,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan payment row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

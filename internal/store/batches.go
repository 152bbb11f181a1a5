package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paymentproc/internal/model"
)

func (q queries) GetBatch(ctx context.Context, id string) (*model.PaymentBatch, error) {
	row := q.ex.QueryRowContext(ctx, `
		SELECT id, account_name, pr_idempotency_key, status, unsigned_tx_json, signed_tx_json,
		       intermediate_context_json, error_message, retry_count, mined_height,
		       mined_header_hash, mined_timestamp, created_at, updated_at
		FROM payment_batches WHERE id = $1`, id)
	return scanBatch(row)
}

func (q queries) InsertBatch(ctx context.Context, b *model.PaymentBatch) error {
	_, err := q.ex.ExecContext(ctx, `
		INSERT INTO payment_batches (id, account_name, pr_idempotency_key, status, unsigned_tx_json,
		                              signed_tx_json, intermediate_context_json, error_message,
		                              retry_count, mined_height, mined_header_hash, mined_timestamp,
		                              created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID, b.AccountName, b.PrIdempotencyKey, b.Status, b.UnsignedTxJSON, b.SignedTxJSON,
		b.IntermediateContextJSON, b.ErrorMessage, b.RetryCount, b.MinedHeight, b.MinedHeaderHash,
		b.MinedTimestamp, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert batch: %w", err)
	}
	return nil
}

func (q queries) UpdateBatch(ctx context.Context, b *model.PaymentBatch) error {
	_, err := q.ex.ExecContext(ctx, `
		UPDATE payment_batches SET status=$2, unsigned_tx_json=$3, signed_tx_json=$4,
		       intermediate_context_json=$5, error_message=$6, retry_count=$7, mined_height=$8,
		       mined_header_hash=$9, mined_timestamp=$10, updated_at=$11
		WHERE id=$1`,
		b.ID, b.Status, b.UnsignedTxJSON, b.SignedTxJSON, b.IntermediateContextJSON,
		b.ErrorMessage, b.RetryCount, b.MinedHeight, b.MinedHeaderHash, b.MinedTimestamp, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: update batch: %w", err)
	}
	return nil
}

func (q queries) ListBatchesByStatus(ctx context.Context, status model.BatchStatus, limit int) ([]*model.PaymentBatch, error) {
	rows, err := q.ex.QueryContext(ctx, `
		SELECT id, account_name, pr_idempotency_key, status, unsigned_tx_json, signed_tx_json,
		       intermediate_context_json, error_message, retry_count, mined_height,
		       mined_header_hash, mined_timestamp, created_at, updated_at
		FROM payment_batches WHERE status = $1 ORDER BY created_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list batches by status: %w", err)
	}
	defer rows.Close()
	var out []*model.PaymentBatch
	for rows.Next() {
		b, err := scanBatchRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q queries) CountBatchesByStatus(ctx context.Context) (map[model.BatchStatus]int, error) {
	rows, err := q.ex.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM payment_batches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store: count batches by status: %w", err)
	}
	defer rows.Close()
	out := make(map[model.BatchStatus]int)
	for rows.Next() {
		var status model.BatchStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("store: scan batch status count: %w", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

func scanBatch(row *sql.Row) (*model.PaymentBatch, error) {
	var b model.PaymentBatch
	err := row.Scan(&b.ID, &b.AccountName, &b.PrIdempotencyKey, &b.Status, &b.UnsignedTxJSON,
		&b.SignedTxJSON, &b.IntermediateContextJSON, &b.ErrorMessage, &b.RetryCount,
		&b.MinedHeight, &b.MinedHeaderHash, &b.MinedTimestamp, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan batch: %w", err)
	}
	return &b, nil
}

func scanBatchRow(rows *sql.Rows) (*model.PaymentBatch, error) {
	var b model.PaymentBatch
	if err := rows.Scan(&b.ID, &b.AccountName, &b.PrIdempotencyKey, &b.Status, &b.UnsignedTxJSON,
		&b.SignedTxJSON, &b.IntermediateContextJSON, &b.ErrorMessage, &b.RetryCount,
		&b.MinedHeight, &b.MinedHeaderHash, &b.MinedTimestamp, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: scan batch row: %w", err)
	}
	return &b, nil
}

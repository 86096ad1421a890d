package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

const idempotencyColumns = `scope, key, state, response_status, response_body, created_at, expires_at`

// IdempotencyRepository persists the (operation scope, key) ledger.
type IdempotencyRepository struct {
	db *sqlx.DB
}

// NewIdempotencyRepository constructs the repository.
func NewIdempotencyRepository(db *sqlx.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Acquire attempts to take the slot for (scope, key). It returns
// (true, nil, nil) when this caller owns the slot and must execute the
// operation, or (false, record, nil) when another request already holds it.
// Expired rows are purged first so a stale key can be reused.
func (r *IdempotencyRepository) Acquire(ctx context.Context, scope, key string, now, expiresAt time.Time) (bool, *models.IdempotencyRecord, error) {
	const purge = `DELETE FROM idempotency_keys WHERE scope = $1 AND key = $2 AND expires_at <= $3`
	if _, err := r.db.ExecContext(ctx, purge, scope, key, now); err != nil {
		return false, nil, fmt.Errorf("purge expired idempotency key: %w", err)
	}

	const insert = `INSERT INTO idempotency_keys (scope, key, state, response_status, response_body, created_at, expires_at)
VALUES ($1, $2, 'pending', 0, NULL, $3, $4)
ON CONFLICT (scope, key) DO NOTHING`
	res, err := r.db.ExecContext(ctx, insert, scope, key, now, expiresAt)
	if err != nil {
		return false, nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if rows == 1 {
		return true, nil, nil
	}

	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE scope = $1 AND key = $2`
	var record models.IdempotencyRecord
	if err := r.db.GetContext(ctx, &record, query, scope, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row vanished between insert and select (concurrent purge);
			// treat as a transient conflict the caller may retry.
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("load idempotency key: %w", err)
	}
	return false, &record, nil
}

// Complete stores the first successful response for replay.
func (r *IdempotencyRepository) Complete(ctx context.Context, scope, key string, status int, body []byte) error {
	const query = `UPDATE idempotency_keys SET state = 'completed', response_status = $1, response_body = $2
WHERE scope = $3 AND key = $4`
	if _, err := r.db.ExecContext(ctx, query, status, body, scope, key); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a pending slot after a failed execution so the caller can
// retry with the same key. Completed slots are never released.
func (r *IdempotencyRepository) Release(ctx context.Context, scope, key string) error {
	const query = `DELETE FROM idempotency_keys WHERE scope = $1 AND key = $2 AND state = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, scope, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// DeleteExpired garbage-collects records past their retention window.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM idempotency_keys WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	return rows, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

// WorkerRepository persists registered worker identities.
type WorkerRepository struct {
	db *sqlx.DB
}

// NewWorkerRepository constructs the repository.
func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// Create inserts a new worker row.
func (r *WorkerRepository) Create(ctx context.Context, w *models.Worker) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Role == "" {
		w.Role = models.RoleWorker
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO workers (id, name, secret_hash, role, active, created_at, last_seen_at)
VALUES (:id, :name, :secret_hash, :role, :active, :created_at, :last_seen_at)`
	if _, err := r.db.NamedExecContext(ctx, query, w); err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	return nil
}

// FindByID returns a worker row by its identifier.
func (r *WorkerRepository) FindByID(ctx context.Context, id string) (*models.Worker, error) {
	const query = `SELECT id, name, secret_hash, role, active, created_at, last_seen_at FROM workers WHERE id = $1`
	var w models.Worker
	if err := r.db.GetContext(ctx, &w, query, id); err != nil {
		return nil, fmt.Errorf("find worker: %w", err)
	}
	return &w, nil
}

// UpdateLastSeen stamps the worker's last successful authentication.
func (r *WorkerRepository) UpdateLastSeen(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE workers SET last_seen_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, ts, id); err != nil {
		return fmt.Errorf("update worker last seen: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

const documentColumns = `id, case_id, filename, status, source_url, metadata, ocr_result, created_at, updated_at`

// DocumentRepository persists document records.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document row with generated defaults.
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = models.DocumentStatusUploaded
	}
	if d.Metadata == nil {
		d.Metadata = models.Metadata{}
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	const query = `INSERT INTO documents (id, case_id, filename, status, source_url, metadata, ocr_result, created_at, updated_at)
VALUES (:id, :case_id, :filename, :status, :source_url, :metadata, :ocr_result, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID returns a document row by its identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var d models.Document
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// ListByCase returns all documents attached to a case, oldest first.
func (r *DocumentRepository) ListByCase(ctx context.Context, caseID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE case_id = $1 ORDER BY created_at ASC, id ASC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, caseID); err != nil {
		return nil, fmt.Errorf("list case documents: %w", err)
	}
	return docs, nil
}

// UpdateResult records the OCR collaborator's outcome for a document.
func (r *DocumentRepository) UpdateResult(ctx context.Context, id string, status models.DocumentStatus, result models.Metadata, now time.Time) (int64, error) {
	const query = `UPDATE documents SET status = $1, ocr_result = $2, updated_at = $3 WHERE id = $4`
	if result == nil {
		result = models.Metadata{}
	}
	res, err := r.db.ExecContext(ctx, query, status, result, now, id)
	if err != nil {
		return 0, fmt.Errorf("update document result: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update document result: %w", err)
	}
	return rows, nil
}

// Count returns the total number of documents.
func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM documents`); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

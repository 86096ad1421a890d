package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

const caseColumns = `id, name, description, status, extraction_status, metadata, priority, lease_holder, lease_expires_at, created_at, updated_at`

// claimableWhere selects cases eligible for claiming at $1 (now): ready for
// extraction with no live lease, or in extraction with a stale/expired lease.
// Passive expiry happens here; no sweeper is required for correctness.
const claimableWhere = `(status = 'ready_for_extraction' AND (lease_expires_at IS NULL OR lease_expires_at <= $1))
   OR (status = 'in_extraction' AND (extraction_status = 'stale' OR lease_expires_at IS NULL OR lease_expires_at <= $1))`

// CaseRepository persists case records and implements the lease primitives.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new case row with generated defaults.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusCreated
	}
	if c.ExtractionStatus == "" {
		c.ExtractionStatus = models.ExtractionStatusPending
	}
	if c.Metadata == nil {
		c.Metadata = models.Metadata{}
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	const query = `INSERT INTO cases (id, name, description, status, extraction_status, metadata, priority, lease_holder, lease_expires_at, created_at, updated_at)
VALUES (:id, :name, :description, :status, :extraction_status, :metadata, :priority, :lease_holder, :lease_expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// GetByID returns a case row by its identifier.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return &c, nil
}

// List returns a keyset page of cases plus the total count for the filter.
// Sort order is created_at descending, id descending as the tiebreak.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.ExtractionStatus != nil {
		where = append(where, fmt.Sprintf("extraction_status = $%d", argPos))
		args = append(args, *filter.ExtractionStatus)
		argPos++
	}

	countQuery := `SELECT COUNT(*) FROM cases`
	if len(where) > 0 {
		countQuery += " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	if filter.Cursor != "" {
		cursorAt, cursorID, err := models.DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, 0, err
		}
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argPos, argPos+1))
		args = append(args, cursorAt, cursorID)
		argPos += 2
	}

	query := `SELECT ` + caseColumns + ` FROM cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argPos)
	args = append(args, filter.Limit)

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	return cases, total, nil
}

// UpdateCaseParams defines the producer-mutable fields.
type UpdateCaseParams struct {
	Name        *string
	Description *string
	Metadata    models.Metadata
	Priority    *int
}

// UpdateFields persists the provided changes for a case row.
func (r *CaseRepository) UpdateFields(ctx context.Context, id string, params UpdateCaseParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *params.Name)
		argPos++
	}
	if params.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *params.Description)
		argPos++
	}
	if params.Metadata != nil {
		set = append(set, fmt.Sprintf("metadata = $%d", argPos))
		args = append(args, params.Metadata)
		argPos++
	}
	if params.Priority != nil {
		set = append(set, fmt.Sprintf("priority = $%d", argPos))
		args = append(args, *params.Priority)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE cases SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("update case %s: no rows affected", id)
	}
	return nil
}

// TransitionStatus is a compare-and-swap status update: it succeeds only when
// the row is still in the expected status, so a concurrent transition cannot
// be silently overwritten. Returns the number of rows changed.
func (r *CaseRepository) TransitionStatus(ctx context.Context, id string, from, to models.CaseStatus, extraction models.ExtractionStatus, clearLease bool, now time.Time) (int64, error) {
	query := `UPDATE cases SET status = $1, extraction_status = $2, updated_at = $3`
	if clearLease {
		query += `, lease_holder = NULL, lease_expires_at = NULL`
	}
	query += ` WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, to, extraction, now, id, from)
	if err != nil {
		return 0, fmt.Errorf("transition case status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition case status: %w", err)
	}
	return rows, nil
}

// MarkProcessing moves the given cases into processing when a job starts
// driving them. The status guard skips cases that were cancelled or otherwise
// moved on after the job validated them; a cancelled case is never pulled back
// into processing. Returns the ids actually marked.
func (r *CaseRepository) MarkProcessing(ctx context.Context, caseIDs []string, now time.Time) ([]string, error) {
	query, args, err := sqlx.In(`UPDATE cases SET status = 'processing', updated_at = ? WHERE id IN (?) AND status IN ('created', 'processing') RETURNING id`, now, caseIDs)
	if err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	return ids, nil
}

// MarkReadyForExtraction flips processing cases to ready_for_extraction when
// their job completes. Cases cancelled mid-job are left untouched. Returns the
// affected case ids.
func (r *CaseRepository) MarkReadyForExtraction(ctx context.Context, caseIDs []string, now time.Time) ([]string, error) {
	query, args, err := sqlx.In(`UPDATE cases SET status = 'ready_for_extraction', updated_at = ? WHERE id IN (?) AND status = 'processing' RETURNING id`, now, caseIDs)
	if err != nil {
		return nil, fmt.Errorf("mark ready for extraction: %w", err)
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("mark ready for extraction: %w", err)
	}
	return ids, nil
}

// ListClaimable returns up to limit claimable cases at now, ordered by
// priority descending then created_at ascending. Read-only.
func (r *CaseRepository) ListClaimable(ctx context.Context, now time.Time, limit int) ([]models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
WHERE ` + claimableWhere + `
ORDER BY priority DESC, created_at ASC
LIMIT $2`
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, now, limit); err != nil {
		return nil, fmt.Errorf("list claimable cases: %w", err)
	}
	return cases, nil
}

// ClaimBatch atomically selects and leases up to limit claimable cases for
// workerID. The sub-select locks candidate rows with SKIP LOCKED, so two
// concurrent claims can never be assigned the same case: a row is either
// locked by the first statement or skipped by the second.
func (r *CaseRepository) ClaimBatch(ctx context.Context, workerID string, now, expiresAt time.Time, limit int) ([]models.Case, error) {
	query := `UPDATE cases SET
	status = 'in_extraction',
	extraction_status = 'in_progress',
	lease_holder = $2,
	lease_expires_at = $3,
	updated_at = $4
WHERE id IN (
	SELECT id FROM cases
	WHERE ` + claimableWhere + `
	ORDER BY priority DESC, created_at ASC
	LIMIT $5
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + caseColumns
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, now, workerID, expiresAt, now, limit); err != nil {
		return nil, fmt.Errorf("claim cases: %w", err)
	}
	// RETURNING does not guarantee the sub-select order.
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].Priority != cases[j].Priority {
			return cases[i].Priority > cases[j].Priority
		}
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
	return cases, nil
}

// RenewLease extends the lease to expiresAt iff workerID still holds an
// unexpired lease on the case. Returns the number of rows changed.
func (r *CaseRepository) RenewLease(ctx context.Context, caseID, workerID string, now, expiresAt time.Time) (int64, error) {
	const query = `UPDATE cases SET lease_expires_at = $1, updated_at = $2
WHERE id = $3 AND lease_holder = $4 AND lease_expires_at > $5 AND status = 'in_extraction'`
	res, err := r.db.ExecContext(ctx, query, expiresAt, now, caseID, workerID, now)
	if err != nil {
		return 0, fmt.Errorf("renew lease: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("renew lease: %w", err)
	}
	return rows, nil
}

// ReleaseLease voluntarily re-queues the case, clearing the lease, iff
// workerID holds an unexpired lease. Returns the number of rows changed.
func (r *CaseRepository) ReleaseLease(ctx context.Context, caseID, workerID string, now time.Time) (int64, error) {
	const query = `UPDATE cases SET
	status = 'ready_for_extraction',
	extraction_status = 'pending',
	lease_holder = NULL,
	lease_expires_at = NULL,
	updated_at = $1
WHERE id = $2 AND lease_holder = $3 AND lease_expires_at > $4 AND status = 'in_extraction'`
	res, err := r.db.ExecContext(ctx, query, now, caseID, workerID, now)
	if err != nil {
		return 0, fmt.Errorf("release lease: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release lease: %w", err)
	}
	return rows, nil
}

// CompleteLease resolves the case in a single atomic write (status, extraction
// status, metadata merge and lease clear together), iff workerID holds an
// unexpired lease. Returns the number of rows changed.
func (r *CaseRepository) CompleteLease(ctx context.Context, caseID, workerID string, status models.CaseStatus, extraction models.ExtractionStatus, metadata models.Metadata, now time.Time) (int64, error) {
	if metadata == nil {
		metadata = models.Metadata{}
	}
	const query = `UPDATE cases SET
	status = $1,
	extraction_status = $2,
	metadata = metadata || $3,
	lease_holder = NULL,
	lease_expires_at = NULL,
	updated_at = $4
WHERE id = $5 AND lease_holder = $6 AND lease_expires_at > $7 AND status = 'in_extraction'`
	res, err := r.db.ExecContext(ctx, query, status, extraction, metadata, now, caseID, workerID, now)
	if err != nil {
		return 0, fmt.Errorf("complete lease: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("complete lease: %w", err)
	}
	return rows, nil
}

// ApplyExtractionStatus is the administrative path used by bulk corrections:
// it applies the extraction sub-state plus the derived case status without a
// lease ownership check. The write is a compare-and-swap on the statuses the
// caller validated against, so a worker outcome landing in between is never
// overwritten from a stale read. Returns the number of rows changed.
func (r *CaseRepository) ApplyExtractionStatus(ctx context.Context, caseID string, from models.CaseStatus, fromExtraction models.ExtractionStatus, status models.CaseStatus, extraction models.ExtractionStatus, metadata models.Metadata, clearLease bool, now time.Time) (int64, error) {
	if metadata == nil {
		metadata = models.Metadata{}
	}
	query := `UPDATE cases SET status = $1, extraction_status = $2, metadata = metadata || $3, updated_at = $4`
	if clearLease {
		query += `, lease_holder = NULL, lease_expires_at = NULL`
	}
	query += ` WHERE id = $5 AND status = $6 AND extraction_status = $7`
	res, err := r.db.ExecContext(ctx, query, status, extraction, metadata, now, caseID, from, fromExtraction)
	if err != nil {
		return 0, fmt.Errorf("apply extraction status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("apply extraction status: %w", err)
	}
	return rows, nil
}

// Reopen forces a case back to ready_for_extraction and clears its lease.
// Always legal; operator override.
func (r *CaseRepository) Reopen(ctx context.Context, caseID string, now time.Time) (int64, error) {
	const query = `UPDATE cases SET
	status = 'ready_for_extraction',
	extraction_status = 'pending',
	lease_holder = NULL,
	lease_expires_at = NULL,
	updated_at = $1
WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, now, caseID)
	if err != nil {
		return 0, fmt.Errorf("reopen case: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reopen case: %w", err)
	}
	return rows, nil
}

// MarkExpiredStale flips expired in-progress leases to stale for
// observability. The claim path does not depend on this sweep.
func (r *CaseRepository) MarkExpiredStale(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE cases SET extraction_status = 'stale', updated_at = $1
WHERE status = 'in_extraction' AND extraction_status = 'in_progress' AND lease_expires_at <= $2`
	res, err := r.db.ExecContext(ctx, query, now, now)
	if err != nil {
		return 0, fmt.Errorf("mark expired leases stale: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark expired leases stale: %w", err)
	}
	return rows, nil
}

// StatusCounts aggregates cases by status.
func (r *CaseRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM cases GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("case status counts: %w", err)
	}
	return counts, nil
}

// ExtractionStatusCounts aggregates cases by extraction sub-state.
func (r *CaseRepository) ExtractionStatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT extraction_status AS status, COUNT(*) AS count FROM cases GROUP BY extraction_status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("extraction status counts: %w", err)
	}
	return counts, nil
}

// CountActiveLeases counts unexpired leases at now.
func (r *CaseRepository) CountActiveLeases(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM cases WHERE lease_expires_at IS NOT NULL AND lease_expires_at > $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, now); err != nil {
		return 0, fmt.Errorf("count active leases: %w", err)
	}
	return count, nil
}

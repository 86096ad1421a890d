package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

const jobColumns = `id, case_ids, status, language, enable_handwriting_detection, priority, progress, results, error, created_at, updated_at, started_at, completed_at`

// JobRepository persists OCR job records.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs the repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *JobRepository) Create(ctx context.Context, j *models.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = models.JobStatusPending
	}
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = j.CreatedAt
	}
	const query = `INSERT INTO jobs (id, case_ids, status, language, enable_handwriting_detection, priority, progress, results, error, created_at, updated_at, started_at, completed_at)
VALUES (:id, :case_ids, :status, :language, :enable_handwriting_detection, :priority, :progress, :results, :error, :created_at, :updated_at, :started_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, j); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	var j models.Job
	if err := r.db.GetContext(ctx, &j, query, id); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// List returns a keyset page of jobs plus the total count for the filter.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}

	countQuery := `SELECT COUNT(*) FROM jobs`
	if len(where) > 0 {
		countQuery += " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
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

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argPos)
	args = append(args, filter.Limit)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

// TransitionStatus is a compare-and-swap status update guarded by the current
// status. Returns the number of rows changed.
func (r *JobRepository) TransitionStatus(ctx context.Context, id string, from, to models.JobStatus, now time.Time) (int64, error) {
	const query = `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, now, id, from)
	if err != nil {
		return 0, fmt.Errorf("transition job status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition job status: %w", err)
	}
	return rows, nil
}

// RecordProgress updates running progress; the guard keeps progress monotone
// non-decreasing and marks started_at on the first report.
func (r *JobRepository) RecordProgress(ctx context.Context, id string, progress float64, now time.Time) (int64, error) {
	const query = `UPDATE jobs SET
	status = 'running',
	progress = $1,
	started_at = COALESCE(started_at, $2),
	updated_at = $2
WHERE id = $3 AND status IN ('pending', 'running') AND progress <= $1`
	res, err := r.db.ExecContext(ctx, query, progress, now, id)
	if err != nil {
		return 0, fmt.Errorf("record job progress: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("record job progress: %w", err)
	}
	return rows, nil
}

// Finish resolves the job to completed or failed in one write.
func (r *JobRepository) Finish(ctx context.Context, id string, from, to models.JobStatus, results models.Metadata, errMessage *string, now time.Time) (int64, error) {
	if results == nil {
		results = models.Metadata{}
	}
	const query = `UPDATE jobs SET
	status = $1,
	progress = CASE WHEN $1 = 'completed' THEN 1.0 ELSE progress END,
	results = $2,
	error = $3,
	started_at = COALESCE(started_at, $4),
	completed_at = $4,
	updated_at = $4
WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, to, results, errMessage, now, id, from)
	if err != nil {
		return 0, fmt.Errorf("finish job: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finish job: %w", err)
	}
	return rows, nil
}

// StatusCounts aggregates jobs by status.
func (r *JobRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM jobs GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("job status counts: %w", err)
	}
	return counts, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/state"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
	TransitionStatus(ctx context.Context, id string, from, to models.JobStatus, now time.Time) (int64, error)
	RecordProgress(ctx context.Context, id string, progress float64, now time.Time) (int64, error)
	Finish(ctx context.Context, id string, from, to models.JobStatus, results models.Metadata, errMessage *string, now time.Time) (int64, error)
}

type jobCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	MarkProcessing(ctx context.Context, caseIDs []string, now time.Time) ([]string, error)
	MarkReadyForExtraction(ctx context.Context, caseIDs []string, now time.Time) ([]string, error)
}

// JobService tracks batch OCR runs and drives the case-side transitions they
// imply. Once a job reports completion, job and case status evolve
// independently: cancelling a completed job never rolls its cases back.
type JobService struct {
	jobs     jobStore
	cases    jobCaseStore
	notifier *NotificationService
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobService constructs the service.
func NewJobService(jobs jobStore, cases jobCaseStore, notifier *NotificationService, validate *validator.Validate, logger *zap.Logger) *JobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		jobs:     jobs,
		cases:    cases,
		notifier: notifier,
		validate: validate,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the referenced cases, registers the job and moves them
// into processing. The processing write is status-guarded: a case that was
// cancelled between validation and the write is skipped, like a case cancelled
// mid-job, and keeps its status.
func (s *JobService) Create(ctx context.Context, req dto.CreateJobRequest) (*models.Job, error) {
	if len(req.CaseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "case_ids must not be empty")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}

	seen := make(map[string]struct{}, len(req.CaseIDs))
	for _, caseID := range req.CaseIDs {
		if _, dup := seen[caseID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate case id %s", caseID))
		}
		seen[caseID] = struct{}{}

		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", caseID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate job cases")
		}
		if _, err := state.NextCaseStatus(c.Status, state.CaseEventJobStarted); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("case %s in status %q cannot enter processing", caseID, c.Status))
		}
	}

	priority := models.PriorityDefault
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < models.PriorityMin || priority > models.PriorityMax {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("priority must be between %d and %d", models.PriorityMin, models.PriorityMax))
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	job := &models.Job{
		CaseIDs:                    req.CaseIDs,
		Language:                   language,
		EnableHandwritingDetection: req.EnableHandwritingDetection,
		Priority:                   priority,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}

	marked, err := s.cases.MarkProcessing(ctx, req.CaseIDs, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark job cases processing")
	}
	if skipped := missingIDs(req.CaseIDs, marked); len(skipped) > 0 {
		s.logger.Sugar().Warnw("job cases changed concurrently, skipped",
			"job_id", job.ID, "skipped", skipped)
	}

	s.logger.Sugar().Infow("job created", "job_id", job.ID, "cases", len(marked), "language", language)
	return job, nil
}

// Get returns a job by id.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.mustGet(ctx, id)
}

// List returns a keyset page of jobs.
func (s *JobService) List(ctx context.Context, query dto.JobQuery) ([]models.Job, *models.CursorPagination, error) {
	if err := validateCursor(query.Cursor); err != nil {
		return nil, nil, err
	}
	filter := models.JobFilter{
		Cursor: query.Cursor,
		Limit:  clampLimit(query.Limit, listLimitDefault, listLimitMax),
	}
	if query.Status != "" {
		status := models.JobStatus(query.Status)
		filter.Status = &status
	}

	jobs, total, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	pagination := buildPagination(total, filter.Limit, len(jobs), func(i int) (time.Time, string) {
		return jobs[i].CreatedAt, jobs[i].ID
	})
	return jobs, pagination, nil
}

// RecordProgress is the OCR collaborator's progress callback. Progress is
// monotone non-decreasing; the first report moves the job to running.
func (s *JobService) RecordProgress(ctx context.Context, id string, req dto.JobProgressRequest) (*models.Job, error) {
	if req.Progress < 0 || req.Progress > 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "progress must be between 0 and 1")
	}
	job, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := state.NextJobStatus(job.Status, state.JobEventStarted); err != nil {
		return nil, err
	}

	rows, err := s.jobs.RecordProgress(ctx, id, req.Progress, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record job progress")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("job %s rejected progress %.2f: stale or out of order", id, req.Progress))
	}
	return s.mustGet(ctx, id)
}

// Complete resolves the job as completed and flips its still-processing cases
// to ready_for_extraction. Cases cancelled mid-job stay cancelled.
func (s *JobService) Complete(ctx context.Context, id string, req dto.JobCompleteRequest) (*models.Job, error) {
	job, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := state.NextJobStatus(job.Status, state.JobEventCompleted)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows, err := s.jobs.Finish(ctx, id, job.Status, next, req.Results, nil, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete job")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("job %s changed concurrently, retry", id))
	}

	readyIDs, err := s.cases.MarkReadyForExtraction(ctx, job.CaseIDs, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark cases ready for extraction")
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, models.EventJobCompleted, models.Metadata{
			"job_id":   id,
			"case_ids": job.CaseIDs,
		})
		for _, caseID := range readyIDs {
			s.notifier.Emit(ctx, models.EventCaseReadyForExtraction, models.Metadata{
				"case_id": caseID,
				"job_id":  id,
			})
		}
	}

	s.logger.Sugar().Infow("job completed", "job_id", id, "cases_ready", len(readyIDs))
	return s.mustGet(ctx, id)
}

// Fail resolves the job as failed. Its cases keep their current status; a
// retry job or operator reopen decides what happens to them.
func (s *JobService) Fail(ctx context.Context, id string, req dto.JobFailRequest) (*models.Job, error) {
	if req.Error == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "error message is required")
	}
	job, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := state.NextJobStatus(job.Status, state.JobEventFailed)
	if err != nil {
		return nil, err
	}

	rows, err := s.jobs.Finish(ctx, id, job.Status, next, nil, &req.Error, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fail job")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("job %s changed concurrently, retry", id))
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, models.EventJobFailed, models.Metadata{
			"job_id": id,
			"error":  req.Error,
		})
	}

	s.logger.Sugar().Warnw("job failed", "job_id", id, "error", req.Error)
	return s.mustGet(ctx, id)
}

// Cancel aborts a pending or running job. Case status is untouched: whoever
// cancelled the job decides case disposition separately.
func (s *JobService) Cancel(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := state.NextJobStatus(job.Status, state.JobEventCancelled)
	if err != nil {
		return nil, err
	}

	rows, err := s.jobs.TransitionStatus(ctx, id, job.Status, next, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel job")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("job %s changed concurrently, retry", id))
	}
	s.logger.Sugar().Infow("job cancelled", "job_id", id)
	return s.mustGet(ctx, id)
}

func missingIDs(requested, got []string) []string {
	seen := make(map[string]struct{}, len(got))
	for _, id := range got {
		seen[id] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *JobService) mustGet(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("job %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get job")
	}
	return job, nil
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type stubJobStore struct {
	jobs map[string]*models.Job

	created      *models.Job
	progressRows int64
	finishRows   int64
	cancelRows   int64

	lastFinishTo models.JobStatus
}

func (s *stubJobStore) Create(_ context.Context, j *models.Job) error {
	j.ID = "job-1"
	j.Status = models.JobStatusPending
	s.created = j
	if s.jobs == nil {
		s.jobs = map[string]*models.Job{}
	}
	s.jobs[j.ID] = j
	return nil
}

func (s *stubJobStore) GetByID(_ context.Context, id string) (*models.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return j, nil
}

func (s *stubJobStore) List(_ context.Context, _ models.JobFilter) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (s *stubJobStore) TransitionStatus(_ context.Context, id string, _, to models.JobStatus, _ time.Time) (int64, error) {
	if s.cancelRows == 1 {
		s.jobs[id].Status = to
	}
	return s.cancelRows, nil
}

func (s *stubJobStore) RecordProgress(_ context.Context, id string, progress float64, _ time.Time) (int64, error) {
	if s.progressRows == 1 {
		s.jobs[id].Status = models.JobStatusRunning
		s.jobs[id].Progress = progress
	}
	return s.progressRows, nil
}

func (s *stubJobStore) Finish(_ context.Context, id string, _, to models.JobStatus, _ models.Metadata, _ *string, _ time.Time) (int64, error) {
	s.lastFinishTo = to
	if s.finishRows == 1 {
		s.jobs[id].Status = to
	}
	return s.finishRows, nil
}

type stubJobCaseStore struct {
	cases map[string]*models.Case

	beforeMark       func()
	markedProcessing []string
	markedReady      []string
	readyResult      []string
}

func (s *stubJobCaseStore) GetByID(_ context.Context, id string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

// MarkProcessing mirrors the guarded UPDATE: only cases still in created or
// processing flip; anything that moved on is skipped.
func (s *stubJobCaseStore) MarkProcessing(_ context.Context, caseIDs []string, _ time.Time) ([]string, error) {
	if s.beforeMark != nil {
		s.beforeMark()
	}
	var marked []string
	for _, id := range caseIDs {
		c, ok := s.cases[id]
		if !ok {
			continue
		}
		if c.Status == models.CaseStatusCreated || c.Status == models.CaseStatusProcessing {
			c.Status = models.CaseStatusProcessing
			marked = append(marked, id)
		}
	}
	s.markedProcessing = marked
	return marked, nil
}

func (s *stubJobCaseStore) MarkReadyForExtraction(_ context.Context, caseIDs []string, _ time.Time) ([]string, error) {
	s.markedReady = caseIDs
	return s.readyResult, nil
}

func TestJobCreateMarksCasesProcessing(t *testing.T) {
	jobs := &stubJobStore{}
	cases := &stubJobCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCreated},
		"case-2": {ID: "case-2", Status: models.CaseStatusCreated},
	}}
	svc := NewJobService(jobs, cases, nil, nil, nil)

	job, err := svc.Create(context.Background(), dto.CreateJobRequest{
		CaseIDs: []string{"case-1", "case-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "en", job.Language)
	assert.Equal(t, models.PriorityDefault, job.Priority)
	assert.Equal(t, []string{"case-1", "case-2"}, cases.markedProcessing)
}

func TestJobCreateRejectsUnknownCase(t *testing.T) {
	svc := NewJobService(&stubJobStore{}, &stubJobCaseStore{cases: map[string]*models.Case{}}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateJobRequest{CaseIDs: []string{"ghost"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestJobCreateRejectsTerminalCase(t *testing.T) {
	cases := &stubJobCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCompleted},
	}}
	svc := NewJobService(&stubJobStore{}, cases, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateJobRequest{CaseIDs: []string{"case-1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, cases.markedProcessing)
}

func TestJobCreateRejectsDuplicateCaseIDs(t *testing.T) {
	cases := &stubJobCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCreated},
	}}
	svc := NewJobService(&stubJobStore{}, cases, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateJobRequest{CaseIDs: []string{"case-1", "case-1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestJobCreateSkipsCaseCancelledMidCreate(t *testing.T) {
	jobs := &stubJobStore{}
	cases := &stubJobCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCreated},
		"case-2": {ID: "case-2", Status: models.CaseStatusCreated},
	}}
	// A cancel lands after validation but before the processing write. The
	// guarded write must skip the case, not pull it back into processing.
	cases.beforeMark = func() {
		cases.cases["case-2"].Status = models.CaseStatusCancelled
	}
	svc := NewJobService(jobs, cases, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateJobRequest{CaseIDs: []string{"case-1", "case-2"}})
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCancelled, cases.cases["case-2"].Status)
	assert.Equal(t, []string{"case-1"}, cases.markedProcessing)
}

func TestJobProgressMonotonic(t *testing.T) {
	jobs := &stubJobStore{
		jobs:         map[string]*models.Job{"job-1": {ID: "job-1", Status: models.JobStatusRunning, Progress: 0.5}},
		progressRows: 0,
	}
	svc := NewJobService(jobs, &stubJobCaseStore{}, nil, nil, nil)

	// The guard rejects regressions with zero rows affected.
	_, err := svc.RecordProgress(context.Background(), "job-1", dto.JobProgressRequest{Progress: 0.2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	jobs.progressRows = 1
	job, err := svc.RecordProgress(context.Background(), "job-1", dto.JobProgressRequest{Progress: 0.8})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, job.Status)
	assert.Equal(t, 0.8, job.Progress)
}

func TestJobProgressRejectsOutOfRange(t *testing.T) {
	svc := NewJobService(&stubJobStore{}, &stubJobCaseStore{}, nil, nil, nil)
	_, err := svc.RecordProgress(context.Background(), "job-1", dto.JobProgressRequest{Progress: 1.5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestJobCompleteFlipsProcessingCases(t *testing.T) {
	jobs := &stubJobStore{
		jobs: map[string]*models.Job{"job-1": {
			ID:      "job-1",
			Status:  models.JobStatusRunning,
			CaseIDs: []string{"case-1", "case-2"},
		}},
		finishRows: 1,
	}
	cases := &stubJobCaseStore{readyResult: []string{"case-1"}}
	svc := NewJobService(jobs, cases, nil, nil, nil)

	job, err := svc.Complete(context.Background(), "job-1", dto.JobCompleteRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, models.JobStatusCompleted, jobs.lastFinishTo)
	// Cancelled-mid-job cases are not in the returned set; only survivors flip.
	assert.Equal(t, []string{"case-1", "case-2"}, cases.markedReady)
}

func TestJobCompleteFromPendingIsIllegal(t *testing.T) {
	jobs := &stubJobStore{
		jobs: map[string]*models.Job{"job-1": {ID: "job-1", Status: models.JobStatusPending}},
	}
	svc := NewJobService(jobs, &stubJobCaseStore{}, nil, nil, nil)

	_, err := svc.Complete(context.Background(), "job-1", dto.JobCompleteRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestJobFailLeavesCasesAlone(t *testing.T) {
	jobs := &stubJobStore{
		jobs:       map[string]*models.Job{"job-1": {ID: "job-1", Status: models.JobStatusRunning, CaseIDs: []string{"case-1"}}},
		finishRows: 1,
	}
	cases := &stubJobCaseStore{}
	svc := NewJobService(jobs, cases, nil, nil, nil)

	job, err := svc.Fail(context.Background(), "job-1", dto.JobFailRequest{Error: "ocr engine crashed"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Nil(t, cases.markedReady)
}

func TestJobCancelFromTerminalIsIllegal(t *testing.T) {
	jobs := &stubJobStore{
		jobs: map[string]*models.Job{"job-1": {ID: "job-1", Status: models.JobStatusCompleted}},
	}
	svc := NewJobService(jobs, &stubJobCaseStore{}, nil, nil, nil)

	_, err := svc.Cancel(context.Background(), "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

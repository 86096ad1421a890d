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

type stubExtractionStore struct {
	cases map[string]*models.Case

	beforeApply func()
	applied     []appliedUpdate
}

type appliedUpdate struct {
	caseID     string
	status     models.CaseStatus
	extraction models.ExtractionStatus
	clearLease bool
}

func (s *stubExtractionStore) GetByID(_ context.Context, id string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

// ApplyExtractionStatus mirrors the compare-and-swap UPDATE: the write lands
// only while the case still carries the statuses the caller validated against.
func (s *stubExtractionStore) ApplyExtractionStatus(_ context.Context, caseID string, from models.CaseStatus, fromExtraction models.ExtractionStatus, status models.CaseStatus, extraction models.ExtractionStatus, _ models.Metadata, clearLease bool, _ time.Time) (int64, error) {
	if s.beforeApply != nil {
		s.beforeApply()
	}
	c, ok := s.cases[caseID]
	if !ok || c.Status != from || c.ExtractionStatus != fromExtraction {
		return 0, nil
	}
	c.Status = status
	c.ExtractionStatus = extraction
	s.applied = append(s.applied, appliedUpdate{caseID: caseID, status: status, extraction: extraction, clearLease: clearLease})
	return 1, nil
}

func newExtractionService(store *stubExtractionStore) *ExtractionService {
	return NewExtractionService(store, nil, nil, nil, nil)
}

func TestBulkUpdateAppliesItemsIndependently(t *testing.T) {
	store := &stubExtractionStore{cases: map[string]*models.Case{
		"case-ok":    {ID: "case-ok", Status: models.CaseStatusInExtraction, ExtractionStatus: models.ExtractionStatusInProgress},
		"case-wrong": {ID: "case-wrong", Status: models.CaseStatusCreated, ExtractionStatus: models.ExtractionStatusPending},
	}}
	svc := newExtractionService(store)

	results, err := svc.BulkUpdate(context.Background(), dto.BulkExtractionUpdateRequest{
		Updates: []dto.BulkExtractionItem{
			{CaseID: "case-ok", Status: models.ExtractionStatusSucceeded},
			{CaseID: "case-missing", Status: models.ExtractionStatusSucceeded},
			{CaseID: "case-wrong", Status: models.ExtractionStatusSucceeded},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, "case-ok", results[0].CaseID)

	assert.False(t, results[1].Success)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, results[1].Error.Code)

	// pending has no "succeeded" edge, so the third item fails alone.
	assert.False(t, results[2].Success)
	require.NotNil(t, results[2].Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, results[2].Error.Code)

	require.Len(t, store.applied, 1)
	assert.Equal(t, models.CaseStatusCompleted, store.applied[0].status)
	assert.True(t, store.applied[0].clearLease)
}

func TestBulkUpdateRejectsEmptyAndOversizedBatches(t *testing.T) {
	svc := newExtractionService(&stubExtractionStore{})

	_, err := svc.BulkUpdate(context.Background(), dto.BulkExtractionUpdateRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	oversized := make([]dto.BulkExtractionItem, bulkUpdateMax+1)
	for i := range oversized {
		oversized[i] = dto.BulkExtractionItem{CaseID: "case-1", Status: models.ExtractionStatusPending}
	}
	_, err = svc.BulkUpdate(context.Background(), dto.BulkExtractionUpdateRequest{Updates: oversized})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyOneFailureResolvesCase(t *testing.T) {
	store := &stubExtractionStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction, ExtractionStatus: models.ExtractionStatusInProgress},
	}}
	svc := newExtractionService(store)

	msg := "unparseable tables"
	err := svc.ApplyOne(context.Background(), dto.BulkExtractionItem{
		CaseID:       "case-1",
		Status:       models.ExtractionStatusFailed,
		ErrorMessage: &msg,
	})
	require.NoError(t, err)
	require.Len(t, store.applied, 1)
	assert.Equal(t, models.CaseStatusFailed, store.applied[0].status)
	assert.Equal(t, models.ExtractionStatusFailed, store.applied[0].extraction)
	assert.True(t, store.applied[0].clearLease)
}

func TestApplyOneRequeueReturnsCaseToPool(t *testing.T) {
	store := &stubExtractionStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction, ExtractionStatus: models.ExtractionStatusStale},
	}}
	svc := newExtractionService(store)

	err := svc.ApplyOne(context.Background(), dto.BulkExtractionItem{
		CaseID: "case-1",
		Status: models.ExtractionStatusPending,
	})
	require.NoError(t, err)
	require.Len(t, store.applied, 1)
	assert.Equal(t, models.CaseStatusReadyForExtraction, store.applied[0].status)
	assert.Equal(t, models.ExtractionStatusPending, store.applied[0].extraction)
	assert.True(t, store.applied[0].clearLease)
}

func TestApplyOneLateSuccessOnStaleCase(t *testing.T) {
	// The worker lost its lease but the result still arrived; the correction
	// path lets an operator accept it.
	store := &stubExtractionStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction, ExtractionStatus: models.ExtractionStatusStale},
	}}
	svc := newExtractionService(store)

	err := svc.ApplyOne(context.Background(), dto.BulkExtractionItem{
		CaseID: "case-1",
		Status: models.ExtractionStatusSucceeded,
	})
	require.NoError(t, err)
	require.Len(t, store.applied, 1)
	assert.Equal(t, models.CaseStatusCompleted, store.applied[0].status)
}

func TestApplyOneLosesRaceToWorkerOutcome(t *testing.T) {
	// A worker completion lands between the legality read and the admin write;
	// the guarded write must not overwrite it from the stale snapshot.
	store := &stubExtractionStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction, ExtractionStatus: models.ExtractionStatusInProgress},
	}}
	store.beforeApply = func() {
		store.cases["case-1"].Status = models.CaseStatusCompleted
		store.cases["case-1"].ExtractionStatus = models.ExtractionStatusSucceeded
	}
	svc := newExtractionService(store)

	err := svc.ApplyOne(context.Background(), dto.BulkExtractionItem{
		CaseID: "case-1",
		Status: models.ExtractionStatusPending,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.Retryable(err))
	assert.Equal(t, models.CaseStatusCompleted, store.cases["case-1"].Status)
	assert.Empty(t, store.applied)
}

func TestDeriveCaseStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    models.CaseStatus
		extraction models.ExtractionStatus
		want       models.CaseStatus
		clearLease bool
		wantErr    bool
	}{
		{"succeeded resolves", models.CaseStatusInExtraction, models.ExtractionStatusSucceeded, models.CaseStatusCompleted, true, false},
		{"failed resolves", models.CaseStatusInExtraction, models.ExtractionStatusFailed, models.CaseStatusFailed, true, false},
		{"pending requeues", models.CaseStatusInExtraction, models.ExtractionStatusPending, models.CaseStatusReadyForExtraction, true, false},
		{"in_progress keeps case", models.CaseStatusInExtraction, models.ExtractionStatusInProgress, models.CaseStatusInExtraction, false, false},
		{"in_progress outside extraction", models.CaseStatusCreated, models.ExtractionStatusInProgress, models.CaseStatusCreated, false, true},
		{"stale outside extraction", models.CaseStatusProcessing, models.ExtractionStatusStale, models.CaseStatusProcessing, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clearLease, err := deriveCaseStatus(tt.current, tt.extraction)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clearLease, clearLease)
		})
	}
}

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
	"github.com/noah-isme/caseflow-api/internal/repository"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type stubCaseStore struct {
	cases map[string]*models.Case

	transitionRows int64
	reopenRows     int64

	lastTransitionTo models.CaseStatus
	lastClearLease   bool
	lastUpdateParams repository.UpdateCaseParams
}

func (s *stubCaseStore) Create(_ context.Context, c *models.Case) error {
	c.ID = "case-1"
	c.Status = models.CaseStatusCreated
	c.ExtractionStatus = models.ExtractionStatusPending
	if s.cases == nil {
		s.cases = map[string]*models.Case{}
	}
	s.cases[c.ID] = c
	return nil
}

func (s *stubCaseStore) GetByID(_ context.Context, id string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (s *stubCaseStore) List(_ context.Context, _ models.CaseFilter) ([]models.Case, int, error) {
	return nil, 0, nil
}

func (s *stubCaseStore) UpdateFields(_ context.Context, _ string, params repository.UpdateCaseParams) error {
	s.lastUpdateParams = params
	return nil
}

func (s *stubCaseStore) TransitionStatus(_ context.Context, id string, _, to models.CaseStatus, _ models.ExtractionStatus, clearLease bool, _ time.Time) (int64, error) {
	s.lastTransitionTo = to
	s.lastClearLease = clearLease
	if s.transitionRows == 1 {
		s.cases[id].Status = to
	}
	return s.transitionRows, nil
}

func (s *stubCaseStore) Reopen(_ context.Context, caseID string, _ time.Time) (int64, error) {
	if s.reopenRows == 1 {
		c := s.cases[caseID]
		c.Status = models.CaseStatusReadyForExtraction
		c.ExtractionStatus = models.ExtractionStatusPending
		c.LeaseHolder = nil
		c.LeaseExpiresAt = nil
	}
	return s.reopenRows, nil
}

type stubCaseDocumentStore struct {
	documents map[string][]models.Document
}

func (s *stubCaseDocumentStore) ListByCase(_ context.Context, caseID string) ([]models.Document, error) {
	return s.documents[caseID], nil
}

func newCaseService(store *stubCaseStore) *CaseService {
	return NewCaseService(store, &stubCaseDocumentStore{}, nil, nil)
}

func TestCaseCreateDefaultsPriority(t *testing.T) {
	store := &stubCaseStore{}
	svc := newCaseService(store)

	c, err := svc.Create(context.Background(), dto.CreateCaseRequest{Name: "loan-application"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityDefault, c.Priority)
	assert.Equal(t, models.CaseStatusCreated, c.Status)
	assert.Equal(t, models.ExtractionStatusPending, c.ExtractionStatus)
}

func TestCaseCreateRejectsBadPriority(t *testing.T) {
	svc := newCaseService(&stubCaseStore{})

	for _, priority := range []int{0, 11, -3} {
		p := priority
		_, err := svc.Create(context.Background(), dto.CreateCaseRequest{Name: "x", Priority: &p})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCaseGetAttachesDocuments(t *testing.T) {
	store := &stubCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCreated},
	}}
	docs := &stubCaseDocumentStore{documents: map[string][]models.Document{
		"case-1": {{ID: "doc-1", CaseID: "case-1"}},
	}}
	svc := NewCaseService(store, docs, nil, nil)

	c, err := svc.Get(context.Background(), "case-1")
	require.NoError(t, err)
	require.Len(t, c.Documents, 1)
	assert.Equal(t, "doc-1", c.Documents[0].ID)
}

func TestCaseGetUnknownIsNotFound(t *testing.T) {
	svc := newCaseService(&stubCaseStore{cases: map[string]*models.Case{}})

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCaseListRejectsMalformedCursor(t *testing.T) {
	svc := newCaseService(&stubCaseStore{})

	_, _, err := svc.List(context.Background(), dto.CaseQuery{Cursor: "%%%not-base64%%%"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseUpdateNeverTouchesStatus(t *testing.T) {
	store := &stubCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction},
	}}
	svc := newCaseService(store)

	name := "renamed"
	c, err := svc.Update(context.Background(), "case-1", dto.UpdateCaseRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, &name, store.lastUpdateParams.Name)
	assert.Equal(t, models.CaseStatusInExtraction, c.Status)
}

func TestCaseCancelClearsLease(t *testing.T) {
	holder := "worker-1"
	store := &stubCaseStore{
		transitionRows: 1,
		cases: map[string]*models.Case{
			"case-1": {ID: "case-1", Status: models.CaseStatusInExtraction, LeaseHolder: &holder},
		},
	}
	svc := newCaseService(store)

	c, err := svc.Cancel(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCancelled, c.Status)
	assert.Equal(t, models.CaseStatusCancelled, store.lastTransitionTo)
	assert.True(t, store.lastClearLease)
}

func TestCaseCancelFromTerminalIsIllegal(t *testing.T) {
	store := &stubCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCompleted},
	}}
	svc := newCaseService(store)

	_, err := svc.Cancel(context.Background(), "case-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCaseCancelLostRaceIsConflict(t *testing.T) {
	store := &stubCaseStore{
		transitionRows: 0,
		cases: map[string]*models.Case{
			"case-1": {ID: "case-1", Status: models.CaseStatusProcessing},
		},
	}
	svc := newCaseService(store)

	_, err := svc.Cancel(context.Background(), "case-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCaseReopenFromAnyStatus(t *testing.T) {
	for _, status := range []models.CaseStatus{
		models.CaseStatusCompleted,
		models.CaseStatusFailed,
		models.CaseStatusCancelled,
		models.CaseStatusInExtraction,
	} {
		store := &stubCaseStore{
			reopenRows: 1,
			cases: map[string]*models.Case{
				"case-1": {ID: "case-1", Status: status},
			},
		}
		svc := newCaseService(store)

		c, err := svc.Reopen(context.Background(), "case-1")
		require.NoError(t, err, "reopen from %s", status)
		assert.Equal(t, models.CaseStatusReadyForExtraction, c.Status)
		assert.Equal(t, models.ExtractionStatusPending, c.ExtractionStatus)
		assert.Nil(t, c.LeaseHolder)
	}
}

func TestCaseReopenUnknownIsNotFound(t *testing.T) {
	svc := newCaseService(&stubCaseStore{reopenRows: 0, cases: map[string]*models.Case{}})

	_, err := svc.Reopen(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

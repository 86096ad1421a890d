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

type stubDocumentStore struct {
	documents map[string]*models.Document

	updateRows int64
	lastStatus models.DocumentStatus
}

func (s *stubDocumentStore) Create(_ context.Context, d *models.Document) error {
	d.ID = "doc-1"
	d.Status = models.DocumentStatusUploaded
	if s.documents == nil {
		s.documents = map[string]*models.Document{}
	}
	s.documents[d.ID] = d
	return nil
}

func (s *stubDocumentStore) GetByID(_ context.Context, id string) (*models.Document, error) {
	d, ok := s.documents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return d, nil
}

func (s *stubDocumentStore) ListByCase(_ context.Context, _ string) ([]models.Document, error) {
	return nil, nil
}

func (s *stubDocumentStore) UpdateResult(_ context.Context, id string, status models.DocumentStatus, result models.Metadata, _ time.Time) (int64, error) {
	s.lastStatus = status
	if s.updateRows == 1 {
		s.documents[id].Status = status
		s.documents[id].OCRResult = result
	}
	return s.updateRows, nil
}

type stubDocumentCaseStore struct {
	cases map[string]*models.Case
}

func (s *stubDocumentCaseStore) GetByID(_ context.Context, id string) (*models.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func TestDocumentAttachRequiresCase(t *testing.T) {
	svc := NewDocumentService(&stubDocumentStore{}, &stubDocumentCaseStore{cases: map[string]*models.Case{}}, nil)

	_, err := svc.Attach(context.Background(), "ghost", dto.CreateDocumentRequest{Filename: "scan.pdf"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDocumentAttachStartsUploaded(t *testing.T) {
	cases := &stubDocumentCaseStore{cases: map[string]*models.Case{
		"case-1": {ID: "case-1", Status: models.CaseStatusCreated},
	}}
	svc := NewDocumentService(&stubDocumentStore{}, cases, nil)

	doc, err := svc.Attach(context.Background(), "case-1", dto.CreateDocumentRequest{Filename: "scan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusUploaded, doc.Status)
	assert.Equal(t, "case-1", doc.CaseID)
}

func TestDocumentRecordResultCompletes(t *testing.T) {
	store := &stubDocumentStore{
		documents: map[string]*models.Document{
			"doc-1": {ID: "doc-1", Status: models.DocumentStatusProcessing},
		},
		updateRows: 1,
	}
	svc := NewDocumentService(store, &stubDocumentCaseStore{}, nil)

	doc, err := svc.RecordResult(context.Background(), "doc-1", dto.DocumentResultRequest{
		Status:    models.DocumentStatusCompleted,
		OCRResult: models.Metadata{"pages": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusCompleted, doc.Status)
	assert.Equal(t, models.DocumentStatusCompleted, store.lastStatus)
}

func TestDocumentRecordResultRejectsBackwardsMove(t *testing.T) {
	store := &stubDocumentStore{
		documents: map[string]*models.Document{
			"doc-1": {ID: "doc-1", Status: models.DocumentStatusCompleted},
		},
	}
	svc := NewDocumentService(store, &stubDocumentCaseStore{}, nil)

	_, err := svc.RecordResult(context.Background(), "doc-1", dto.DocumentResultRequest{
		Status: models.DocumentStatusProcessing,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDocumentRecordResultRejectsUnknownStatus(t *testing.T) {
	store := &stubDocumentStore{
		documents: map[string]*models.Document{
			"doc-1": {ID: "doc-1", Status: models.DocumentStatusUploaded},
		},
	}
	svc := NewDocumentService(store, &stubDocumentCaseStore{}, nil)

	_, err := svc.RecordResult(context.Background(), "doc-1", dto.DocumentResultRequest{
		Status: models.DocumentStatus("archived"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

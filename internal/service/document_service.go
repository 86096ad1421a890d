package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/state"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Document, error)
	UpdateResult(ctx context.Context, id string, status models.DocumentStatus, result models.Metadata, now time.Time) (int64, error)
}

type documentCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
}

// DocumentService manages the documents attached to cases. Documents are
// passive records: their status reflects OCR collaborator activity and never
// drives case transitions.
type DocumentService struct {
	documents documentStore
	cases     documentCaseStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService constructs the service.
func NewDocumentService(documents documentStore, cases documentCaseStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		cases:     cases,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Attach adds a document to an existing case.
func (s *DocumentService) Attach(ctx context.Context, caseID string, req dto.CreateDocumentRequest) (*models.Document, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", caseID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate case")
	}

	doc := &models.Document{
		CaseID:    caseID,
		Filename:  req.Filename,
		SourceURL: req.URL,
		Metadata:  req.Metadata,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}
	s.logger.Sugar().Infow("document attached", "document_id", doc.ID, "case_id", caseID)
	return doc, nil
}

// Get returns a document by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get document")
	}
	return doc, nil
}

// ListByCase returns every document attached to caseID, oldest first.
func (s *DocumentService) ListByCase(ctx context.Context, caseID string) ([]models.Document, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", caseID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate case")
	}
	docs, err := s.documents.ListByCase(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list case documents")
	}
	return docs, nil
}

// RecordResult stores the OCR collaborator's outcome for a document, subject
// to the document transition table.
func (s *DocumentService) RecordResult(ctx context.Context, id string, req dto.DocumentResultRequest) (*models.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var event state.DocumentEvent
	switch req.Status {
	case models.DocumentStatusProcessing:
		event = state.DocumentEventProcessing
	case models.DocumentStatusCompleted:
		event = state.DocumentEventCompleted
	case models.DocumentStatusFailed:
		event = state.DocumentEventFailed
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document status %q", req.Status))
	}
	next, err := state.NextDocumentStatus(doc.Status, event)
	if err != nil {
		return nil, err
	}

	rows, err := s.documents.UpdateResult(ctx, id, next, req.OCRResult, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document result")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", id))
	}
	return s.Get(ctx, id)
}

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
	"github.com/noah-isme/caseflow-api/internal/repository"
	"github.com/noah-isme/caseflow-api/internal/state"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

const (
	listLimitDefault = 50
	listLimitMax     = 1000
)

type caseStore interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, int, error)
	UpdateFields(ctx context.Context, id string, params repository.UpdateCaseParams) error
	TransitionStatus(ctx context.Context, id string, from, to models.CaseStatus, extraction models.ExtractionStatus, clearLease bool, now time.Time) (int64, error)
	Reopen(ctx context.Context, caseID string, now time.Time) (int64, error)
}

type caseDocumentStore interface {
	ListByCase(ctx context.Context, caseID string) ([]models.Document, error)
}

// CaseService owns the producer-facing case lifecycle: creation, reads,
// updates of mutable fields, cancellation and the reopen override. The lease
// side of the lifecycle lives in LeaseService.
type CaseService struct {
	cases     caseStore
	documents caseDocumentStore
	notifier  *NotificationService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCaseService constructs the service.
func NewCaseService(cases caseStore, documents caseDocumentStore, notifier *NotificationService, logger *zap.Logger) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{
		cases:     cases,
		documents: documents,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new case in status created.
func (s *CaseService) Create(ctx context.Context, req dto.CreateCaseRequest) (*models.Case, error) {
	priority := models.PriorityDefault
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < models.PriorityMin || priority > models.PriorityMax {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("priority must be between %d and %d", models.PriorityMin, models.PriorityMax))
	}

	c := &models.Case{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
		Priority:    priority,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}
	s.logger.Sugar().Infow("case created", "case_id", c.ID, "priority", c.Priority)
	return c, nil
}

// Get returns a case with its documents attached.
func (s *CaseService) Get(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get case")
	}
	docs, err := s.documents.ListByCase(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case documents")
	}
	c.Documents = docs
	return c, nil
}

// List returns a keyset page of cases.
func (s *CaseService) List(ctx context.Context, query dto.CaseQuery) ([]models.Case, *models.CursorPagination, error) {
	if err := validateCursor(query.Cursor); err != nil {
		return nil, nil, err
	}
	filter := models.CaseFilter{
		Cursor: query.Cursor,
		Limit:  clampLimit(query.Limit, listLimitDefault, listLimitMax),
	}
	if query.Status != "" {
		status := models.CaseStatus(query.Status)
		filter.Status = &status
	}

	cases, total, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	pagination := buildPagination(total, filter.Limit, len(cases), func(i int) (time.Time, string) {
		return cases[i].CreatedAt, cases[i].ID
	})
	return cases, pagination, nil
}

// Update persists producer-mutable fields. Status never changes here.
func (s *CaseService) Update(ctx context.Context, id string, req dto.UpdateCaseRequest) (*models.Case, error) {
	if req.Priority != nil && (*req.Priority < models.PriorityMin || *req.Priority > models.PriorityMax) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("priority must be between %d and %d", models.PriorityMin, models.PriorityMax))
	}

	if _, err := s.mustGet(ctx, id); err != nil {
		return nil, err
	}

	params := repository.UpdateCaseParams{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
		Priority:    req.Priority,
	}
	if err := s.cases.UpdateFields(ctx, id, params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}
	return s.Get(ctx, id)
}

// Cancel moves the case to cancelled. Legal from any non-terminal status; an
// active lease is cleared so a later worker report fails its ownership guard.
func (s *CaseService) Cancel(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := state.NextCaseStatus(c.Status, state.CaseEventCancelled)
	if err != nil {
		return nil, err
	}

	rows, err := s.cases.TransitionStatus(ctx, id, c.Status, next, c.ExtractionStatus, true, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel case")
	}
	if rows == 0 {
		// Lost the race against a concurrent transition.
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("case %s changed concurrently, retry", id))
	}
	s.logger.Sugar().Infow("case cancelled", "case_id", id, "previous_status", c.Status)
	return s.Get(ctx, id)
}

// Reopen is the operator override: the case returns to ready_for_extraction
// from any status, lease cleared, extraction reset to pending.
func (s *CaseService) Reopen(ctx context.Context, id string) (*models.Case, error) {
	rows, err := s.cases.Reopen(ctx, id, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen case")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", id))
	}
	if s.notifier != nil {
		s.notifier.Emit(ctx, models.EventCaseReopened, models.Metadata{"case_id": id})
	}
	s.logger.Sugar().Infow("case reopened", "case_id", id)
	return s.Get(ctx, id)
}

func (s *CaseService) mustGet(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get case")
	}
	return c, nil
}

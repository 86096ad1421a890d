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

const bulkUpdateMax = 500

type extractionCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ApplyExtractionStatus(ctx context.Context, caseID string, from models.CaseStatus, fromExtraction models.ExtractionStatus, status models.CaseStatus, extraction models.ExtractionStatus, metadata models.Metadata, clearLease bool, now time.Time) (int64, error)
}

// ExtractionService is the administrative correction path: it applies
// extraction sub-state changes without a lease ownership check. Worker-reported
// outcomes go through LeaseService.Complete instead.
type ExtractionService struct {
	cases    extractionCaseStore
	notifier *NotificationService
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewExtractionService constructs the service.
func NewExtractionService(cases extractionCaseStore, notifier *NotificationService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExtractionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionService{
		cases:    cases,
		notifier: notifier,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BulkUpdate applies each item independently: one illegal transition fails
// that item only, never the batch. The returned slice preserves input order.
func (s *ExtractionService) BulkUpdate(ctx context.Context, req dto.BulkExtractionUpdateRequest) ([]dto.BulkExtractionResult, error) {
	if len(req.Updates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "updates must not be empty")
	}
	if len(req.Updates) > bulkUpdateMax {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("at most %d updates per request", bulkUpdateMax))
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk update payload")
	}

	results := make([]dto.BulkExtractionResult, 0, len(req.Updates))
	for _, item := range req.Updates {
		result := dto.BulkExtractionResult{CaseID: item.CaseID, Success: true}
		if err := s.applyOne(ctx, item); err != nil {
			result.Success = false
			result.Error = appErrors.FromError(err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ApplyOne applies a single administrative extraction-status correction.
func (s *ExtractionService) ApplyOne(ctx context.Context, item dto.BulkExtractionItem) error {
	return s.applyOne(ctx, item)
}

func (s *ExtractionService) applyOne(ctx context.Context, item dto.BulkExtractionItem) error {
	c, err := s.cases.GetByID(ctx, item.CaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", item.CaseID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}

	event, err := state.ExtractionEventForStatus(item.Status)
	if err != nil {
		return err
	}
	extraction, err := state.NextExtractionStatus(c.ExtractionStatus, event)
	if err != nil {
		return err
	}

	caseStatus, clearLease, err := deriveCaseStatus(c.Status, extraction)
	if err != nil {
		return err
	}

	metadata := item.Metadata
	if item.ErrorMessage != nil {
		if metadata == nil {
			metadata = models.Metadata{}
		}
		metadata["extraction_error"] = *item.ErrorMessage
	}

	rows, err := s.cases.ApplyExtractionStatus(ctx, item.CaseID, c.Status, c.ExtractionStatus, caseStatus, extraction, metadata, clearLease, s.now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply extraction status")
	}
	if rows == 0 {
		// The guard missed: the case moved on after the legality read.
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("case %s changed concurrently, retry", item.CaseID))
	}

	switch extraction {
	case models.ExtractionStatusSucceeded:
		s.metrics.ObserveCompletion(string(extraction))
		if s.notifier != nil {
			s.notifier.Emit(ctx, models.EventCaseExtractionSuccess, models.Metadata{
				"case_id": item.CaseID,
				"status":  string(caseStatus),
			})
		}
	case models.ExtractionStatusFailed:
		s.metrics.ObserveCompletion(string(extraction))
		if s.notifier != nil {
			s.notifier.Emit(ctx, models.EventCaseExtractionFailure, models.Metadata{
				"case_id": item.CaseID,
				"status":  string(caseStatus),
			})
		}
	}
	return nil
}

// deriveCaseStatus computes the case status implied by an administratively
// applied extraction sub-state, plus whether the lease should be cleared.
func deriveCaseStatus(current models.CaseStatus, extraction models.ExtractionStatus) (models.CaseStatus, bool, error) {
	switch extraction {
	case models.ExtractionStatusSucceeded:
		return models.CaseStatusCompleted, true, nil
	case models.ExtractionStatusFailed:
		return models.CaseStatusFailed, true, nil
	case models.ExtractionStatusPending:
		// Requeue: the case goes back to the claimable pool.
		return models.CaseStatusReadyForExtraction, true, nil
	case models.ExtractionStatusInProgress, models.ExtractionStatusStale:
		if current != models.CaseStatusInExtraction {
			return current, false, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("case in status %q cannot carry extraction status %q", current, extraction))
		}
		return current, false, nil
	}
	return current, false, appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("unknown extraction status %q", extraction))
}

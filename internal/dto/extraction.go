package dto

import (
	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

// ExtractionUpdateRequest reports a worker's extraction outcome for one case.
type ExtractionUpdateRequest struct {
	Status       models.ExtractionStatus `json:"status" binding:"required" validate:"required"`
	Metadata     models.Metadata         `json:"metadata,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
}

// BulkExtractionItem is one entry of an administrative bulk correction.
type BulkExtractionItem struct {
	CaseID       string                  `json:"case_id" validate:"required"`
	Status       models.ExtractionStatus `json:"status" validate:"required"`
	Metadata     models.Metadata         `json:"metadata,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
}

// BulkExtractionUpdateRequest carries a batch of independent updates.
type BulkExtractionUpdateRequest struct {
	Updates []BulkExtractionItem `json:"updates" binding:"required" validate:"required,min=1,max=500,dive"`
}

// BulkExtractionResult is the per-item outcome; partial failure is expected.
type BulkExtractionResult struct {
	CaseID  string           `json:"case_id"`
	Success bool             `json:"success"`
	Error   *appErrors.Error `json:"error,omitempty"`
}

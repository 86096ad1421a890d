package dto

import "github.com/noah-isme/caseflow-api/internal/models"

// CreateJobRequest starts a batch OCR run over one or more cases.
type CreateJobRequest struct {
	CaseIDs                    []string `json:"case_ids" binding:"required" validate:"required,min=1,dive,required"`
	Language                   string   `json:"language,omitempty"`
	EnableHandwritingDetection bool     `json:"enable_handwriting_detection,omitempty"`
	Priority                   *int     `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
}

// JobQuery constrains job listings.
type JobQuery struct {
	Status string `form:"status"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// JobProgressRequest is the OCR collaborator's progress callback.
type JobProgressRequest struct {
	Progress float64 `json:"progress" validate:"min=0,max=1"`
	Message  string  `json:"message,omitempty"`
}

// JobCompleteRequest is the OCR collaborator's completion signal.
type JobCompleteRequest struct {
	Results models.Metadata `json:"results,omitempty"`
}

// JobFailRequest is the OCR collaborator's failure signal.
type JobFailRequest struct {
	Error string `json:"error" binding:"required" validate:"required"`
}

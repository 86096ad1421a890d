package dto

import (
	"time"

	"github.com/noah-isme/caseflow-api/internal/models"
)

// CreateCaseRequest is the producer payload for opening a case.
type CreateCaseRequest struct {
	Name        string          `json:"name" binding:"required" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Metadata    models.Metadata `json:"metadata,omitempty"`
	Priority    *int            `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
}

// UpdateCaseRequest carries the producer-mutable case fields.
type UpdateCaseRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Metadata    models.Metadata `json:"metadata,omitempty"`
	Priority    *int            `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
}

// CaseQuery constrains case listings.
type CaseQuery struct {
	Status string `form:"status"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// ClaimRequest asks the lease coordinator for up to Limit cases.
type ClaimRequest struct {
	Limit                int `json:"limit" validate:"omitempty,min=1,max=100"`
	LeaseDurationMinutes int `json:"lease_duration_minutes" validate:"omitempty,min=1,max=1440"`
}

// ClaimResult is the claimed set plus the common lease expiry.
type ClaimResult struct {
	Cases          []models.Case `json:"cases"`
	Claimed        bool          `json:"claimed"`
	LeaseExpiresAt *time.Time    `json:"lease_expires_at,omitempty"`
}

// LeaseExtensionRequest extends an owned lease.
type LeaseExtensionRequest struct {
	DurationMinutes int `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
}

// LeaseResult reports the outcome of a renew/release call.
type LeaseResult struct {
	CaseID    string     `json:"case_id"`
	NewExpiry *time.Time `json:"new_expiry,omitempty"`
	Message   string     `json:"message"`
}

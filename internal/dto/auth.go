package dto

import "github.com/noah-isme/caseflow-api/internal/models"

// TokenRequest authenticates a registered worker.
type TokenRequest struct {
	WorkerID string `json:"worker_id" binding:"required" validate:"required"`
	Secret   string `json:"secret" binding:"required" validate:"required"`
}

// RegisterWorkerRequest registers a new worker identity (operator only).
type RegisterWorkerRequest struct {
	Name   string            `json:"name" binding:"required" validate:"required"`
	Secret string            `json:"secret" binding:"required" validate:"required,min=12"`
	Role   models.WorkerRole `json:"role,omitempty" validate:"omitempty,oneof=worker operator"`
}

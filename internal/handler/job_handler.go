package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/service"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// JobHandler serves the OCR job endpoints.
type JobHandler struct {
	jobs        *service.JobService
	idempotency *service.IdempotencyService
	logger      *zap.Logger
}

// NewJobHandler constructs the handler.
func NewJobHandler(jobs *service.JobService, idempotency *service.IdempotencyService, logger *zap.Logger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{
		jobs:        jobs,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Create godoc
// @Summary Start a batch OCR job over one or more cases
// @Tags jobs
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.CreateJobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload"))
		return
	}

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		created, err := h.jobs.Create(ctx, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, created, nil
	})
}

// Get godoc
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// List godoc
// @Summary List jobs with keyset pagination
// @Tags jobs
// @Produce json
// @Param status query string false "Filter by status"
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size (max 1000)"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var query dto.JobQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	jobs, pagination, err := h.jobs.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Progress godoc
// @Summary Record OCR progress for a job
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.JobProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/progress [patch]
func (h *JobHandler) Progress(c *gin.Context) {
	var req dto.JobProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload"))
		return
	}
	id := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		job, err := h.jobs.RecordProgress(ctx, id, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, job, nil
	})
}

// Complete godoc
// @Summary Mark a job completed and its cases ready for extraction
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.JobCompleteRequest false "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/complete [post]
func (h *JobHandler) Complete(c *gin.Context) {
	var req dto.JobCompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload"))
			return
		}
	}
	id := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		job, err := h.jobs.Complete(ctx, id, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, job, nil
	})
}

// Fail godoc
// @Summary Mark a job failed
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.JobFailRequest true "Failure payload"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/fail [post]
func (h *JobHandler) Fail(c *gin.Context) {
	var req dto.JobFailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid failure payload"))
		return
	}
	id := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		job, err := h.jobs.Fail(ctx, id, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, job, nil
	})
}

// Cancel godoc
// @Summary Cancel a pending or running job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		job, err := h.jobs.Cancel(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, job, nil
	})
}

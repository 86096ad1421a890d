package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/service"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// LeaseHandler serves the worker-facing lease endpoints. The worker identity
// comes from the bearer token, never from the request body.
type LeaseHandler struct {
	leases      *service.LeaseService
	idempotency *service.IdempotencyService
	logger      *zap.Logger
}

// NewLeaseHandler constructs the handler.
func NewLeaseHandler(leases *service.LeaseService, idempotency *service.IdempotencyService, logger *zap.Logger) *LeaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseHandler{
		leases:      leases,
		idempotency: idempotency,
		logger:      logger,
	}
}

// ListReady godoc
// @Summary Preview claimable cases without leasing them
// @Tags leases
// @Produce json
// @Param limit query int false "Max cases to return (max 100)"
// @Success 200 {object} response.Envelope
// @Router /cases/ready [get]
func (h *LeaseHandler) ListReady(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	cases, err := h.leases.ListReady(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, nil)
}

// Claim godoc
// @Summary Atomically claim a batch of cases under a lease
// @Tags leases
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.ClaimRequest false "Claim options"
// @Success 200 {object} response.Envelope
// @Router /cases/claims [post]
func (h *LeaseHandler) Claim(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ClaimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid claim payload"))
			return
		}
	}

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		result, err := h.leases.Claim(ctx, claims.WorkerID, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, result, nil
	})
}

// Extend godoc
// @Summary Extend an owned lease
// @Tags leases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.LeaseExtensionRequest false "Extension options"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/lease/extend [patch]
func (h *LeaseHandler) Extend(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.LeaseExtensionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lease payload"))
			return
		}
	}
	caseID := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		result, err := h.leases.Renew(ctx, caseID, claims.WorkerID, req.DurationMinutes)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, result, nil
	})
}

// Release godoc
// @Summary Release an owned lease and requeue the case
// @Tags leases
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/lease/release [patch]
func (h *LeaseHandler) Release(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	caseID := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		result, err := h.leases.Release(ctx, caseID, claims.WorkerID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, result, nil
	})
}

// ReportExtraction godoc
// @Summary Report the extraction outcome for an owned case
// @Tags leases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.ExtractionUpdateRequest true "Extraction outcome"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/extraction-status [patch]
func (h *LeaseHandler) ReportExtraction(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ExtractionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid extraction payload"))
		return
	}
	caseID := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		updated, err := h.leases.Complete(ctx, caseID, claims.WorkerID, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, updated, nil
	})
}

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

// ExtractionHandler serves the administrative bulk extraction corrections.
type ExtractionHandler struct {
	extraction  *service.ExtractionService
	idempotency *service.IdempotencyService
	logger      *zap.Logger
}

// NewExtractionHandler constructs the handler.
func NewExtractionHandler(extraction *service.ExtractionService, idempotency *service.IdempotencyService, logger *zap.Logger) *ExtractionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionHandler{
		extraction:  extraction,
		idempotency: idempotency,
		logger:      logger,
	}
}

// BulkUpdate godoc
// @Summary Apply extraction-status corrections to many cases at once
// @Description Items are applied independently; a failed item never aborts the batch. Bypasses lease ownership checks.
// @Tags extraction
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.BulkExtractionUpdateRequest true "Updates"
// @Success 200 {object} response.Envelope
// @Router /cases/extraction-status/bulk [patch]
func (h *ExtractionHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkExtractionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload"))
		return
	}

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		results, err := h.extraction.BulkUpdate(ctx, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, results, nil
	})
}

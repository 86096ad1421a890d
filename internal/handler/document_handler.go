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

// DocumentHandler serves document reads and OCR result callbacks.
type DocumentHandler struct {
	documents   *service.DocumentService
	idempotency *service.IdempotencyService
	logger      *zap.Logger
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents *service.DocumentService, idempotency *service.IdempotencyService, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{
		documents:   documents,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Get godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// RecordResult godoc
// @Summary Record the OCR outcome for a document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.DocumentResultRequest true "OCR outcome"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/result [patch]
func (h *DocumentHandler) RecordResult(c *gin.Context) {
	var req dto.DocumentResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload"))
		return
	}
	id := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		doc, err := h.documents.RecordResult(ctx, id, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, doc, nil
	})
}

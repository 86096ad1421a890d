package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/service"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/export"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// CaseHandler serves the producer-facing case endpoints.
type CaseHandler struct {
	cases       *service.CaseService
	documents   *service.DocumentService
	idempotency *service.IdempotencyService
	logger      *zap.Logger
}

// NewCaseHandler constructs the handler.
func NewCaseHandler(cases *service.CaseService, documents *service.DocumentService, idempotency *service.IdempotencyService, logger *zap.Logger) *CaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseHandler{
		cases:       cases,
		documents:   documents,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Create godoc
// @Summary Create a case
// @Tags cases
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload"))
		return
	}

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		created, err := h.cases.Create(ctx, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, created, nil
	})
}

// Get godoc
// @Summary Get a case with its documents
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	result, err := h.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List cases with keyset pagination
// @Tags cases
// @Produce json
// @Param status query string false "Filter by status"
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size (max 1000)"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	var query dto.CaseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	cases, pagination, err := h.cases.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Update godoc
// @Summary Update producer-mutable case fields
// @Tags cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.UpdateCaseRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [patch]
func (h *CaseHandler) Update(c *gin.Context) {
	var req dto.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload"))
		return
	}
	id := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		updated, err := h.cases.Update(ctx, id, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, updated, nil
	})
}

// Cancel godoc
// @Summary Cancel a case
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [delete]
func (h *CaseHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		cancelled, err := h.cases.Cancel(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, cancelled, nil
	})
}

// Reopen godoc
// @Summary Reopen a case for extraction (operator override)
// @Tags cases
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/reopen [patch]
func (h *CaseHandler) Reopen(c *gin.Context) {
	id := c.Param("id")
	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		reopened, err := h.cases.Reopen(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, reopened, nil
	})
}

// AttachDocument godoc
// @Summary Attach a document to a case
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/documents [post]
func (h *CaseHandler) AttachDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload"))
		return
	}
	caseID := c.Param("id")

	runIdempotent(c, h.idempotency, func(ctx context.Context) (int, interface{}, error) {
		doc, err := h.documents.Attach(ctx, caseID, req)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, doc, nil
	})
}

// ListDocuments godoc
// @Summary List the documents attached to a case
// @Tags documents
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/documents [get]
func (h *CaseHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListByCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Export godoc
// @Summary Export cases as CSV or PDF
// @Tags cases
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Filter by status"
// @Success 200 {file} file
// @Router /cases/export [get]
func (h *CaseHandler) Export(c *gin.Context) {
	var query dto.CaseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	query.Limit = 1000

	cases, _, err := h.cases.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now().UTC()
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		data, err := export.CasesPDF(cases, now)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cases.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
	case "csv":
		data, err := export.CasesCSV(cases)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cases.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

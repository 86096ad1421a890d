package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/service"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// AuthHandler serves worker authentication.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger}
}

// Token godoc
// @Summary Exchange worker credentials for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Worker credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid credentials payload"))
		return
	}

	token, err := h.auth.IssueToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, token, nil)
}

// RegisterWorker godoc
// @Summary Register a new worker identity (operator only)
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body dto.RegisterWorkerRequest true "Worker payload"
// @Success 201 {object} response.Envelope
// @Router /auth/workers [post]
func (h *AuthHandler) RegisterWorker(c *gin.Context) {
	var req dto.RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid worker payload"))
		return
	}

	worker, err := h.auth.RegisterWorker(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, worker)
}

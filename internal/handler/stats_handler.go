package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/service"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

// StatsHandler serves health and system statistics.
type StatsHandler struct {
	stats  *service.StatsService
	logger *zap.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(stats *service.StatsService, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{stats: stats, logger: logger}
}

// Health godoc
// @Summary Service health with store totals
// @Tags system
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *StatsHandler) Health(c *gin.Context) {
	if err := h.stats.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, response.Envelope{
			Data: gin.H{"status": "unhealthy"},
		})
		return
	}

	stats, err := h.stats.Health(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "healthy", "stats": stats}, nil)
}

// Stats godoc
// @Summary Per-status entity breakdowns
// @Tags system
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

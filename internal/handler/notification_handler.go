package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/service"
	"github.com/noah-isme/caseflow-api/internal/ws"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
	"github.com/noah-isme/caseflow-api/pkg/response"
)

const webhookReceiptMaxBytes = 1 << 20

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NotificationHandler serves the notification log, the websocket stream and
// the test webhook endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
	hub           *ws.Hub
	logger        *zap.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(notifications *service.NotificationService, hub *ws.Hub, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		notifications: notifications,
		hub:           hub,
		logger:        logger,
	}
}

// List godoc
// @Summary List the lifecycle notification log
// @Tags notifications
// @Produce json
// @Param event_type query string false "Filter by event type"
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size (max 1000)"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var query dto.NotificationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	filter := models.NotificationFilter{
		Cursor: query.Cursor,
		Limit:  query.Limit,
	}
	if query.EventType != "" {
		eventType := models.EventType(query.EventType)
		filter.EventType = &eventType
	}

	notifications, pagination, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, pagination)
}

// Stream godoc
// @Summary Subscribe to live lifecycle events over websocket
// @Tags notifications
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Sugar().Warnw("websocket upgrade failed", "error", err)
		return
	}
	h.hub.AddClient(conn)
}

// ReceiveTestWebhook godoc
// @Summary Record a test webhook delivery
// @Tags notifications
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /webhooks/test [post]
func (h *NotificationHandler) ReceiveTestWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookReceiptMaxBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read payload"))
		return
	}
	if err := h.notifications.RecordTestReceipt(c.Request.Context(), payload); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}

// WebhookHistory godoc
// @Summary List recent test webhook receipts
// @Tags notifications
// @Produce json
// @Param limit query int false "Max receipts to return"
// @Success 200 {object} response.Envelope
// @Router /webhooks/history [get]
func (h *NotificationHandler) WebhookHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	receipts, total, err := h.notifications.ReceiptHistory(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipts, nil, map[string]interface{}{"total_count": total})
}

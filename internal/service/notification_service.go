package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/pkg/config"
	"github.com/noah-isme/caseflow-api/pkg/dispatch"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type notificationStore interface {
	Append(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	InsertReceipt(ctx context.Context, receipt *models.WebhookReceipt) error
	ListReceipts(ctx context.Context, limit int) ([]models.WebhookReceipt, int, error)
}

type eventBroadcaster interface {
	Broadcast(payload interface{})
}

type eventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type webhookEnqueuer interface {
	Enqueue(task dispatch.Task) error
}

// NotificationService appends lifecycle events to the durable log and fans
// them out to subscribers. Fan-out is best effort and stays off the
// mutual-exclusion hot path: a failed delivery never fails the mutation that
// produced the event.
type NotificationService struct {
	repo      notificationStore
	broadcast eventBroadcaster
	publisher eventPublisher
	webhooks  webhookEnqueuer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       config.NotificationsConfig
}

// NotificationServiceOption configures the service.
type NotificationServiceOption func(*NotificationService)

// WithBroadcaster attaches the websocket hub.
func WithBroadcaster(b eventBroadcaster) NotificationServiceOption {
	return func(s *NotificationService) { s.broadcast = b }
}

// WithPublisher attaches the redis event publisher.
func WithPublisher(p eventPublisher) NotificationServiceOption {
	return func(s *NotificationService) { s.publisher = p }
}

// WithWebhookQueue attaches the webhook delivery queue.
func WithWebhookQueue(q webhookEnqueuer) NotificationServiceOption {
	return func(s *NotificationService) { s.webhooks = q }
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationStore, metrics *MetricsService, logger *zap.Logger, cfg config.NotificationsConfig, opts ...NotificationServiceOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Emit appends the event and pushes it to subscribers. Errors are logged,
// never returned: the mutation that produced the event already succeeded.
func (s *NotificationService) Emit(ctx context.Context, event models.EventType, payload models.Metadata) {
	if payload == nil {
		payload = models.Metadata{}
	}
	notification := &models.Notification{
		EventType: event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, notification); err != nil {
		s.logger.Sugar().Errorw("failed to append notification", "event", event, "error", err)
		return
	}
	s.metrics.ObserveNotification(string(event))

	if s.broadcast != nil {
		s.broadcast.Broadcast(notification)
	}

	if s.publisher != nil && s.cfg.RedisEnabled {
		if data, err := json.Marshal(notification); err == nil {
			if err := s.publisher.Publish(ctx, s.cfg.RedisChannel, data); err != nil {
				s.logger.Sugar().Warnw("failed to publish notification", "event", event, "error", err)
			}
		}
	}

	if s.webhooks != nil && len(s.cfg.WebhookEndpoints) > 0 {
		for _, endpoint := range s.cfg.WebhookEndpoints {
			task := dispatch.Task{
				ID:      uuid.NewString(),
				Kind:    string(event),
				Payload: webhookDelivery{Endpoint: endpoint, Notification: notification},
			}
			if err := s.webhooks.Enqueue(task); err != nil {
				s.logger.Sugar().Warnw("failed to enqueue webhook delivery", "event", event, "endpoint", endpoint, "error", err)
			}
		}
	}
}

// List returns a page of the notification log.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.CursorPagination, error) {
	if err := validateCursor(filter.Cursor); err != nil {
		return nil, nil, err
	}
	filter.Limit = clampLimit(filter.Limit, listLimitDefault, listLimitMax)
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := buildPagination(total, filter.Limit, len(notifications), func(i int) (time.Time, string) {
		return notifications[i].CreatedAt, notifications[i].ID
	})
	return notifications, pagination, nil
}

// RecordTestReceipt stores a payload posted to the test webhook endpoint.
func (s *NotificationService) RecordTestReceipt(ctx context.Context, payload []byte) error {
	receipt := &models.WebhookReceipt{Payload: payload}
	if err := s.repo.InsertReceipt(ctx, receipt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record webhook receipt")
	}
	return nil
}

// ReceiptHistory returns recent test-webhook receipts plus the total count.
func (s *NotificationService) ReceiptHistory(ctx context.Context, limit int) ([]models.WebhookReceipt, int, error) {
	limit = clampLimit(limit, listLimitDefault, listLimitMax)
	receipts, total, err := s.repo.ListReceipts(ctx, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list webhook receipts")
	}
	return receipts, total, nil
}

type webhookDelivery struct {
	Endpoint     string               `json:"endpoint"`
	Notification *models.Notification `json:"notification"`
}

// NewWebhookDeliverer returns the dispatch handler that POSTs events to the
// configured webhook endpoints.
func NewWebhookDeliverer(timeout time.Duration, logger *zap.Logger) dispatch.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, task dispatch.Task) error {
		delivery, ok := task.Payload.(webhookDelivery)
		if !ok {
			return fmt.Errorf("unexpected webhook payload type %T", task.Payload)
		}
		body, err := json.Marshal(delivery.Notification)
		if err != nil {
			return fmt.Errorf("marshal webhook payload: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.Endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("deliver webhook: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("webhook endpoint %s returned %d", delivery.Endpoint, resp.StatusCode)
		}
		logger.Sugar().Debugw("webhook delivered", "endpoint", delivery.Endpoint, "event", task.Kind)
		return nil
	}
}

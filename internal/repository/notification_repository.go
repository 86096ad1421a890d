package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/caseflow-api/internal/models"
)

const notificationColumns = `id, event_type, payload, created_at`

// NotificationRepository persists the append-only lifecycle event log and the
// test-webhook receipt history.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append inserts a notification entry. Entries are never updated or deleted.
func (r *NotificationRepository) Append(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Payload == nil {
		n.Payload = models.Metadata{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, event_type, payload, created_at)
VALUES (:id, :event_type, :payload, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// List returns a keyset page of notifications plus the total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if filter.EventType != nil {
		where = append(where, fmt.Sprintf("event_type = $%d", argPos))
		args = append(args, *filter.EventType)
		argPos++
	}

	countQuery := `SELECT COUNT(*) FROM notifications`
	if len(where) > 0 {
		countQuery += " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	if filter.Cursor != "" {
		cursorAt, cursorID, err := models.DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, 0, err
		}
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argPos, argPos+1))
		args = append(args, cursorAt, cursorID)
		argPos += 2
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argPos)
	args = append(args, filter.Limit)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// InsertReceipt records a payload delivered to the test webhook endpoint.
func (r *NotificationRepository) InsertReceipt(ctx context.Context, receipt *models.WebhookReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.ReceivedAt.IsZero() {
		receipt.ReceivedAt = time.Now().UTC()
	}
	const query = `INSERT INTO webhook_receipts (id, payload, received_at)
VALUES (:id, :payload, :received_at)`
	if _, err := r.db.NamedExecContext(ctx, query, receipt); err != nil {
		return fmt.Errorf("insert webhook receipt: %w", err)
	}
	return nil
}

// ListReceipts returns the most recent webhook receipts plus the total count.
func (r *NotificationRepository) ListReceipts(ctx context.Context, limit int) ([]models.WebhookReceipt, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM webhook_receipts`); err != nil {
		return nil, 0, fmt.Errorf("count webhook receipts: %w", err)
	}
	const query = `SELECT id, payload, received_at FROM webhook_receipts ORDER BY received_at DESC, id DESC LIMIT $1`
	var receipts []models.WebhookReceipt
	if err := r.db.SelectContext(ctx, &receipts, query, limit); err != nil {
		return nil, 0, fmt.Errorf("list webhook receipts: %w", err)
	}
	return receipts, total, nil
}

package models

import "time"

// EventType enumerates lifecycle events appended to the notification log.
type EventType string

const (
	EventCaseReadyForExtraction EventType = "case.ready_for_extraction"
	EventCaseExtractionSuccess  EventType = "case.extraction.succeeded"
	EventCaseExtractionFailure  EventType = "case.extraction.failed"
	EventCaseReopened           EventType = "case.reopened"
	EventJobCompleted           EventType = "job.completed"
	EventJobFailed              EventType = "job.failed"
)

// Notification is one entry in the append-only lifecycle event log.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	EventType EventType `db:"event_type" json:"event_type"`
	Payload   Metadata  `db:"payload" json:"data"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// NotificationFilter constrains notification log queries.
type NotificationFilter struct {
	EventType *EventType
	Cursor    string
	Limit     int
}

// WebhookReceipt records a payload posted to the test webhook endpoint.
type WebhookReceipt struct {
	ID         string    `db:"id" json:"id"`
	Payload    []byte    `db:"payload" json:"payload"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}

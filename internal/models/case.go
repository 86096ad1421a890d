package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CaseStatus tracks a case through the processing and extraction pipeline.
// Wire values match the existing collaborators' contract.
type CaseStatus string

const (
	CaseStatusCreated            CaseStatus = "created"
	CaseStatusProcessing         CaseStatus = "processing"
	CaseStatusReadyForExtraction CaseStatus = "ready_for_extraction"
	CaseStatusInExtraction       CaseStatus = "in_extraction"
	CaseStatusCompleted          CaseStatus = "completed"
	CaseStatusFailed             CaseStatus = "failed"
	CaseStatusCancelled          CaseStatus = "cancelled"
)

// Terminal reports whether no further transitions are legal except reopen.
func (s CaseStatus) Terminal() bool {
	switch s {
	case CaseStatusCompleted, CaseStatusFailed, CaseStatusCancelled:
		return true
	}
	return false
}

// ExtractionStatus is the orthogonal sub-state tracked alongside CaseStatus.
type ExtractionStatus string

const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusInProgress ExtractionStatus = "in_progress"
	ExtractionStatusSucceeded  ExtractionStatus = "succeeded"
	ExtractionStatusFailed     ExtractionStatus = "failed"
	ExtractionStatusStale      ExtractionStatus = "stale"
)

const (
	// PriorityMin and PriorityMax bound case and job priorities.
	PriorityMin = 1
	PriorityMax = 10
	// PriorityDefault applies when the producer omits a priority.
	PriorityDefault = 5
)

// Metadata stores arbitrary key/value pairs persisted as JSONB.
type Metadata map[string]interface{}

// Value marshals metadata to JSON for persistence.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metadata map.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Metadata", value)
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	return nil
}

// Case is the unit of work tracked through processing and extraction.
// lease_holder and lease_expires_at are set together or not at all.
type Case struct {
	ID               string           `db:"id" json:"case_id"`
	Name             string           `db:"name" json:"name"`
	Description      *string          `db:"description" json:"description,omitempty"`
	Status           CaseStatus       `db:"status" json:"status"`
	ExtractionStatus ExtractionStatus `db:"extraction_status" json:"extraction_status"`
	Metadata         Metadata         `db:"metadata" json:"metadata"`
	Priority         int              `db:"priority" json:"priority"`
	LeaseHolder      *string          `db:"lease_holder" json:"lease_holder,omitempty"`
	LeaseExpiresAt   *time.Time       `db:"lease_expires_at" json:"lease_expires_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`

	// Documents is populated on detail reads only.
	Documents []Document `db:"-" json:"documents,omitempty"`
}

// LeaseActive reports whether the case carries an unexpired lease at now.
func (c *Case) LeaseActive(now time.Time) bool {
	return c.LeaseHolder != nil && c.LeaseExpiresAt != nil && c.LeaseExpiresAt.After(now)
}

// Claimable reports whether the case may be handed to an extraction worker at
// now: ready for extraction, or holding a lease that already expired.
func (c *Case) Claimable(now time.Time) bool {
	switch c.Status {
	case CaseStatusReadyForExtraction:
		return !c.LeaseActive(now)
	case CaseStatusInExtraction:
		return c.ExtractionStatus == ExtractionStatusStale || !c.LeaseActive(now)
	}
	return false
}

// CaseFilter constrains case listing queries.
type CaseFilter struct {
	Status           *CaseStatus
	ExtractionStatus *ExtractionStatus
	Cursor           string
	Limit            int
}

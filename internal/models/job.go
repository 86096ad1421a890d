package models

import (
	"time"

	"github.com/lib/pq"
)

// JobStatus captures the OCR batch run lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a batch OCR-processing run over one or more cases. Job and case
// status evolve independently once the job has reported completion.
type Job struct {
	ID                         string         `db:"id" json:"job_id"`
	CaseIDs                    pq.StringArray `db:"case_ids" json:"case_ids"`
	Status                     JobStatus      `db:"status" json:"status"`
	Language                   string         `db:"language" json:"language"`
	EnableHandwritingDetection bool           `db:"enable_handwriting_detection" json:"enable_handwriting_detection"`
	Priority                   int            `db:"priority" json:"priority"`
	Progress                   float64        `db:"progress" json:"progress"`
	Results                    Metadata       `db:"results" json:"results,omitempty"`
	Error                      *string        `db:"error" json:"error,omitempty"`
	CreatedAt                  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                  time.Time      `db:"updated_at" json:"updated_at"`
	StartedAt                  *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt                *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// JobFilter constrains job listing queries.
type JobFilter struct {
	Status *JobStatus
	Cursor string
	Limit  int
}

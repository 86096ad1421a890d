// Package state encodes every legal status transition for cases, jobs,
// documents and the extraction sub-state. All mutation paths resolve their
// target status here; nothing else in the codebase decides transition
// legality.
package state

import (
	"fmt"

	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

// CaseEvent drives case status transitions.
type CaseEvent string

const (
	// CaseEventJobStarted fires when an OCR job begins driving the case.
	CaseEventJobStarted CaseEvent = "job_started"
	// CaseEventJobFinished fires when the OCR collaborator reports the job done.
	CaseEventJobFinished CaseEvent = "job_finished"
	// CaseEventClaimed fires when an extraction worker claims the case.
	CaseEventClaimed CaseEvent = "claimed"
	// CaseEventExtractionSucceeded and CaseEventExtractionFailed resolve the case.
	CaseEventExtractionSucceeded CaseEvent = "extraction_succeeded"
	CaseEventExtractionFailed    CaseEvent = "extraction_failed"
	// CaseEventReleased re-queues the case without an outcome.
	CaseEventReleased CaseEvent = "released"
	// CaseEventCancelled is legal from any non-terminal status.
	CaseEventCancelled CaseEvent = "cancelled"
	// CaseEventReopened is the operator override; always legal.
	CaseEventReopened CaseEvent = "reopened"
)

var caseTransitions = map[models.CaseStatus]map[CaseEvent]models.CaseStatus{
	models.CaseStatusCreated: {
		CaseEventJobStarted: models.CaseStatusProcessing,
		CaseEventCancelled:  models.CaseStatusCancelled,
	},
	models.CaseStatusProcessing: {
		CaseEventJobStarted:  models.CaseStatusProcessing,
		CaseEventJobFinished: models.CaseStatusReadyForExtraction,
		CaseEventCancelled:   models.CaseStatusCancelled,
	},
	models.CaseStatusReadyForExtraction: {
		CaseEventClaimed:   models.CaseStatusInExtraction,
		CaseEventCancelled: models.CaseStatusCancelled,
	},
	models.CaseStatusInExtraction: {
		CaseEventClaimed:             models.CaseStatusInExtraction,
		CaseEventExtractionSucceeded: models.CaseStatusCompleted,
		CaseEventExtractionFailed:    models.CaseStatusFailed,
		CaseEventReleased:            models.CaseStatusReadyForExtraction,
		CaseEventCancelled:           models.CaseStatusCancelled,
	},
}

// NextCaseStatus applies event to current and returns the resulting status.
// The reopen event is always legal and short-circuits the table.
func NextCaseStatus(current models.CaseStatus, event CaseEvent) (models.CaseStatus, error) {
	if event == CaseEventReopened {
		return models.CaseStatusReadyForExtraction, nil
	}
	if next, ok := caseTransitions[current][event]; ok {
		return next, nil
	}
	return current, invalid("case", string(current), string(event))
}

// ExtractionEvent drives the extraction sub-state.
type ExtractionEvent string

const (
	ExtractionEventClaimed      ExtractionEvent = "claimed"
	ExtractionEventSucceeded    ExtractionEvent = "succeeded"
	ExtractionEventFailed       ExtractionEvent = "failed"
	ExtractionEventLeaseExpired ExtractionEvent = "lease_expired"
	ExtractionEventRequeued     ExtractionEvent = "requeued"
)

var extractionTransitions = map[models.ExtractionStatus]map[ExtractionEvent]models.ExtractionStatus{
	models.ExtractionStatusPending: {
		ExtractionEventClaimed: models.ExtractionStatusInProgress,
	},
	models.ExtractionStatusInProgress: {
		ExtractionEventSucceeded:    models.ExtractionStatusSucceeded,
		ExtractionEventFailed:       models.ExtractionStatusFailed,
		ExtractionEventLeaseExpired: models.ExtractionStatusStale,
		ExtractionEventRequeued:     models.ExtractionStatusPending,
	},
	models.ExtractionStatusStale: {
		// A stale case is claimable again; its outcome may also arrive late.
		ExtractionEventClaimed:   models.ExtractionStatusInProgress,
		ExtractionEventSucceeded: models.ExtractionStatusSucceeded,
		ExtractionEventFailed:    models.ExtractionStatusFailed,
		ExtractionEventRequeued:  models.ExtractionStatusPending,
	},
}

// NextExtractionStatus applies event to the extraction sub-state.
func NextExtractionStatus(current models.ExtractionStatus, event ExtractionEvent) (models.ExtractionStatus, error) {
	if next, ok := extractionTransitions[current][event]; ok {
		return next, nil
	}
	return current, invalid("extraction", string(current), string(event))
}

// JobEvent drives job status transitions.
type JobEvent string

const (
	JobEventStarted   JobEvent = "started"
	JobEventCompleted JobEvent = "completed"
	JobEventFailed    JobEvent = "failed"
	JobEventCancelled JobEvent = "cancelled"
)

var jobTransitions = map[models.JobStatus]map[JobEvent]models.JobStatus{
	models.JobStatusPending: {
		JobEventStarted:   models.JobStatusRunning,
		JobEventCancelled: models.JobStatusCancelled,
	},
	models.JobStatusRunning: {
		JobEventStarted:   models.JobStatusRunning,
		JobEventCompleted: models.JobStatusCompleted,
		JobEventFailed:    models.JobStatusFailed,
		JobEventCancelled: models.JobStatusCancelled,
	},
}

// NextJobStatus applies event to current and returns the resulting status.
func NextJobStatus(current models.JobStatus, event JobEvent) (models.JobStatus, error) {
	if next, ok := jobTransitions[current][event]; ok {
		return next, nil
	}
	return current, invalid("job", string(current), string(event))
}

// DocumentEvent drives document status transitions.
type DocumentEvent string

const (
	DocumentEventProcessing DocumentEvent = "processing"
	DocumentEventCompleted  DocumentEvent = "completed"
	DocumentEventFailed     DocumentEvent = "failed"
)

var documentTransitions = map[models.DocumentStatus]map[DocumentEvent]models.DocumentStatus{
	models.DocumentStatusUploaded: {
		DocumentEventProcessing: models.DocumentStatusProcessing,
		DocumentEventCompleted:  models.DocumentStatusCompleted,
		DocumentEventFailed:     models.DocumentStatusFailed,
	},
	models.DocumentStatusProcessing: {
		DocumentEventCompleted: models.DocumentStatusCompleted,
		DocumentEventFailed:    models.DocumentStatusFailed,
	},
}

// NextDocumentStatus applies event to current and returns the resulting status.
func NextDocumentStatus(current models.DocumentStatus, event DocumentEvent) (models.DocumentStatus, error) {
	if next, ok := documentTransitions[current][event]; ok {
		return next, nil
	}
	return current, invalid("document", string(current), string(event))
}

// ExtractionEventForStatus maps a requested target extraction status to the
// event that reaches it. Used by the extraction-status update endpoints where
// callers submit the target status directly.
func ExtractionEventForStatus(target models.ExtractionStatus) (ExtractionEvent, error) {
	switch target {
	case models.ExtractionStatusInProgress:
		return ExtractionEventClaimed, nil
	case models.ExtractionStatusSucceeded:
		return ExtractionEventSucceeded, nil
	case models.ExtractionStatusFailed:
		return ExtractionEventFailed, nil
	case models.ExtractionStatusStale:
		return ExtractionEventLeaseExpired, nil
	case models.ExtractionStatusPending:
		return ExtractionEventRequeued, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown extraction status %q", target))
}

func invalid(entity, current, event string) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("%s in status %q cannot accept event %q", entity, current, event))
}

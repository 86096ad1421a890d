package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

func TestNextCaseStatus(t *testing.T) {
	tests := []struct {
		name    string
		current models.CaseStatus
		event   CaseEvent
		want    models.CaseStatus
		wantErr bool
	}{
		{"created to processing", models.CaseStatusCreated, CaseEventJobStarted, models.CaseStatusProcessing, false},
		{"processing to ready", models.CaseStatusProcessing, CaseEventJobFinished, models.CaseStatusReadyForExtraction, false},
		{"ready claimed", models.CaseStatusReadyForExtraction, CaseEventClaimed, models.CaseStatusInExtraction, false},
		{"reclaim while in extraction", models.CaseStatusInExtraction, CaseEventClaimed, models.CaseStatusInExtraction, false},
		{"extraction success", models.CaseStatusInExtraction, CaseEventExtractionSucceeded, models.CaseStatusCompleted, false},
		{"extraction failure", models.CaseStatusInExtraction, CaseEventExtractionFailed, models.CaseStatusFailed, false},
		{"release requeues", models.CaseStatusInExtraction, CaseEventReleased, models.CaseStatusReadyForExtraction, false},
		{"cancel from created", models.CaseStatusCreated, CaseEventCancelled, models.CaseStatusCancelled, false},
		{"cancel from processing", models.CaseStatusProcessing, CaseEventCancelled, models.CaseStatusCancelled, false},
		{"created cannot finish job", models.CaseStatusCreated, CaseEventJobFinished, "", true},
		{"created cannot be claimed", models.CaseStatusCreated, CaseEventClaimed, "", true},
		{"completed is terminal", models.CaseStatusCompleted, CaseEventClaimed, "", true},
		{"cancelled is terminal", models.CaseStatusCancelled, CaseEventJobStarted, "", true},
		{"completed cannot cancel", models.CaseStatusCompleted, CaseEventCancelled, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextCaseStatus(tt.current, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *appErrors.Error
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextCaseStatusReopenAlwaysLegal(t *testing.T) {
	for _, current := range []models.CaseStatus{
		models.CaseStatusCreated,
		models.CaseStatusProcessing,
		models.CaseStatusReadyForExtraction,
		models.CaseStatusInExtraction,
		models.CaseStatusCompleted,
		models.CaseStatusFailed,
		models.CaseStatusCancelled,
	} {
		got, err := NextCaseStatus(current, CaseEventReopened)
		require.NoError(t, err, "reopen from %s", current)
		assert.Equal(t, models.CaseStatusReadyForExtraction, got)
	}
}

func TestNextExtractionStatus(t *testing.T) {
	tests := []struct {
		name    string
		current models.ExtractionStatus
		event   ExtractionEvent
		want    models.ExtractionStatus
		wantErr bool
	}{
		{"pending claimed", models.ExtractionStatusPending, ExtractionEventClaimed, models.ExtractionStatusInProgress, false},
		{"in progress succeeds", models.ExtractionStatusInProgress, ExtractionEventSucceeded, models.ExtractionStatusSucceeded, false},
		{"in progress fails", models.ExtractionStatusInProgress, ExtractionEventFailed, models.ExtractionStatusFailed, false},
		{"in progress goes stale", models.ExtractionStatusInProgress, ExtractionEventLeaseExpired, models.ExtractionStatusStale, false},
		{"in progress requeued", models.ExtractionStatusInProgress, ExtractionEventRequeued, models.ExtractionStatusPending, false},
		{"stale reclaimed", models.ExtractionStatusStale, ExtractionEventClaimed, models.ExtractionStatusInProgress, false},
		{"stale accepts late success", models.ExtractionStatusStale, ExtractionEventSucceeded, models.ExtractionStatusSucceeded, false},
		{"pending cannot succeed", models.ExtractionStatusPending, ExtractionEventSucceeded, "", true},
		{"succeeded is terminal", models.ExtractionStatusSucceeded, ExtractionEventClaimed, "", true},
		{"failed is terminal", models.ExtractionStatusFailed, ExtractionEventRequeued, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextExtractionStatus(tt.current, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextJobStatus(t *testing.T) {
	tests := []struct {
		name    string
		current models.JobStatus
		event   JobEvent
		want    models.JobStatus
		wantErr bool
	}{
		{"pending starts", models.JobStatusPending, JobEventStarted, models.JobStatusRunning, false},
		{"running stays running", models.JobStatusRunning, JobEventStarted, models.JobStatusRunning, false},
		{"running completes", models.JobStatusRunning, JobEventCompleted, models.JobStatusCompleted, false},
		{"running fails", models.JobStatusRunning, JobEventFailed, models.JobStatusFailed, false},
		{"pending cancels", models.JobStatusPending, JobEventCancelled, models.JobStatusCancelled, false},
		{"pending cannot complete", models.JobStatusPending, JobEventCompleted, "", true},
		{"completed is terminal", models.JobStatusCompleted, JobEventCancelled, "", true},
		{"failed is terminal", models.JobStatusFailed, JobEventStarted, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextJobStatus(tt.current, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextDocumentStatus(t *testing.T) {
	got, err := NextDocumentStatus(models.DocumentStatusUploaded, DocumentEventProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusProcessing, got)

	got, err = NextDocumentStatus(models.DocumentStatusProcessing, DocumentEventCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusCompleted, got)

	// Uploaded may resolve directly when OCR is instantaneous.
	got, err = NextDocumentStatus(models.DocumentStatusUploaded, DocumentEventCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusCompleted, got)

	_, err = NextDocumentStatus(models.DocumentStatusCompleted, DocumentEventProcessing)
	require.Error(t, err)
}

func TestExtractionEventForStatus(t *testing.T) {
	event, err := ExtractionEventForStatus(models.ExtractionStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, ExtractionEventSucceeded, event)

	event, err = ExtractionEventForStatus(models.ExtractionStatusPending)
	require.NoError(t, err)
	assert.Equal(t, ExtractionEventRequeued, event)

	_, err = ExtractionEventForStatus(models.ExtractionStatus("bogus"))
	require.Error(t, err)
}

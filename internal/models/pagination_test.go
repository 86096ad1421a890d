package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)
	id := "5f9b1c2e-1111-4222-8333-944455556666"

	token := EncodeCursor(createdAt, id)
	require.NotEmpty(t, token)

	gotAt, gotID, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotAt))
	assert.Equal(t, id, gotID)
}

func TestDecodeCursorRejectsMalformedTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"missing separator", "MTIzNDU2Nzg5"},
		{"empty id", "MTc0ODc3NzY0NTo"},
		{"non numeric timestamp", "YWJjOmRlZg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCursor(tt.token)
			require.Error(t, err)
		})
	}
}

func TestCaseClaimable(t *testing.T) {
	now := time.Now().UTC()
	holder := "worker-1"
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	tests := []struct {
		name string
		c    Case
		want bool
	}{
		{"ready without lease", Case{Status: CaseStatusReadyForExtraction}, true},
		{"ready with live lease", Case{Status: CaseStatusReadyForExtraction, LeaseHolder: &holder, LeaseExpiresAt: &future}, false},
		{"in extraction expired lease", Case{Status: CaseStatusInExtraction, ExtractionStatus: ExtractionStatusInProgress, LeaseHolder: &holder, LeaseExpiresAt: &past}, true},
		{"in extraction stale", Case{Status: CaseStatusInExtraction, ExtractionStatus: ExtractionStatusStale, LeaseHolder: &holder, LeaseExpiresAt: &future}, true},
		{"in extraction live lease", Case{Status: CaseStatusInExtraction, ExtractionStatus: ExtractionStatusInProgress, LeaseHolder: &holder, LeaseExpiresAt: &future}, false},
		{"created never claimable", Case{Status: CaseStatusCreated}, false},
		{"completed never claimable", Case{Status: CaseStatusCompleted}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Claimable(now))
		})
	}
}

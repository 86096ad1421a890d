package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/pkg/config"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type stubIdempotencyStore struct {
	owned  bool
	record *models.IdempotencyRecord

	completed bool
	released  bool

	completedStatus int
	completedBody   []byte
}

func (s *stubIdempotencyStore) Acquire(_ context.Context, _, _ string, _, _ time.Time) (bool, *models.IdempotencyRecord, error) {
	return s.owned, s.record, nil
}

func (s *stubIdempotencyStore) Complete(_ context.Context, _, _ string, status int, body []byte) error {
	s.completed = true
	s.completedStatus = status
	s.completedBody = body
	return nil
}

func (s *stubIdempotencyStore) Release(_ context.Context, _, _ string) error {
	s.released = true
	return nil
}

func (s *stubIdempotencyStore) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newIdempotencyService(store *stubIdempotencyStore) *IdempotencyService {
	return NewIdempotencyService(store, nil, nil, config.IdempotencyConfig{RetentionWindow: 24 * time.Hour})
}

func TestIdempotencyExecuteRequiresKey(t *testing.T) {
	svc := newIdempotencyService(&stubIdempotencyStore{})

	_, _, err := svc.Execute(context.Background(), "POST /v1/cases", "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIdempotencyKeyRequired.Code, appErrors.FromError(err).Code)
}

func TestIdempotencyExecuteRunsOwnedSlot(t *testing.T) {
	store := &stubIdempotencyStore{owned: true}
	svc := newIdempotencyService(store)

	executed := 0
	resp, replayed, err := svc.Execute(context.Background(), "POST /v1/cases", "key-1", func(context.Context) (int, []byte, error) {
		executed++
		return 201, []byte(`{"data":{"case_id":"c1"}}`), nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, executed)
	assert.Equal(t, 201, resp.Status)
	assert.True(t, store.completed)
	assert.Equal(t, []byte(`{"data":{"case_id":"c1"}}`), store.completedBody)
}

func TestIdempotencyExecuteReplaysCompletedSlot(t *testing.T) {
	store := &stubIdempotencyStore{
		owned: false,
		record: &models.IdempotencyRecord{
			State:          models.IdempotencyStateCompleted,
			ResponseStatus: 201,
			ResponseBody:   []byte(`{"data":{"case_id":"c1"}}`),
		},
	}
	svc := newIdempotencyService(store)

	resp, replayed, err := svc.Execute(context.Background(), "POST /v1/cases", "key-1", func(context.Context) (int, []byte, error) {
		t.Fatal("must not re-execute a completed operation")
		return 0, nil, nil
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, []byte(`{"data":{"case_id":"c1"}}`), resp.Body)
}

func TestIdempotencyExecutePendingSlotIsInFlight(t *testing.T) {
	store := &stubIdempotencyStore{
		owned:  false,
		record: &models.IdempotencyRecord{State: models.IdempotencyStatePending},
	}
	svc := newIdempotencyService(store)

	_, _, err := svc.Execute(context.Background(), "POST /v1/cases", "key-1", func(context.Context) (int, []byte, error) {
		t.Fatal("must not execute while the first request is in flight")
		return 0, nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIdempotencyInFlight.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.Retryable(err))
}

func TestIdempotencyExecuteVanishedSlotIsInFlight(t *testing.T) {
	// Acquire lost a race with a concurrent purge; treated like in-flight.
	store := &stubIdempotencyStore{owned: false, record: nil}
	svc := newIdempotencyService(store)

	_, _, err := svc.Execute(context.Background(), "POST /v1/cases", "key-1", func(context.Context) (int, []byte, error) {
		return 0, nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIdempotencyInFlight.Code, appErrors.FromError(err).Code)
}

func TestIdempotencyExecuteFailureReleasesSlot(t *testing.T) {
	store := &stubIdempotencyStore{owned: true}
	svc := newIdempotencyService(store)

	wantErr := errors.New("downstream exploded")
	_, _, err := svc.Execute(context.Background(), "POST /v1/cases", "key-1", func(context.Context) (int, []byte, error) {
		return 0, nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.True(t, store.released)
	assert.False(t, store.completed)
}

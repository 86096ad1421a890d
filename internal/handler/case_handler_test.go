package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/repository"
	"github.com/noah-isme/caseflow-api/internal/service"
	"github.com/noah-isme/caseflow-api/pkg/config"
)

// memoryIdempotencyStore is a full in-memory ledger so handler tests can
// exercise real first-execution and replay paths.
type memoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRecord
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{records: map[string]*models.IdempotencyRecord{}}
}

func (s *memoryIdempotencyStore) Acquire(_ context.Context, scope, key string, now, expiresAt time.Time) (bool, *models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := scope + "|" + key
	if record, ok := s.records[id]; ok {
		return false, record, nil
	}
	s.records[id] = &models.IdempotencyRecord{
		Scope:     scope,
		Key:       key,
		State:     models.IdempotencyStatePending,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	return true, nil, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, scope, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[scope+"|"+key]
	record.State = models.IdempotencyStateCompleted
	record.ResponseStatus = status
	record.ResponseBody = body
	return nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, scope+"|"+key)
	return nil
}

func (s *memoryIdempotencyStore) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type countingCaseStore struct {
	creates int
}

func (s *countingCaseStore) Create(_ context.Context, c *models.Case) error {
	s.creates++
	c.ID = "case-1"
	c.Status = models.CaseStatusCreated
	c.ExtractionStatus = models.ExtractionStatusPending
	return nil
}

func (s *countingCaseStore) GetByID(_ context.Context, _ string) (*models.Case, error) {
	return nil, sql.ErrNoRows
}

func (s *countingCaseStore) List(_ context.Context, _ models.CaseFilter) ([]models.Case, int, error) {
	return nil, 0, nil
}

func (s *countingCaseStore) UpdateFields(_ context.Context, _ string, _ repository.UpdateCaseParams) error {
	return nil
}

func (s *countingCaseStore) TransitionStatus(_ context.Context, _ string, _, _ models.CaseStatus, _ models.ExtractionStatus, _ bool, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *countingCaseStore) Reopen(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, nil
}

type noopDocumentStore struct{}

func (noopDocumentStore) ListByCase(_ context.Context, _ string) ([]models.Document, error) {
	return nil, nil
}

func newCaseRouter(t *testing.T) (*gin.Engine, *countingCaseStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &countingCaseStore{}
	cases := service.NewCaseService(store, noopDocumentStore{}, nil, nil)
	idem := service.NewIdempotencyService(newMemoryIdempotencyStore(), nil, nil,
		config.IdempotencyConfig{RetentionWindow: 24 * time.Hour})
	h := NewCaseHandler(cases, nil, idem, nil)

	r := gin.New()
	r.POST("/v1/cases", h.Create)
	return r, store
}

func TestCaseCreateRequiresIdempotencyKey(t *testing.T) {
	r, store := newCaseRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/cases", bytes.NewBufferString(`{"name":"loan"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
	assert.Equal(t, 0, store.creates)
}

func TestCaseCreateReplaysVerbatim(t *testing.T) {
	r, store := newCaseRouter(t)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/cases", bytes.NewBufferString(`{"name":"loan"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get("Idempotency-Replayed"))

	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, 1, store.creates)
}

func TestCaseCreateFailureFreesTheKey(t *testing.T) {
	r, store := newCaseRouter(t)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/cases", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Out-of-range priority fails inside the guarded section and releases
	// the slot, so the same key works on retry.
	failed := send(`{"name":"loan","priority":99}`)
	require.Equal(t, http.StatusBadRequest, failed.Code)

	retried := send(`{"name":"loan","priority":5}`)
	require.Equal(t, http.StatusCreated, retried.Code)
	assert.Empty(t, retried.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, 1, store.creates)
}

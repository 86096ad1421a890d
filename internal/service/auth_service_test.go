package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/pkg/config"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type stubWorkerStore struct {
	workers map[string]*models.Worker

	lastSeen time.Time
}

func (s *stubWorkerStore) Create(_ context.Context, w *models.Worker) error {
	w.ID = "worker-1"
	if s.workers == nil {
		s.workers = map[string]*models.Worker{}
	}
	s.workers[w.ID] = w
	return nil
}

func (s *stubWorkerStore) FindByID(_ context.Context, id string) (*models.Worker, error) {
	w, ok := s.workers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return w, nil
}

func (s *stubWorkerStore) UpdateLastSeen(_ context.Context, _ string, ts time.Time) error {
	s.lastSeen = ts
	return nil
}

func newAuthService(store *stubWorkerStore) *AuthService {
	return NewAuthService(store, nil, config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "caseflow",
		Expiration: time.Hour,
	})
}

func hashSecret(t *testing.T, secret string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthIssueAndValidateToken(t *testing.T) {
	store := &stubWorkerStore{workers: map[string]*models.Worker{
		"worker-1": {ID: "worker-1", Name: "ocr-worker", SecretHash: hashSecret(t, "s3cret"), Role: models.RoleWorker, Active: true},
	}}
	svc := newAuthService(store)

	token, err := svc.IssueToken(context.Background(), dto.TokenRequest{WorkerID: "worker-1", Secret: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.False(t, store.lastSeen.IsZero())

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", claims.WorkerID)
	assert.Equal(t, models.RoleWorker, claims.Role)
}

func TestAuthIssueTokenRejectsWrongSecret(t *testing.T) {
	store := &stubWorkerStore{workers: map[string]*models.Worker{
		"worker-1": {ID: "worker-1", SecretHash: hashSecret(t, "s3cret"), Active: true},
	}}
	svc := newAuthService(store)

	_, err := svc.IssueToken(context.Background(), dto.TokenRequest{WorkerID: "worker-1", Secret: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthIssueTokenUnknownWorker(t *testing.T) {
	svc := newAuthService(&stubWorkerStore{workers: map[string]*models.Worker{}})

	_, err := svc.IssueToken(context.Background(), dto.TokenRequest{WorkerID: "ghost", Secret: "x"})
	require.Error(t, err)
	// Unknown worker and wrong secret are indistinguishable to the caller.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthIssueTokenInactiveWorker(t *testing.T) {
	store := &stubWorkerStore{workers: map[string]*models.Worker{
		"worker-1": {ID: "worker-1", SecretHash: hashSecret(t, "s3cret"), Active: false},
	}}
	svc := newAuthService(store)

	_, err := svc.IssueToken(context.Background(), dto.TokenRequest{WorkerID: "worker-1", Secret: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveWorker.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsForeignSignature(t *testing.T) {
	store := &stubWorkerStore{workers: map[string]*models.Worker{
		"worker-1": {ID: "worker-1", SecretHash: hashSecret(t, "s3cret"), Active: true},
	}}
	issuer := newAuthService(store)
	token, err := issuer.IssueToken(context.Background(), dto.TokenRequest{WorkerID: "worker-1", Secret: "s3cret"})
	require.NoError(t, err)

	verifier := NewAuthService(store, nil, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = verifier.ValidateToken(token.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterWorkerDefaultsRole(t *testing.T) {
	store := &stubWorkerStore{}
	svc := newAuthService(store)

	worker, err := svc.RegisterWorker(context.Background(), dto.RegisterWorkerRequest{
		Name:   "ocr-worker",
		Secret: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleWorker, worker.Role)
	assert.True(t, worker.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(worker.SecretHash), []byte("s3cret")))
}

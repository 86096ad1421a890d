package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/pkg/config"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type workerStore interface {
	Create(ctx context.Context, w *models.Worker) error
	FindByID(ctx context.Context, id string) (*models.Worker, error)
	UpdateLastSeen(ctx context.Context, id string, ts time.Time) error
}

// AuthService issues and validates worker bearer tokens. The token's
// worker_id claim is the lease_holder identity used by the lease coordinator.
type AuthService struct {
	workers workerStore
	logger  *zap.Logger
	cfg     config.JWTConfig
	now     func() time.Time
}

// NewAuthService constructs the service.
func NewAuthService(workers workerStore, logger *zap.Logger, cfg config.JWTConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		workers: workers,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueToken authenticates a worker and returns a signed bearer token.
func (s *AuthService) IssueToken(ctx context.Context, req dto.TokenRequest) (*models.TokenResponse, error) {
	worker, err := s.workers.FindByID(ctx, req.WorkerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up worker")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(worker.SecretHash), []byte(req.Secret)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !worker.Active {
		return nil, appErrors.ErrInactiveWorker
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.Expiration)
	claims := models.WorkerClaims{
		WorkerID: worker.ID,
		Name:     worker.Name,
		Role:     worker.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   worker.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	if err := s.workers.UpdateLastSeen(ctx, worker.ID, now); err != nil {
		s.logger.Sugar().Warnw("failed to stamp worker last seen", "worker_id", worker.ID, "error", err)
	}

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*models.WorkerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.WorkerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(*models.WorkerClaims)
	if !ok || claims.WorkerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// RegisterWorker creates a new worker identity. Operator only; enforced at
// the handler layer.
func (s *AuthService) RegisterWorker(ctx context.Context, req dto.RegisterWorkerRequest) (*models.Worker, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash worker secret")
	}
	role := req.Role
	if role == "" {
		role = models.RoleWorker
	}
	worker := &models.Worker{
		Name:       req.Name,
		SecretHash: string(hash),
		Role:       role,
		Active:     true,
	}
	if err := s.workers.Create(ctx, worker); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register worker")
	}
	s.logger.Sugar().Infow("worker registered", "worker_id", worker.ID, "role", worker.Role)
	return worker, nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/pkg/config"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type idempotencyStore interface {
	Acquire(ctx context.Context, scope, key string, now, expiresAt time.Time) (bool, *models.IdempotencyRecord, error)
	Complete(ctx context.Context, scope, key string, status int, body []byte) error
	Release(ctx context.Context, scope, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// StoredResponse is a replayed response from the idempotency ledger.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyService guards mutating operations behind an (operation scope,
// Idempotency-Key) ledger. The first request executes; retries within the
// retention window get the recorded response byte for byte.
type IdempotencyService struct {
	store   idempotencyStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.IdempotencyConfig
	now     func() time.Time
}

// NewIdempotencyService constructs the service.
func NewIdempotencyService(store idempotencyStore, metrics *MetricsService, logger *zap.Logger, cfg config.IdempotencyConfig) *IdempotencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs fn exactly once per (scope, key). fn returns the response
// status and the exact body bytes to record; a replay returns those bytes
// verbatim in StoredResponse. A concurrent duplicate whose first request is
// still executing gets ErrIdempotencyInFlight: the outcome is unknown, so
// neither executing again nor replaying is safe.
func (s *IdempotencyService) Execute(ctx context.Context, scope, key string, fn func(ctx context.Context) (int, []byte, error)) (*StoredResponse, bool, error) {
	if key == "" {
		return nil, false, appErrors.ErrIdempotencyKeyRequired
	}

	now := s.now()
	owned, record, err := s.store.Acquire(ctx, scope, key, now, now.Add(s.cfg.RetentionWindow))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire idempotency slot")
	}

	if !owned {
		if record == nil || record.State == models.IdempotencyStatePending {
			return nil, false, appErrors.Clone(appErrors.ErrIdempotencyInFlight, "")
		}
		s.metrics.ObserveIdempotentReplay()
		s.logger.Sugar().Infow("idempotent replay", "scope", scope)
		return &StoredResponse{Status: record.ResponseStatus, Body: record.ResponseBody}, true, nil
	}

	status, body, execErr := fn(ctx)
	if execErr != nil {
		// Failed executions free the slot so the caller can retry the key.
		if relErr := s.store.Release(ctx, scope, key); relErr != nil {
			s.logger.Sugar().Errorw("failed to release idempotency slot", "scope", scope, "error", relErr)
		}
		return nil, false, execErr
	}

	if err := s.store.Complete(ctx, scope, key, status, body); err != nil {
		// The mutation landed; losing the recording only costs replay.
		s.logger.Sugar().Errorw("failed to record idempotent response", "scope", scope, "error", err)
	}
	return &StoredResponse{Status: status, Body: body}, false, nil
}

// SweepExpired garbage-collects ledger rows past the retention window.
func (s *IdempotencyService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep idempotency ledger")
	}
	if deleted > 0 {
		s.logger.Sugar().Debugw("expired idempotency records deleted", "count", deleted)
	}
	return deleted, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/dto"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/state"
	"github.com/noah-isme/caseflow-api/pkg/config"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

const (
	claimLimitDefault = 10
	claimLimitMax     = 100
)

type leaseCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListClaimable(ctx context.Context, now time.Time, limit int) ([]models.Case, error)
	ClaimBatch(ctx context.Context, workerID string, now, expiresAt time.Time, limit int) ([]models.Case, error)
	RenewLease(ctx context.Context, caseID, workerID string, now, expiresAt time.Time) (int64, error)
	ReleaseLease(ctx context.Context, caseID, workerID string, now time.Time) (int64, error)
	CompleteLease(ctx context.Context, caseID, workerID string, status models.CaseStatus, extraction models.ExtractionStatus, metadata models.Metadata, now time.Time) (int64, error)
	MarkExpiredStale(ctx context.Context, now time.Time) (int64, error)
}

// LeaseService coordinates the lease lifecycle between extraction workers and
// the case store. Expiry is passive: every decision compares lease_expires_at
// against the current time, so correctness never depends on the sweeper.
type LeaseService struct {
	store    leaseCaseStore
	notifier *NotificationService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.LeaseConfig
	now      func() time.Time
}

// LeaseServiceOption configures the service.
type LeaseServiceOption func(*LeaseService)

// WithLeaseClock overrides the clock, used by tests to force expiry.
func WithLeaseClock(now func() time.Time) LeaseServiceOption {
	return func(s *LeaseService) { s.now = now }
}

// NewLeaseService constructs the service.
func NewLeaseService(store leaseCaseStore, notifier *NotificationService, metrics *MetricsService, logger *zap.Logger, cfg config.LeaseConfig, opts ...LeaseServiceOption) *LeaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LeaseService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// leaseDuration resolves a requested duration in minutes against the
// configured default and cap.
func (s *LeaseService) leaseDuration(minutes int) time.Duration {
	if minutes <= 0 {
		return s.cfg.DefaultDuration
	}
	d := time.Duration(minutes) * time.Minute
	if s.cfg.MaxDuration > 0 && d > s.cfg.MaxDuration {
		return s.cfg.MaxDuration
	}
	return d
}

// ListReady returns claimable cases without leasing them. Read-only preview;
// another worker may claim any of these before the caller does.
func (s *LeaseService) ListReady(ctx context.Context, limit int) ([]models.Case, error) {
	limit = clampLimit(limit, claimLimitDefault, claimLimitMax)
	cases, err := s.store.ListClaimable(ctx, s.now(), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list claimable cases")
	}
	return cases, nil
}

// Claim atomically leases up to req.Limit claimable cases to workerID. An
// empty result is not an error: it means no work is available right now.
func (s *LeaseService) Claim(ctx context.Context, workerID string, req dto.ClaimRequest) (*dto.ClaimResult, error) {
	if workerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "worker id is required")
	}
	limit := clampLimit(req.Limit, claimLimitDefault, claimLimitMax)
	now := s.now()
	expiresAt := now.Add(s.leaseDuration(req.LeaseDurationMinutes))

	cases, err := s.store.ClaimBatch(ctx, workerID, now, expiresAt, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim cases")
	}
	s.metrics.ObserveClaim(len(cases))

	result := &dto.ClaimResult{Cases: cases, Claimed: len(cases) > 0}
	if result.Claimed {
		result.LeaseExpiresAt = &expiresAt
		s.logger.Sugar().Infow("cases claimed",
			"worker_id", workerID,
			"count", len(cases),
			"lease_expires_at", expiresAt,
		)
	}
	return result, nil
}

// Renew extends workerID's lease on caseID. The new expiry is measured from
// now, not from the previous expiry.
func (s *LeaseService) Renew(ctx context.Context, caseID, workerID string, durationMinutes int) (*dto.LeaseResult, error) {
	now := s.now()
	expiresAt := now.Add(s.leaseDuration(durationMinutes))

	rows, err := s.store.RenewLease(ctx, caseID, workerID, now, expiresAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renew lease")
	}
	if rows == 0 {
		return nil, s.classifyLeaseFailure(ctx, caseID, workerID, now)
	}
	s.metrics.ObserveRenewal()
	return &dto.LeaseResult{
		CaseID:    caseID,
		NewExpiry: &expiresAt,
		Message:   "lease extended",
	}, nil
}

// Release voluntarily gives the case back: it returns to the claimable pool
// with its extraction sub-state reset to pending.
func (s *LeaseService) Release(ctx context.Context, caseID, workerID string) (*dto.LeaseResult, error) {
	now := s.now()
	rows, err := s.store.ReleaseLease(ctx, caseID, workerID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release lease")
	}
	if rows == 0 {
		return nil, s.classifyLeaseFailure(ctx, caseID, workerID, now)
	}
	s.metrics.ObserveRelease()
	return &dto.LeaseResult{
		CaseID:  caseID,
		Message: "lease released, case returned to queue",
	}, nil
}

// Complete resolves workerID's leased case with a terminal extraction outcome.
// Status, extraction sub-state, metadata merge and lease clear land in one
// write, so a crash can never leave the case half resolved.
func (s *LeaseService) Complete(ctx context.Context, caseID, workerID string, req dto.ExtractionUpdateRequest) (*models.Case, error) {
	extractionEvent, err := state.ExtractionEventForStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var caseEvent state.CaseEvent
	switch extractionEvent {
	case state.ExtractionEventSucceeded:
		caseEvent = state.CaseEventExtractionSucceeded
	case state.ExtractionEventFailed:
		caseEvent = state.CaseEventExtractionFailed
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("extraction status %q is not a reportable outcome", req.Status))
	}

	caseStatus, err := state.NextCaseStatus(models.CaseStatusInExtraction, caseEvent)
	if err != nil {
		return nil, err
	}

	metadata := req.Metadata
	if req.ErrorMessage != nil {
		if metadata == nil {
			metadata = models.Metadata{}
		}
		metadata["extraction_error"] = *req.ErrorMessage
	}

	now := s.now()
	rows, err := s.store.CompleteLease(ctx, caseID, workerID, caseStatus, req.Status, metadata, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete extraction")
	}
	if rows == 0 {
		return nil, s.classifyLeaseFailure(ctx, caseID, workerID, now)
	}
	s.metrics.ObserveCompletion(string(req.Status))

	updated, err := s.store.GetByID(ctx, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed case")
	}

	event := models.EventCaseExtractionSuccess
	if req.Status == models.ExtractionStatusFailed {
		event = models.EventCaseExtractionFailure
	}
	if s.notifier != nil {
		s.notifier.Emit(ctx, event, models.Metadata{
			"case_id":           caseID,
			"worker_id":         workerID,
			"status":            string(caseStatus),
			"extraction_status": string(req.Status),
		})
	}
	return updated, nil
}

// classifyLeaseFailure explains a guarded lease update that changed zero rows:
// the case is gone, another worker holds a live lease, or this worker's lease
// lapsed (expiry, release, or completion already happened).
func (s *LeaseService) classifyLeaseFailure(ctx context.Context, caseID, workerID string, now time.Time) error {
	c, err := s.store.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("case %s not found", caseID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect lease state")
	}
	if c.LeaseActive(now) && c.LeaseHolder != nil && *c.LeaseHolder != workerID {
		return appErrors.Clone(appErrors.ErrLeaseConflict,
			fmt.Sprintf("case %s is leased by another worker until %s", caseID, c.LeaseExpiresAt.Format(time.RFC3339)))
	}
	return appErrors.Clone(appErrors.ErrNoActiveLease,
		fmt.Sprintf("worker %s holds no active lease on case %s", workerID, caseID))
}

// SweepExpired flips expired in-progress leases to stale once. Observability
// only: claims treat expired leases as free regardless.
func (s *LeaseService) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.store.MarkExpiredStale(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired leases")
	}
	if swept > 0 {
		s.metrics.ObserveExpirations(swept)
		s.logger.Sugar().Infow("expired leases marked stale", "count", swept)
	}
	return swept, nil
}

// RunSweeper runs the expiry sweep on the configured interval until ctx is
// cancelled.
func (s *LeaseService) RunSweeper(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Sugar().Infow("lease sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Sugar().Info("lease sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.logger.Sugar().Errorw("lease sweep failed", "error", err)
			}
		}
	}
}

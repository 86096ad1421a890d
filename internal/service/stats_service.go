package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/caseflow-api/internal/models"
	appErrors "github.com/noah-isme/caseflow-api/pkg/errors"
)

type statsCaseStore interface {
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	ExtractionStatusCounts(ctx context.Context) ([]models.StatusCount, error)
	CountActiveLeases(ctx context.Context, now time.Time) (int, error)
}

type statsJobStore interface {
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
}

type statsDocumentStore interface {
	Count(ctx context.Context) (int, error)
}

// StatsService serves the health and system-stats endpoints.
type StatsService struct {
	db        *sqlx.DB
	cases     statsCaseStore
	jobs      statsJobStore
	documents statsDocumentStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(db *sqlx.DB, cases statsCaseStore, jobs statsJobStore, documents statsDocumentStore, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		db:        db,
		cases:     cases,
		jobs:      jobs,
		documents: documents,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ping verifies database connectivity.
func (s *StatsService) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.PingContext(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "database unreachable")
	}
	return nil
}

// Health returns store totals for the health endpoint.
func (s *StatsService) Health(ctx context.Context) (*models.HealthStats, error) {
	caseCounts, err := s.cases.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate case counts")
	}
	jobCounts, err := s.jobs.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate job counts")
	}
	docCount, err := s.documents.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count documents")
	}
	activeLeases, err := s.cases.CountActiveLeases(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active leases")
	}

	stats := &models.HealthStats{
		TotalDocuments: docCount,
		ActiveLeases:   activeLeases,
	}
	for _, c := range caseCounts {
		stats.TotalCases += c.Count
	}
	for _, c := range jobCounts {
		stats.TotalJobs += c.Count
	}
	return stats, nil
}

// Stats returns per-status breakdowns for the system stats endpoint.
func (s *StatsService) Stats(ctx context.Context) (*models.SystemStats, error) {
	now := s.now()

	caseCounts, err := s.cases.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate case counts")
	}
	extractionCounts, err := s.cases.ExtractionStatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate extraction counts")
	}
	jobCounts, err := s.jobs.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate job counts")
	}
	activeLeases, err := s.cases.CountActiveLeases(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active leases")
	}

	return &models.SystemStats{
		CaseStatuses:       countsToMap(caseCounts),
		JobStatuses:        countsToMap(jobCounts),
		ExtractionStatuses: countsToMap(extractionCounts),
		ActiveLeases:       activeLeases,
		GeneratedAt:        now,
	}, nil
}

func countsToMap(counts []models.StatusCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Status] = c.Count
	}
	return m
}

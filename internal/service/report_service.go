package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/persistence"
	"github.com/spec-kit/averias/internal/report"
	"github.com/spec-kit/averias/internal/repository"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

const dashboardCacheKey = "report:dashboard"

// ReportCache stores the computed dashboard between ticket writes.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReportService assembles the admin SLA dashboard.
type ReportService struct {
	tickets repository.TicketRepository
	cache   ReportCache
	ttl     time.Duration
	cfg     config.SLAConfig
	logger  *zap.Logger
	now     func() time.Time
}

// ReportDependencies wires the report service.
type ReportDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      ReportCache
	CacheTTL   time.Duration
	Config     config.SLAConfig
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewReportService constructs the service. A nil cache disables caching.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ReportService{
		tickets: deps.TicketRepo,
		cache:   deps.Cache,
		ttl:     deps.CacheTTL,
		cfg:     deps.Config,
		logger:  logger,
		now:     clock,
	}
}

// SLADashboard returns the report for an admin caller.
func (s *ReportService) SLADashboard(ctx context.Context, user *domain.User) (*report.Dashboard, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	if !access.CanReport(actor) {
		return nil, apperrors.NewPermissionDenied("only admins can view reports")
	}
	return s.Dashboard(ctx)
}

// Dashboard serves the cached report when present, computing and storing it otherwise.
func (s *ReportService) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	if s.cache != nil && s.ttl > 0 {
		var cached report.Dashboard
		err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, persistence.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
	}
	d, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, d)
	return d, nil
}

// Compute loads the report facts concurrently and aggregates them.
func (s *ReportService) Compute(ctx context.Context) (*report.Dashboard, error) {
	now := s.now().UTC()
	since := now.Add(-s.cfg.ReportWindow())
	limit := s.cfg.ReportTopRows
	if limit <= 0 {
		limit = report.DefaultTopTechnicians
	}

	var (
		window      []*domain.Ticket
		open        []*domain.Ticket
		technicians []report.TechnicianCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		window, err = s.tickets.ListCreatedBetween(gctx, since, now)
		return err
	})
	g.Go(func() error {
		var err error
		open, err = s.tickets.ListByStatuses(gctx, report.OpenStates())
		return err
	})
	g.Go(func() error {
		var err error
		technicians, err = s.tickets.CountClosedByTechnician(gctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	d := report.Build(window, open, technicians, since, now, report.Options{
		RecurrenceMin:  s.cfg.RecurrenceMinimum,
		TopTechnicians: limit,
	})
	return &d, nil
}

// Invalidate drops the cached report. Failures are logged only.
func (s *ReportService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("report cache invalidate failed", zap.Error(err))
	}
}

// Warm recomputes the report and refreshes the cache.
func (s *ReportService) Warm(ctx context.Context) error {
	d, err := s.Compute(ctx)
	if err != nil {
		return err
	}
	s.store(ctx, d)
	return nil
}

func (s *ReportService) store(ctx context.Context, d *report.Dashboard) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, dashboardCacheKey, d, s.ttl); err != nil {
		s.logger.Warn("report cache write failed", zap.Error(err))
	}
}

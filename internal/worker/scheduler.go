package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/config"
)

const jobTimeout = 2 * time.Minute

// DevicePruner deactivates push targets that have gone quiet.
type DevicePruner interface {
	PruneStale(ctx context.Context, before time.Time) (int64, error)
}

// ReportWarmer refreshes the cached SLA report.
type ReportWarmer interface {
	Warm(ctx context.Context) error
}

// Scheduler runs periodic housekeeping.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduler registers the housekeeping jobs. Empty specs skip a job.
func NewScheduler(cfg config.SchedulerConfig, devices DevicePruner, reports ReportWarmer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger: logger,
		now:    time.Now,
	}
	staleAfter := time.Duration(cfg.DeviceStaleDays) * 24 * time.Hour
	if devices != nil && cfg.DevicePruneSpec != "" && staleAfter > 0 {
		if _, err := s.cron.AddFunc(cfg.DevicePruneSpec, s.job("prune_devices", func(ctx context.Context) error {
			_, err := devices.PruneStale(ctx, s.now().UTC().Add(-staleAfter))
			return err
		})); err != nil {
			return nil, fmt.Errorf("device prune schedule %q: %w", cfg.DevicePruneSpec, err)
		}
	}
	if reports != nil && cfg.ReportWarmupSpec != "" {
		if _, err := s.cron.AddFunc(cfg.ReportWarmupSpec, s.job("warm_reports", reports.Warm)); err != nil {
			return nil, fmt.Errorf("report warmup schedule %q: %w", cfg.ReportWarmupSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		started := s.now()
		if err := fn(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduled job finished", zap.String("job", name), zap.Duration("took", s.now().Sub(started)))
	}
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

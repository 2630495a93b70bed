package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/service"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
)

// Scheduler runs the activity sync and removal evaluation on fixed
// intervals inside the API process. Both tasks are lease-guarded, so a
// scheduler instance coexists safely with the one-shot CLI binaries run
// under cron and with other API replicas.
type Scheduler struct {
	sync    *service.ActivitySyncService
	removal *service.RemovalService
	metrics *service.MetricsService
	cfg     config.SchedulerConfig
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Scheduler. The metrics service may be nil.
func New(syncSvc *service.ActivitySyncService, removalSvc *service.RemovalService, metrics *service.MetricsService, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}
	if cfg.RemovalInterval <= 0 {
		cfg.RemovalInterval = 24 * time.Hour
	}
	return &Scheduler{
		sync:    syncSvc,
		removal: removalSvc,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start launches the periodic loops.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.loop(ctx, "activity sync", s.cfg.SyncInterval, s.runSync)
	go s.loop(ctx, "removal evaluation", s.cfg.RemovalInterval, s.runRemoval)

	s.logger.Info("scheduler started",
		zap.Duration("sync_interval", s.cfg.SyncInterval),
		zap.Duration("removal_interval", s.cfg.RemovalInterval))
}

// Stop cancels the loops and waits for in-flight runs to finish, bounded
// by the configured shutdown deadline.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	deadline := s.cfg.ShutdownDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(deadline):
		s.logger.Warn("scheduler shutdown deadline exceeded")
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	report, err := s.sync.RunTick(ctx, 0)
	if err != nil {
		s.logger.Error("scheduled sync tick failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSyncReport(report)
	}
	if !report.Skipped {
		s.logger.Info("scheduled sync tick finished",
			zap.Int("selected", report.Selected),
			zap.Int("synced", report.Synced),
			zap.Int("fetch_failures", report.FetchFailures),
			zap.Int("reactivated", report.Reactivated))
	}
}

func (s *Scheduler) runRemoval(ctx context.Context) {
	report, err := s.removal.RunPass(ctx, s.cfg.RemovalNotify)
	if err != nil {
		s.logger.Error("scheduled removal pass failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRemovalReport(report)
	}
	if !report.Skipped {
		s.logger.Info("scheduled removal pass finished",
			zap.Int("evaluated", report.Evaluated),
			zap.Int("warned", report.Warned),
			zap.Int("removed", report.Removed),
			zap.Int("errors", report.Errors))
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/noah-isme/atc-endorsement-api/internal/client"
	"github.com/noah-isme/atc-endorsement-api/internal/repository"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
	"github.com/noah-isme/atc-endorsement-api/pkg/cache"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	"github.com/noah-isme/atc-endorsement-api/pkg/database"
	"github.com/noah-isme/atc-endorsement-api/pkg/lease"
	"github.com/noah-isme/atc-endorsement-api/pkg/logger"
)

// One sync tick per invocation, meant to run under cron. Fetch failures are
// per-endorsement and expected; only infrastructure failures exit non-zero.
func main() {
	limit := flag.Int("limit", 0, "maximum endorsements to sync this tick (0 = configured default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endorsementRepo := repository.NewEndorsementRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	auditSvc := service.NewAuditService(auditRepo, logr)
	locker := service.LeaseLocker{Locker: lease.NewLocker(redisClient, logr)}
	activitySource := client.NewActivityClient(cfg.Activity, logr)

	syncSvc := service.NewActivitySyncService(endorsementRepo, activitySource, auditSvc, locker, cfg.Policy, cfg.Sync, cfg.Activity.Timeout, logr)

	report, err := syncSvc.RunTick(ctx, *limit)
	if err != nil {
		logr.Sugar().Fatalw("sync tick failed", "error", err)
	}

	if report.Skipped {
		logr.Info("sync tick skipped, lease held by another run")
		return
	}
	logr.Sugar().Infow("sync tick finished",
		"selected", report.Selected,
		"synced", report.Synced,
		"fetch_failures", report.FetchFailures,
		"reactivated", report.Reactivated)
}

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

// One removal evaluation pass per invocation, meant to run under cron.
// Re-running on unchanged data is a no-op.
func main() {
	notify := flag.Bool("notify", false, "dispatch warn/remove notifications")
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

	var dispatcher service.NotificationDispatcher
	if *notify {
		notifier := client.NewWebhookNotifier(cfg.Notifier, logr)
		queued, queue := client.NewNotificationQueue(notifier, cfg.Notifier, logr, nil)
		queue.Start(ctx)
		// Drain pending notifications before the process exits.
		defer queue.Stop()
		dispatcher = queued
	}

	removalSvc := service.NewRemovalService(endorsementRepo, auditSvc, dispatcher, locker, cfg.Policy, cfg.Scheduler.RemovalLeaseTTL, logr)

	report, err := removalSvc.RunPass(ctx, *notify)
	if err != nil {
		logr.Sugar().Fatalw("removal pass failed", "error", err)
	}

	if report.Skipped {
		logr.Info("removal pass skipped, lease held by another run")
		return
	}
	logr.Sugar().Infow("removal pass finished",
		"evaluated", report.Evaluated,
		"warned", report.Warned,
		"removed", report.Removed,
		"errors", report.Errors)
}

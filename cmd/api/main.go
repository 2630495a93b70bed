package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/atc-endorsement-api/api/swagger"
	"github.com/noah-isme/atc-endorsement-api/internal/client"
	"github.com/noah-isme/atc-endorsement-api/internal/handler"
	"github.com/noah-isme/atc-endorsement-api/internal/middleware"
	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/repository"
	"github.com/noah-isme/atc-endorsement-api/internal/scheduler"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
	"github.com/noah-isme/atc-endorsement-api/pkg/cache"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	"github.com/noah-isme/atc-endorsement-api/pkg/database"
	"github.com/noah-isme/atc-endorsement-api/pkg/lease"
	"github.com/noah-isme/atc-endorsement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/atc-endorsement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/atc-endorsement-api/pkg/middleware/requestid"
	"github.com/noah-isme/atc-endorsement-api/pkg/storage"
)

// @title ATC Endorsement API
// @version 0.1.0
// @description Endorsement lifecycle, activity sync and waiting-list management
// @BasePath /api/v1
// @schemes http

func main() {
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

	var redisClient *redis.Client
	redisClient, err = cache.NewRedis(cfg.Redis)
	if err != nil {
		if cfg.Scheduler.Enabled {
			logr.Sugar().Fatalw("failed to connect to redis, scheduler requires the task lease", "error", err)
		}
		logr.Sugar().Warnw("redis unavailable, running without roster cache", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	endorsementRepo := repository.NewEndorsementRepository(db)
	waitingListRepo := repository.NewWaitingListRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)
	endorsementSvc := service.NewEndorsementService(endorsementRepo, cacheRepo, cfg.Roster.CacheTTL, auditSvc, nil, logr)
	waitingListSvc := service.NewWaitingListService(waitingListRepo, auditSvc, nil, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		locker := service.LeaseLocker{Locker: lease.NewLocker(redisClient, logr)}
		activitySource := client.NewActivityClient(cfg.Activity, logr)

		notifier := client.NewWebhookNotifier(cfg.Notifier, logr)
		queued, queue := client.NewNotificationQueue(notifier, cfg.Notifier, logr, metricsSvc.RecordNotificationFailure)
		queue.Start(ctx)
		defer queue.Stop()

		syncSvc := service.NewActivitySyncService(endorsementRepo, activitySource, auditSvc, locker, cfg.Policy, cfg.Sync, cfg.Activity.Timeout, logr)
		removalSvc := service.NewRemovalService(endorsementRepo, auditSvc, queued, locker, cfg.Policy, cfg.Scheduler.RemovalLeaseTTL, logr)

		sched = scheduler.New(syncSvc, removalSvc, metricsSvc, cfg.Scheduler, logr)
		sched.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	endorsementHandler := handler.NewEndorsementHandler(endorsementSvc)
	waitingListHandler := handler.NewWaitingListHandler(waitingListSvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	endorsements := api.Group("/endorsements")
	{
		endorsements.GET("", endorsementHandler.List)
		endorsements.GET("/:id", endorsementHandler.Get)
		endorsements.POST("", middleware.RequireRoles(models.RoleAdmin), endorsementHandler.Grant)
	}

	staff := middleware.RequireRoles(models.RoleMentor, models.RoleAdmin)
	waitingList := api.Group("/waiting-list")
	{
		waitingList.GET("", waitingListHandler.List)
		waitingList.POST("", waitingListHandler.Join)
		waitingList.DELETE("/:id", waitingListHandler.Leave)
		waitingList.POST("/:id/claim", staff, waitingListHandler.Claim)
		waitingList.POST("/:id/release", staff, waitingListHandler.Release)
		waitingList.POST("/:id/start-training", staff, waitingListHandler.StartTraining)
		waitingList.PATCH("/:id/remarks", staff, waitingListHandler.UpdateRemarks)
	}

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(auditRepo, store, signer, logr)
	}

	auditHandler := handler.NewAuditHandler(auditSvc, exportSvc)
	admin := middleware.RequireRoles(models.RoleAdmin)
	auditLogs := api.Group("/audit-logs", admin)
	{
		auditLogs.GET("", auditHandler.List)
		auditLogs.GET("/subject/:kind/:id", auditHandler.ListBySubject)
		if cfg.Exports.Enabled {
			auditLogs.POST("/export", auditHandler.Export)
			auditLogs.GET("/export/:token", auditHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "scheduler", cfg.Scheduler.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
}

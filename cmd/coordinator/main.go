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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/caseflow-api/api/swagger"
	"github.com/noah-isme/caseflow-api/internal/handler"
	"github.com/noah-isme/caseflow-api/internal/middleware"
	"github.com/noah-isme/caseflow-api/internal/models"
	"github.com/noah-isme/caseflow-api/internal/repository"
	"github.com/noah-isme/caseflow-api/internal/service"
	"github.com/noah-isme/caseflow-api/internal/ws"
	"github.com/noah-isme/caseflow-api/pkg/cache"
	"github.com/noah-isme/caseflow-api/pkg/config"
	"github.com/noah-isme/caseflow-api/pkg/database"
	"github.com/noah-isme/caseflow-api/pkg/dispatch"
	"github.com/noah-isme/caseflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/caseflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/caseflow-api/pkg/middleware/requestid"
)

// @title Caseflow API
// @version 1.0.0
// @description Coordinator for multi-stage document processing
// @BasePath /v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	caseRepo := repository.NewCaseRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewJobRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	workerRepo := repository.NewWorkerRepository(db)

	// Metrics and event fan-out.
	metrics := service.NewMetricsService()

	notifyOpts := make([]service.NotificationServiceOption, 0, 3)

	var hub *ws.Hub
	if cfg.Notifications.StreamEnabled {
		hub = ws.NewHub(logr)
		notifyOpts = append(notifyOpts, service.WithBroadcaster(hub))
	}

	if cfg.Notifications.RedisEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		notifyOpts = append(notifyOpts, service.WithPublisher(cache.NewPublisher(redisClient)))
	}

	var webhookQueue *dispatch.Queue
	if len(cfg.Notifications.WebhookEndpoints) > 0 {
		webhookQueue = dispatch.NewQueue("webhooks",
			service.NewWebhookDeliverer(cfg.Notifications.WebhookTimeout, logr),
			dispatch.QueueConfig{
				Workers:    cfg.Notifications.WebhookWorkers,
				MaxRetries: cfg.Notifications.WebhookRetries,
				RetryDelay: cfg.Notifications.WebhookRetryDelay,
				Logger:     logr,
			})
		webhookQueue.Start(ctx)
		defer webhookQueue.Stop()
		notifyOpts = append(notifyOpts, service.WithWebhookQueue(webhookQueue))
	}

	notifier := service.NewNotificationService(notificationRepo, metrics, logr, cfg.Notifications, notifyOpts...)

	// Services.
	validate := validator.New()
	caseService := service.NewCaseService(caseRepo, documentRepo, notifier, logr)
	documentService := service.NewDocumentService(documentRepo, caseRepo, logr)
	jobService := service.NewJobService(jobRepo, caseRepo, notifier, validate, logr)
	leaseService := service.NewLeaseService(caseRepo, notifier, metrics, logr, cfg.Lease)
	extractionService := service.NewExtractionService(caseRepo, notifier, metrics, validate, logr)
	idempotencyService := service.NewIdempotencyService(idempotencyRepo, metrics, logr, cfg.Idempotency)
	authService := service.NewAuthService(workerRepo, logr, cfg.JWT)
	statsService := service.NewStatsService(db, caseRepo, jobRepo, documentRepo, logr)

	if cfg.Lease.SweeperEnabled {
		go leaseService.RunSweeper(ctx)
	}
	// Ledger hygiene is independent of the lease sweeper.
	go runIdempotencyGC(ctx, idempotencyService, cfg.Idempotency.RetentionWindow)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService, logr)
	caseHandler := handler.NewCaseHandler(caseService, documentService, idempotencyService, logr)
	leaseHandler := handler.NewLeaseHandler(leaseService, idempotencyService, logr)
	jobHandler := handler.NewJobHandler(jobService, idempotencyService, logr)
	extractionHandler := handler.NewExtractionHandler(extractionService, idempotencyService, logr)
	documentHandler := handler.NewDocumentHandler(documentService, idempotencyService, logr)
	notificationHandler := handler.NewNotificationHandler(notifier, hub, logr)
	statsHandler := handler.NewStatsHandler(statsService, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix)
	v1.GET("/health", statsHandler.Health)
	v1.POST("/auth/token", authHandler.Token)
	v1.POST("/webhooks/test", notificationHandler.ReceiveTestWebhook)

	authed := v1.Group("", middleware.JWT(authService))
	{
		authed.GET("/stats", statsHandler.Stats)

		cases := authed.Group("/cases")
		{
			cases.POST("", caseHandler.Create)
			cases.GET("", caseHandler.List)
			cases.GET("/ready", leaseHandler.ListReady)
			cases.POST("/claims", leaseHandler.Claim)
			cases.GET("/:id", caseHandler.Get)
			cases.PATCH("/:id", caseHandler.Update)
			cases.DELETE("/:id", caseHandler.Cancel)
			cases.POST("/:id/documents", caseHandler.AttachDocument)
			cases.GET("/:id/documents", caseHandler.ListDocuments)
			cases.PATCH("/:id/lease/extend", leaseHandler.Extend)
			cases.PATCH("/:id/lease/release", leaseHandler.Release)
			cases.PATCH("/:id/extraction-status", leaseHandler.ReportExtraction)

			if cfg.Exports.Enabled {
				cases.GET("/export", middleware.RequireRole(models.RoleOperator), caseHandler.Export)
			}
		}

		operator := authed.Group("", middleware.RequireRole(models.RoleOperator))
		{
			operator.POST("/auth/workers", authHandler.RegisterWorker)
			operator.PATCH("/cases/extraction-status/bulk", extractionHandler.BulkUpdate)
			operator.PATCH("/cases/:id/reopen", caseHandler.Reopen)
		}

		jobs := authed.Group("/jobs")
		{
			jobs.POST("", jobHandler.Create)
			jobs.GET("", jobHandler.List)
			jobs.GET("/:id", jobHandler.Get)
			jobs.DELETE("/:id", jobHandler.Cancel)
			jobs.PATCH("/:id/progress", jobHandler.Progress)
			jobs.POST("/:id/complete", jobHandler.Complete)
			jobs.POST("/:id/fail", jobHandler.Fail)
		}

		documents := authed.Group("/documents")
		{
			documents.GET("/:id", documentHandler.Get)
			documents.PATCH("/:id/result", documentHandler.RecordResult)
		}

		authed.GET("/notifications", notificationHandler.List)
		if cfg.Notifications.StreamEnabled {
			authed.GET("/notifications/stream", notificationHandler.Stream)
		}
		authed.GET("/webhooks/history", notificationHandler.WebhookHistory)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// runIdempotencyGC deletes expired ledger rows on a fraction of the retention
// window so replays never outlive their recorded responses by much.
func runIdempotencyGC(ctx context.Context, idem *service.IdempotencyService, retention time.Duration) {
	interval := retention / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = idem.SweepExpired(ctx)
		}
	}
}

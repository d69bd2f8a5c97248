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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/path-planner/api/swagger"
	"github.com/noah-isme/path-planner/internal/handler"
	"github.com/noah-isme/path-planner/internal/middleware"
	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/planner"
	"github.com/noah-isme/path-planner/internal/repository"
	"github.com/noah-isme/path-planner/internal/service"
	"github.com/noah-isme/path-planner/pkg/cache"
	"github.com/noah-isme/path-planner/pkg/config"
	"github.com/noah-isme/path-planner/pkg/database"
	"github.com/noah-isme/path-planner/pkg/jobs"
	"github.com/noah-isme/path-planner/pkg/logger"
	corsmiddleware "github.com/noah-isme/path-planner/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/path-planner/pkg/middleware/requestid"
	"github.com/noah-isme/path-planner/pkg/storage"
)

// @title Path Planner API
// @version 1.0.0
// @description Academic path prediction and interactive plan editing.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres unavailable", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: without it every catalog lookup goes to Postgres.
	var redisClient redis.UniversalClient
	if cfg.Planner.CatalogCacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 3*time.Second)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			redisClient = client
			defer client.Close() //nolint:errcheck
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	catalogRepo := repository.NewCatalogRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	savedPlanRepo := repository.NewSavedPlanRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Planner.CatalogCacheTTL, logr, redisClient != nil)
	catalogSvc := service.NewCatalogService(catalogRepo, cacheSvc, logr, service.CatalogServiceConfig{
		HoursPerCredit: cfg.Planner.HoursPerCredit,
		CacheTTL:       cfg.Planner.CatalogCacheTTL,
	})

	orchestrator := planner.NewOrchestrator(logr.Named("planner"), planner.SchedulerConfig{MaxTerms: cfg.Planner.MaxTerms})
	planSvc := service.NewPlanService(catalogSvc, progressRepo, savedPlanRepo, orchestrator, metrics, validate, logr, service.PlanServiceConfig{
		RequiredElectiveHours: cfg.Planner.ElectiveHoursRequired,
		Caps: planner.WorkloadCaps{
			ElectiveHoursCap:   cfg.Planner.ElectiveHoursRequired,
			MandatoryHoursCap:  cfg.Planner.MandatoryHoursCap,
			MaxSubjectsPerTerm: cfg.Planner.MaxSubjectsPerTerm,
		},
		Calendar: planner.Calendar{
			BaseYear:     cfg.Planner.BaseYear,
			BaseTerm:     cfg.Planner.BaseTerm,
			TermsPerYear: cfg.Planner.TermsPerYear,
		},
		SessionTTL: cfg.Planner.SessionTTL,
	})
	planSvc.StartJanitor(ctx)

	exportHandler, exportQueue := buildExports(ctx, cfg, db, planSvc, metrics, validate, logr)
	if exportQueue != nil {
		defer exportQueue.Stop()
	}

	planHandler := handler.NewPlanHandler(planSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	}))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// The signed token authorises the download on its own.
	api.GET("/export/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	{
		sessions := secured.Group("/plans/sessions")
		sessions.POST("", planHandler.Open)
		sessions.GET("/:id", planHandler.Get)
		sessions.DELETE("/:id", planHandler.Close)
		sessions.GET("/:id/terms/:index/suggestions", planHandler.Suggestions)
		sessions.POST("/:id/terms/:index/fix", planHandler.FixThrough)
		sessions.POST("/:id/terms/:index/subjects", planHandler.AddSubject)
		sessions.DELETE("/:id/terms/:index/subjects/:subjectId", planHandler.RemoveSubject)
		sessions.POST("/:id/blacklist", planHandler.AddToBlacklist)
		sessions.DELETE("/:id/blacklist/:subjectId", planHandler.RemoveFromBlacklist)
		sessions.POST("/:id/undo", planHandler.Undo)
		sessions.POST("/:id/redo", planHandler.Redo)
		sessions.POST("/:id/save", planHandler.Save)
		sessions.POST("/:id/exports", exportHandler.Create)

		secured.GET("/plans/saved", planHandler.ListSaved)
		secured.GET("/plans/exports/:jobId", exportHandler.Status)

		admin := secured.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		admin.POST("/catalog/:courseCode/invalidate", catalogHandler.Invalidate)
		admin.GET("/metrics/summary", metricsHandler.Snapshot)
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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}

// buildExports wires the export pipeline. With exports disabled the handler
// answers 412 and no queue is started.
func buildExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, plans *service.PlanService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*handler.ExportHandler, *jobs.Queue) {
	if !cfg.Exports.Enabled {
		return handler.NewExportHandler(nil), nil
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage unavailable", "dir", cfg.Exports.StorageDir, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	exportRepo := repository.NewExportJobRepository(db)
	worker := service.NewPlanExportWorker(exportRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)

	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("plan-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
		DeadLetter: func(job jobs.Job, cause error) { exportJobs.DeadLetter(job, cause) },
	})
	exportJobs = service.NewExportJobService(exportRepo, plans, queue, exporter, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)

	return handler.NewExportHandler(exportJobs), queue
}

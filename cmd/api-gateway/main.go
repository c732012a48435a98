package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/lifemakers/pirates-api/api/swagger"
	"github.com/lifemakers/pirates-api/internal/handler"
	"github.com/lifemakers/pirates-api/internal/repository"
	"github.com/lifemakers/pirates-api/internal/service"
	"github.com/lifemakers/pirates-api/internal/workflow"
	"github.com/lifemakers/pirates-api/pkg/cache"
	"github.com/lifemakers/pirates-api/pkg/config"
	"github.com/lifemakers/pirates-api/pkg/database"
	"github.com/lifemakers/pirates-api/pkg/export"
	"github.com/lifemakers/pirates-api/pkg/jobs"
	"github.com/lifemakers/pirates-api/pkg/lock"
	"github.com/lifemakers/pirates-api/pkg/logger"
)

// @title Life Makers Pirates API
// @version 1.0.0
// @description Training request approval workflow
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	requestRepo := repository.NewTrainingRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	userRepo := repository.NewUserRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	var cacheRepo service.CacheRepository
	if rdb != nil {
		cacheRepo = repository.NewCacheRepository(rdb, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr,
		service.WithCacheNamespace(cfg.Redis.KeyPrefix),
		service.WithDefaultTTL(cfg.Dashboard.CacheTTL),
	)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, logr,
		service.WithAudienceCache(cacheSvc, cfg.Notifications.AudienceCacheTTL),
		service.WithNotificationMetrics(metricsSvc),
	)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnDrop:     notificationSvc.OnDrop,
	})
	notificationSvc.AttachQueue(notificationQueue)
	notificationQueue.Start(ctx)

	locker, err := newLocker(cfg.Workflow, rdb, logr)
	if err != nil {
		logr.Fatal("failed to configure workflow lock", zap.Error(err))
	}

	authority := workflow.NewAuthority(workflow.NewStatusGraph())
	workflowSvc := service.NewWorkflowService(requestRepo, userRepo, authority, validate, logr,
		service.WithWorkflowSink(notificationSvc),
		service.WithWorkflowLocker(locker, cfg.Workflow.LockWait),
		service.WithWorkflowMaxConflictRetries(cfg.Workflow.MaxConflictRetries),
		service.WithWorkflowUsers(userRepo),
		service.WithWorkflowCache(cacheSvc),
		service.WithWorkflowMetrics(metricsSvc),
	)
	requestSvc := service.NewTrainingRequestService(requestRepo, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Requests: requestRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr, service.AnalyticsConfig{
		CacheTTL:  cfg.Analytics.CacheTTL,
		GraceDays: cfg.Analytics.GraceDays,
	})
	ratingSvc := service.NewRatingService(ratingRepo, requestRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(requestRepo, export.NewRegistry(), service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	checks := map[string]handler.Pinger{"postgres": db}
	if rdb != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	r := newRouter(cfg, logr, routeDeps{
		auth:          handler.NewAuthHandler(authSvc),
		requests:      handler.NewTrainingRequestHandler(workflowSvc, requestSvc),
		exports:       handler.NewExportHandler(exportSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		analytics:     handler.NewAnalyticsHandler(analyticsSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		ratings:       handler.NewRatingHandler(ratingSvc),
		metrics:       handler.NewMetricsHandler(metricsSvc, checks),
		metricsSvc:    metricsSvc,
		tokens:        authSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("lock_backend", cfg.Workflow.LockBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	notificationQueue.Stop()
}

func newLocker(cfg config.WorkflowConfig, rdb *redis.Client, logr *zap.Logger) (lock.Locker, error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewLocalLocker(), nil
	}
	if rdb == nil {
		return nil, errors.New("redis lock backend requires ENABLE_REDIS=true")
	}
	return lock.NewRedisLocker(rdb, cfg.LockTTL, lock.WithLogger(logr)), nil
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/handler"
	"github.com/lifemakers/pirates-api/internal/middleware"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/service"
	"github.com/lifemakers/pirates-api/pkg/config"
	"github.com/lifemakers/pirates-api/pkg/logger"
	corsmiddleware "github.com/lifemakers/pirates-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lifemakers/pirates-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth          *handler.AuthHandler
	requests      *handler.TrainingRequestHandler
	exports       *handler.ExportHandler
	dashboard     *handler.DashboardHandler
	analytics     *handler.AnalyticsHandler
	notifications *handler.NotificationHandler
	ratings       *handler.RatingHandler
	metrics       *handler.MetricsHandler
	metricsSvc    *service.MetricsService
	tokens        middleware.TokenValidator
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", deps.auth.Login)
	auth.POST("/refresh", deps.auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))

	secured.POST("/auth/logout", deps.auth.Logout)
	secured.POST("/auth/change-password", deps.auth.ChangePassword)
	secured.GET("/auth/me", deps.auth.Me)

	requests := secured.Group("/training-requests")
	requests.POST("", deps.requests.Submit)
	requests.GET("", deps.requests.ListMine)
	requests.GET("/all", middleware.RequireApprover(), deps.requests.ListAll)
	requests.GET("/assigned", middleware.RequireRoles(models.RoleTrainer), deps.requests.ListAssigned)
	requests.GET("/upcoming", deps.requests.Upcoming)
	requests.GET("/calendar", deps.requests.Calendar)
	requests.GET("/export", middleware.FeatureGate(cfg.Exports.Enabled, "exports"), middleware.RequireApprover(), deps.exports.TrainingRequests)
	requests.GET("/:id", deps.requests.Get)
	requests.POST("/:id/advance", deps.requests.Advance)
	requests.POST("/:id/reject", deps.requests.Reject)
	requests.POST("/:id/assign-trainer", deps.requests.AssignTrainer)
	requests.POST("/:id/ratings", middleware.FeatureGate(cfg.Ratings.Enabled, "ratings"), deps.ratings.Create)

	ratingsGate := middleware.FeatureGate(cfg.Ratings.Enabled, "ratings")
	secured.GET("/trainers/:id/ratings", ratingsGate, deps.ratings.ListForTrainer)
	secured.GET("/trainers/:id/ratings/summary", ratingsGate, deps.ratings.Summary)
	secured.POST("/ratings/:id/approve", ratingsGate, middleware.RequireRoles(models.RoleAdmin), deps.ratings.Approve)

	dashboard := secured.Group("/dashboard")
	dashboard.Use(middleware.FeatureGate(cfg.Dashboard.Enabled, "dashboard"), middleware.WithResponseMeta())
	dashboard.GET("/stats", deps.dashboard.Stats)

	secured.GET("/analytics", middleware.FeatureGate(cfg.Analytics.Enabled, "analytics"), middleware.RequireApprover(),
		middleware.WithResponseMeta(), deps.analytics.Overview)

	notifications := secured.Group("/notifications")
	notifications.GET("", deps.notifications.List)
	notifications.GET("/unread-count", deps.notifications.UnreadCount)
	notifications.POST("/read-all", deps.notifications.MarkAllRead)
	notifications.POST("/:id/read", deps.notifications.MarkRead)

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), deps.metrics.Summary)

	return r
}

package router

import (
	"os"
	"time"

	insightsapi "chat-companion-analytics/backend/insights/api"
	journalapi "chat-companion-analytics/backend/journal/api"
	"chat-companion-analytics/backend/pkg/config"
	"chat-companion-analytics/backend/pkg/di"
	"chat-companion-analytics/backend/pkg/errors"
	"chat-companion-analytics/backend/pkg/logger"
	"chat-companion-analytics/backend/pkg/middleware"
	usageapi "chat-companion-analytics/backend/usage/api"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers every route group.
func (r *Router) SetupRoutes() {
	r.setupHealthRoutes()

	reportLimiter := middleware.NewRateLimiter(r.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(r.Config.Security.RateLimit),
		Burst:          r.Config.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	journalapi.RegisterEventRoutes(r.Engine, r.Container.EventHandler, r.Container.JWTService)
	insightsapi.RegisterSessionRoutes(r.Engine, r.Container.SessionHandler, r.Container.JWTService, reportLimiter)
	usageapi.RegisterUsageRoutes(r.Engine, r.Container.UsageHandler, r.Container.JWTService)
}

func (r *Router) setupHealthRoutes() {
	r.Engine.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		if err := r.Container.DB.Exec("SELECT 1").Error; err != nil {
			dbStatus = err.Error()
			r.Logger.Error("Database health check failed", "error", err)
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"version":   os.Getenv("APP_VERSION"),
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
			"components": gin.H{
				"database": dbStatus,
			},
		})
	})
}

package api

import (
	"chat-companion-analytics/backend/pkg/jwt"
	"chat-companion-analytics/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterSessionRoutes(r *gin.Engine, handler *SessionHandler, jwtService *jwt.Service, rateLimiter *middleware.RateLimiter) {
	sessions := r.Group("/sessions")
	sessions.Use(jwt.AuthMiddleware(jwtService))
	{
		sessions.GET("", handler.ListSessions)
		sessions.GET("/range", handler.ListSessionsByDateRange)
		sessions.GET("/:start_id/messages", handler.SessionMessages)
	}

	reports := r.Group("/reports")
	reports.Use(jwt.AuthMiddleware(jwtService))
	if rateLimiter != nil {
		reports.Use(rateLimiter.Middleware())
	}
	{
		reports.GET("/time-spent", handler.TimeSpentReport)
		reports.GET("/moods", handler.MoodBreakdown)
	}
}

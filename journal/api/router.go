package api

import (
	"chat-companion-analytics/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func RegisterEventRoutes(r *gin.Engine, handler *EventHandler, jwtService *jwt.Service) {
	events := r.Group("/events")
	events.Use(jwt.AuthMiddleware(jwtService))
	{
		events.POST("/messages", handler.CreateMessage)
		events.POST("/session-start", handler.StartSession)
		events.POST("/moods", handler.CreateMood)
		events.POST("/feedback", handler.CreateFeedback)
	}
}

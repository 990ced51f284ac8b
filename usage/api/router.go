package api

import (
	"chat-companion-analytics/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func RegisterUsageRoutes(r *gin.Engine, handler *UsageHandler, jwtService *jwt.Service) {
	usage := r.Group("/usage")
	usage.Use(jwt.AuthMiddleware(jwtService))
	{
		usage.GET("", handler.GetUsage)
	}
}

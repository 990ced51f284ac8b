package api

import (
	"net/http"

	"chat-companion-analytics/backend/pkg/jwt"
	"chat-companion-analytics/backend/usage/service"

	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	aggregator *service.UsageAggregator
}

func NewUsageHandler(aggregator *service.UsageAggregator) *UsageHandler {
	return &UsageHandler{aggregator: aggregator}
}

// GetUsage returns the owner's counters and granted badges.
func (h *UsageHandler) GetUsage(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}

	stats, grants, err := h.aggregator.Stats(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_hours": stats.TotalHours,
		"streak":      stats.Streak,
		"days_used":   stats.DaysUsed,
		"badges":      grants,
	})
}

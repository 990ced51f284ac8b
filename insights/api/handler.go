package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chat-companion-analytics/backend/insights/service"
	"chat-companion-analytics/backend/pkg/cache"
	"chat-companion-analytics/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	reader *service.PaginatedSessionReader
	cache  *cache.Cache
}

func NewSessionHandler(reader *service.PaginatedSessionReader, cache *cache.Cache) *SessionHandler {
	return &SessionHandler{reader: reader, cache: cache}
}

// ListSessions pages over every derived session of the owner.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	page, perPage := pageParams(c)

	result, err := h.reader.ListSessions(c.Request.Context(), ownerID, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSessionsByDateRange pages over sessions started in [start, end).
// Missing or invalid dates default to today rather than failing.
func (h *SessionHandler) ListSessionsByDateRange(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	page, perPage := pageParams(c)
	start, end := dateParams(c)

	result, err := h.reader.ListSessionsByDateRange(c.Request.Context(), ownerID, start, end, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SessionMessages paginates within one session's member events.
func (h *SessionHandler) SessionMessages(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	anchorID, err := strconv.ParseUint(c.Param("start_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session start id"})
		return
	}
	page, perPage := pageParams(c)

	result, err := h.reader.SessionMessages(c.Request.Context(), ownerID, uint(anchorID), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TimeSpentReport pages over per-day chat time in [start, end).
func (h *SessionHandler) TimeSpentReport(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	page, perPage := pageParams(c)
	start, end := dateParams(c)

	result, err := h.reader.TimeSpentReport(c.Request.Context(), ownerID, start, end, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// MoodBreakdown reports mood-marker percentages over the nine canonical
// categories. Results are briefly cached per owner and range.
func (h *SessionHandler) MoodBreakdown(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	start, end := dateParams(c)

	key := fmt.Sprintf("moods:%d:%d:%d", ownerID, start.Unix(), end.Unix())
	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			c.JSON(http.StatusOK, gin.H{"breakdown": cached})
			return
		}
	}

	breakdown, err := h.reader.MoodBreakdown(c.Request.Context(), ownerID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.cache != nil {
		h.cache.Set(key, breakdown)
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": breakdown})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}

// dateParams parses the optional start/end query parameters. Zero times are
// returned for anything unparseable; the reader substitutes today.
func dateParams(c *gin.Context) (time.Time, time.Time) {
	return parseDate(c.Query("start")), parseDate(c.Query("end"))
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}

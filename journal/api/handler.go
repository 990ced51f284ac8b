package api

import (
	"errors"
	"net/http"

	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
	"chat-companion-analytics/backend/journal/service"
	"chat-companion-analytics/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service *service.JournalService
}

func NewEventHandler(service *service.JournalService) *EventHandler {
	return &EventHandler{service: service}
}

type createMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateMessage records the owner's message and, best-effort, the bot's
// reply. The reply is null when the bot collaborator failed.
func (h *EventHandler) CreateMessage(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recorded, err := h.service.RecordUserMessage(c.Request.Context(), ownerID, req.Message)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"message": eventResponse(recorded.User)}
	if recorded.Bot != nil {
		resp["reply"] = eventResponse(recorded.Bot)
	}
	c.JSON(http.StatusCreated, resp)
}

// StartSession appends a session-start marker.
func (h *EventHandler) StartSession(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	event, err := h.service.StartSession(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, eventResponse(event))
}

type createMoodRequest struct {
	MoodID int `json:"mood_id" binding:"required"`
}

// CreateMood appends a mood marker.
func (h *EventHandler) CreateMood(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	var req createMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.RecordMood(c.Request.Context(), ownerID, req.MoodID)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, eventResponse(event))
}

type feedbackRequest struct {
	TargetEventID uint   `json:"target_event_id" binding:"required"`
	FeedbackType  string `json:"feedback_type" binding:"required"`
	FeedbackValue string `json:"feedback_value"`
}

// CreateFeedback attaches feedback to an existing bot message.
func (h *EventHandler) CreateFeedback(c *gin.Context) {
	ownerID, ok := jwt.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "owner not authenticated"})
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.AttachFeedback(c.Request.Context(), ownerID, req.TargetEventID, req.FeedbackType, req.FeedbackValue)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "target message not found"})
		return
	}
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func eventResponse(event *journal.Event) gin.H {
	return gin.H{
		"event_id":    event.ID,
		"external_id": event.ExternalID,
		"kind":        event.Kind(),
		"message":     event.Message(),
		"created_at":  event.CreatedAt,
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, journal.ErrMissingOwner),
		errors.Is(err, journal.ErrMissingPayload),
		errors.Is(err, journal.ErrEmptyMessage),
		errors.Is(err, journal.ErrInvalidMood),
		errors.Is(err, journal.ErrInvalidFeedback):
		return true
	}
	return false
}

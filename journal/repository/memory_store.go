package repository

import (
	"context"
	"sync"
	"time"

	"chat-companion-analytics/backend/journal/models"

	"github.com/google/uuid"
)

// MemoryEventStore is an in-process EventStore with the same ordering
// semantics as the database-backed one. Suitable for tests and early
// iterations.
type MemoryEventStore struct {
	mu     sync.RWMutex
	nextID uint
	events []models.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{nextID: 1}
}

func (s *MemoryEventStore) Append(_ context.Context, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ExternalID == "" {
		event.ExternalID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.ID = s.nextID
	s.nextID++
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryEventStore) AttachFeedback(_ context.Context, ownerID, targetID uint, feedbackType, feedbackValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		e := &s.events[i]
		if e.ID != targetID || e.OwnerID != ownerID {
			continue
		}
		payload, ok := e.Payload.(models.BotMessage)
		if !ok {
			return ErrNotFound
		}
		payload.FeedbackType = feedbackType
		payload.FeedbackValue = feedbackValue
		e.Payload = payload
		return nil
	}
	return ErrNotFound
}

func (s *MemoryEventStore) GetByID(_ context.Context, ownerID, id uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == id && e.OwnerID == ownerID {
			copied := e
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryEventStore) SessionStartsFrom(_ context.Context, ownerID, anchorID uint, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Event
	for _, e := range s.events {
		if e.OwnerID != ownerID || e.Kind() != models.KindSessionStart || e.ID < anchorID {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryEventStore) LatestSessionStart(_ context.Context, ownerID uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.OwnerID == ownerID && e.Kind() == models.KindSessionStart {
			copied := e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryEventStore) SessionStartsInRange(_ context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Event
	for _, e := range s.events {
		if e.OwnerID != ownerID || e.Kind() != models.KindSessionStart {
			continue
		}
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryEventStore) CountSessionStartsInRange(ctx context.Context, ownerID uint, start, end time.Time) (int64, error) {
	events, err := s.SessionStartsInRange(ctx, ownerID, start, end, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}

func (s *MemoryEventStore) MessagesInWindow(_ context.Context, ownerID, fromID, toID uint, offset, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Event
	skipped := 0
	for _, e := range s.events {
		if !s.inWindow(e, ownerID, fromID, toID) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryEventStore) CountMessagesInWindow(_ context.Context, ownerID, fromID, toID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.events {
		if s.inWindow(e, ownerID, fromID, toID) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryEventStore) inWindow(e models.Event, ownerID, fromID, toID uint) bool {
	if e.OwnerID != ownerID || !e.IsMessage() || e.ID < fromID {
		return false
	}
	return toID == 0 || e.ID < toID
}

func (s *MemoryEventStore) LatestMoodBefore(_ context.Context, ownerID, anchorID uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.OwnerID == ownerID && e.Kind() == models.KindMoodMarker && e.ID < anchorID {
			copied := e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryEventStore) MoodMarkersUpTo(_ context.Context, ownerID, maxID uint, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Event
	for _, e := range s.events {
		if e.OwnerID != ownerID || e.Kind() != models.KindMoodMarker || e.ID >= maxID {
			continue
		}
		result = append(result, e)
	}
	// A capped result keeps the newest markers; a stale annotation is worse
	// than an absent one.
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *MemoryEventStore) MoodMarkersInRange(_ context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Event
	for _, e := range s.events {
		if e.OwnerID != ownerID || e.Kind() != models.KindMoodMarker {
			continue
		}
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-companion-analytics/backend/journal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("event not found")

// EventStore is the append-only ordered log of interaction events. IDs are
// assigned on append and strictly increase in creation order, so every range
// below is an id range, never a wall-clock one.
type EventStore interface {
	Append(ctx context.Context, event *models.Event) error
	AttachFeedback(ctx context.Context, ownerID, targetID uint, feedbackType, feedbackValue string) error
	GetByID(ctx context.Context, ownerID, id uint) (*models.Event, error)

	// SessionStartsFrom returns up to limit session-start markers with
	// id >= anchorID, ascending.
	SessionStartsFrom(ctx context.Context, ownerID, anchorID uint, limit int) ([]models.Event, error)
	// LatestSessionStart returns the most recent marker, or nil.
	LatestSessionStart(ctx context.Context, ownerID uint) (*models.Event, error)
	SessionStartsInRange(ctx context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error)
	CountSessionStartsInRange(ctx context.Context, ownerID uint, start, end time.Time) (int64, error)

	// MessagesInWindow returns message-kind events with id in [fromID, toID),
	// ascending; toID == 0 means the window is open-ended.
	MessagesInWindow(ctx context.Context, ownerID, fromID, toID uint, offset, limit int) ([]models.Event, error)
	CountMessagesInWindow(ctx context.Context, ownerID, fromID, toID uint) (int64, error)

	// LatestMoodBefore returns the nearest mood marker with id < anchorID,
	// or nil when none exists.
	LatestMoodBefore(ctx context.Context, ownerID, anchorID uint) (*models.Event, error)
	// MoodMarkersUpTo returns mood markers with id < maxID, ascending. When
	// more than limit exist the oldest are dropped, never the newest.
	MoodMarkersUpTo(ctx context.Context, ownerID, maxID uint, limit int) ([]models.Event, error)
	MoodMarkersInRange(ctx context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error)
}

// eventRecord is the flat row the store persists. The tagged union is
// flattened here and only here; toModel refuses rows that would decode into
// an illegal state.
type eventRecord struct {
	ID                uint      `gorm:"primaryKey"`
	ExternalID        string    `gorm:"index"`
	OwnerID           uint      `gorm:"index:idx_events_owner_kind"`
	Kind              string    `gorm:"index:idx_events_owner_kind"`
	Message           *string
	MoodID            *int
	TargetID          *uint
	FeedbackType      *string
	FeedbackValue     *string
	SentimentPositive *bool
	CreatedAt         time.Time `gorm:"index"`
}

func (eventRecord) TableName() string { return "events" }

func toRecord(e *models.Event) eventRecord {
	rec := eventRecord{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		OwnerID:    e.OwnerID,
		Kind:       string(e.Kind()),
		CreatedAt:  e.CreatedAt,
	}
	switch p := e.Payload.(type) {
	case models.UserMessage:
		msg := p.Message
		rec.Message = &msg
		rec.SentimentPositive = p.SentimentPositive
	case models.BotMessage:
		msg := p.Message
		rec.Message = &msg
		if p.FeedbackType != "" {
			ft, fv := p.FeedbackType, p.FeedbackValue
			rec.FeedbackType = &ft
			rec.FeedbackValue = &fv
		}
	case models.MoodMarker:
		mood := p.MoodID
		rec.MoodID = &mood
	case models.Feedback:
		target := p.TargetID
		ft, fv := p.FeedbackType, p.FeedbackValue
		rec.TargetID = &target
		rec.FeedbackType = &ft
		rec.FeedbackValue = &fv
	}
	return rec
}

func toModel(rec eventRecord) (models.Event, error) {
	e := models.Event{
		ID:         rec.ID,
		ExternalID: rec.ExternalID,
		OwnerID:    rec.OwnerID,
		CreatedAt:  rec.CreatedAt,
	}
	switch models.Kind(rec.Kind) {
	case models.KindUserMessage:
		e.Payload = models.UserMessage{Message: deref(rec.Message), SentimentPositive: rec.SentimentPositive}
	case models.KindBotMessage:
		e.Payload = models.BotMessage{
			Message:       deref(rec.Message),
			FeedbackType:  deref(rec.FeedbackType),
			FeedbackValue: deref(rec.FeedbackValue),
		}
	case models.KindSessionStart:
		e.Payload = models.SessionStart{}
	case models.KindMoodMarker:
		if rec.MoodID == nil {
			return e, fmt.Errorf("event %d: mood marker without mood id", rec.ID)
		}
		e.Payload = models.MoodMarker{MoodID: *rec.MoodID}
	case models.KindFeedback:
		var target uint
		if rec.TargetID != nil {
			target = *rec.TargetID
		}
		e.Payload = models.Feedback{
			TargetID:      target,
			FeedbackType:  deref(rec.FeedbackType),
			FeedbackValue: deref(rec.FeedbackValue),
		}
	default:
		return e, fmt.Errorf("event %d: unknown kind %q", rec.ID, rec.Kind)
	}
	return e, e.Validate()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Migrate creates the events table and its indexes.
func (s *GormEventStore) Migrate() error {
	return s.db.AutoMigrate(&eventRecord{})
}

func (s *GormEventStore) Append(ctx context.Context, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ExternalID == "" {
		event.ExternalID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	rec := toRecord(event)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	event.ID = rec.ID
	return nil
}

func (s *GormEventStore) AttachFeedback(ctx context.Context, ownerID, targetID uint, feedbackType, feedbackValue string) error {
	res := s.db.WithContext(ctx).Model(&eventRecord{}).
		Where("owner_id = ? AND id = ? AND kind = ?", ownerID, targetID, string(models.KindBotMessage)).
		Updates(map[string]any{"feedback_type": feedbackType, "feedback_value": feedbackValue})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormEventStore) GetByID(ctx context.Context, ownerID, id uint) (*models.Event, error) {
	var rec eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	event, err := toModel(rec)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) SessionStartsFrom(ctx context.Context, ownerID, anchorID uint, limit int) ([]models.Event, error) {
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND id >= ?", ownerID, string(models.KindSessionStart), anchorID).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toModels(recs)
}

func (s *GormEventStore) LatestSessionStart(ctx context.Context, ownerID uint) (*models.Event, error) {
	var rec eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, string(models.KindSessionStart)).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	event, err := toModel(rec)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) SessionStartsInRange(ctx context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error) {
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND created_at >= ? AND created_at < ?",
			ownerID, string(models.KindSessionStart), start, end).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toModels(recs)
}

func (s *GormEventStore) CountSessionStartsInRange(ctx context.Context, ownerID uint, start, end time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&eventRecord{}).
		Where("owner_id = ? AND kind = ? AND created_at >= ? AND created_at < ?",
			ownerID, string(models.KindSessionStart), start, end).
		Count(&count).Error
	return count, err
}

func (s *GormEventStore) MessagesInWindow(ctx context.Context, ownerID, fromID, toID uint, offset, limit int) ([]models.Event, error) {
	q := s.messageWindow(ctx, ownerID, fromID, toID).Order("id ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []eventRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return toModels(recs)
}

func (s *GormEventStore) CountMessagesInWindow(ctx context.Context, ownerID, fromID, toID uint) (int64, error) {
	var count int64
	err := s.messageWindow(ctx, ownerID, fromID, toID).Count(&count).Error
	return count, err
}

func (s *GormEventStore) messageWindow(ctx context.Context, ownerID, fromID, toID uint) *gorm.DB {
	kinds := []string{string(models.KindUserMessage), string(models.KindBotMessage)}
	q := s.db.WithContext(ctx).Model(&eventRecord{}).
		Where("owner_id = ? AND kind IN ? AND id >= ?", ownerID, kinds, fromID)
	if toID > 0 {
		q = q.Where("id < ?", toID)
	}
	return q
}

func (s *GormEventStore) LatestMoodBefore(ctx context.Context, ownerID, anchorID uint) (*models.Event, error) {
	var rec eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND id < ?", ownerID, string(models.KindMoodMarker), anchorID).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	event, err := toModel(rec)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) MoodMarkersUpTo(ctx context.Context, ownerID, maxID uint, limit int) ([]models.Event, error) {
	// Scan backwards so a capped result keeps the newest markers, then
	// restore ascending order for the merge.
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND id < ?", ownerID, string(models.KindMoodMarker), maxID).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return toModels(recs)
}

func (s *GormEventStore) MoodMarkersInRange(ctx context.Context, ownerID uint, start, end time.Time, limit int) ([]models.Event, error) {
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND created_at >= ? AND created_at < ?",
			ownerID, string(models.KindMoodMarker), start, end).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toModels(recs)
}

func toModels(recs []eventRecord) ([]models.Event, error) {
	events := make([]models.Event, 0, len(recs))
	for _, rec := range recs {
		event, err := toModel(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

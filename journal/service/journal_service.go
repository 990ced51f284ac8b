package service

import (
	"context"
	"time"

	"chat-companion-analytics/backend/ai"
	insights "chat-companion-analytics/backend/insights/service"
	"chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
	"chat-companion-analytics/backend/pkg/logger"
)

// BotAnswerer produces a reply for a user message given the recent history
// window.
type BotAnswerer interface {
	Answer(ctx context.Context, query string, history []ai.Turn) (string, error)
}

// SentimentClassifier scores a message's sentiment. Best-effort collaborator.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (*ai.SentimentResult, error)
}

// UsageRecorder is the single entry point for counter updates triggered by
// journal writes.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, ownerID uint, sessionHours float64, now time.Time) error
	RecordActivity(ctx context.Context, ownerID uint, now time.Time) error
}

// JournalService owns every append to the event log. Persisting the owner's
// input is the strong guarantee; bot answers, sentiment scores and counter
// updates are best-effort and never roll back a write.
type JournalService struct {
	store        repository.EventStore
	locator      *insights.BoundaryLocator
	assembler    *insights.SessionAssembler
	bot          BotAnswerer
	sentiment    SentimentClassifier
	usage        UsageRecorder
	historyTurns int
	log          *logger.Logger
}

func NewJournalService(
	store repository.EventStore,
	locator *insights.BoundaryLocator,
	assembler *insights.SessionAssembler,
	bot BotAnswerer,
	sentiment SentimentClassifier,
	usage UsageRecorder,
	historyTurns int,
	log *logger.Logger,
) *JournalService {
	if historyTurns <= 0 {
		historyTurns = 20
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &JournalService{
		store:        store,
		locator:      locator,
		assembler:    assembler,
		bot:          bot,
		sentiment:    sentiment,
		usage:        usage,
		historyTurns: historyTurns,
		log:          log,
	}
}

// StartSession appends a session-start marker. The marker closes the
// previous session, so its duration is derived first and accrued to the
// owner's usage counters; that bookkeeping is best-effort.
func (s *JournalService) StartSession(ctx context.Context, ownerID uint) (*models.Event, error) {
	closedHours := s.closingSessionHours(ctx, ownerID)

	event := &models.Event{OwnerID: ownerID, Payload: models.SessionStart{}}
	if err := s.store.Append(ctx, event); err != nil {
		return nil, err
	}

	if s.usage != nil {
		if err := s.usage.RecordUsage(ctx, ownerID, closedHours, event.CreatedAt); err != nil {
			s.log.LogError(err, "usage update failed", "owner_id", ownerID)
		}
	}
	return event, nil
}

// RecordMood appends a mood marker.
func (s *JournalService) RecordMood(ctx context.Context, ownerID uint, moodID int) (*models.Event, error) {
	event := &models.Event{OwnerID: ownerID, Payload: models.MoodMarker{MoodID: moodID}}
	if err := s.store.Append(ctx, event); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, ownerID, event.CreatedAt)
	return event, nil
}

// RecordedMessage is the outcome of recording a user message. Bot is nil
// when the bot collaborator failed or is not configured.
type RecordedMessage struct {
	User *models.Event
	Bot  *models.Event
}

// RecordUserMessage durably records the owner's message, then enriches it
// best-effort: a sentiment score resolved before the append, and a bot reply
// appended afterwards. Enrichment failures are logged and swallowed.
func (s *JournalService) RecordUserMessage(ctx context.Context, ownerID uint, text string) (*RecordedMessage, error) {
	payload := models.UserMessage{Message: text}
	if s.sentiment != nil {
		if verdict, err := s.sentiment.Classify(ctx, text); err != nil {
			s.log.LogError(err, "sentiment classification failed", "owner_id", ownerID)
		} else if verdict != nil {
			positive := verdict.IsPositive
			payload.SentimentPositive = &positive
		}
	}

	userEvent := &models.Event{OwnerID: ownerID, Payload: payload}
	if err := s.store.Append(ctx, userEvent); err != nil {
		return nil, err
	}

	recorded := &RecordedMessage{User: userEvent}
	if s.bot != nil {
		if botEvent := s.answerMessage(ctx, ownerID, text, userEvent.ID); botEvent != nil {
			recorded.Bot = botEvent
		}
	}
	s.recordActivity(ctx, ownerID, userEvent.CreatedAt)
	return recorded, nil
}

// AttachFeedback appends a feedback event and applies it to the target bot
// message. The mutation is the only update the log permits.
func (s *JournalService) AttachFeedback(ctx context.Context, ownerID, targetID uint, feedbackType, feedbackValue string) error {
	event := &models.Event{
		OwnerID: ownerID,
		Payload: models.Feedback{TargetID: targetID, FeedbackType: feedbackType, FeedbackValue: feedbackValue},
	}
	if err := s.store.Append(ctx, event); err != nil {
		return err
	}
	return s.store.AttachFeedback(ctx, ownerID, targetID, feedbackType, feedbackValue)
}

// answerMessage reconstructs the recent history window, asks the bot for a
// reply and appends it. Any failure leaves the user's message untouched.
func (s *JournalService) answerMessage(ctx context.Context, ownerID uint, text string, beforeID uint) *models.Event {
	history, err := s.historyWindow(ctx, ownerID, beforeID)
	if err != nil {
		s.log.LogError(err, "history reconstruction failed", "owner_id", ownerID)
		history = nil
	}

	answer, err := s.bot.Answer(ctx, text, history)
	if err != nil {
		s.log.LogError(err, "bot answer failed", "owner_id", ownerID)
		return nil
	}

	botEvent := &models.Event{OwnerID: ownerID, Payload: models.BotMessage{Message: answer}}
	if err := s.store.Append(ctx, botEvent); err != nil {
		s.log.LogError(err, "bot reply append failed", "owner_id", ownerID)
		return nil
	}
	return botEvent
}

// historyWindow pairs the current session's messages into the last
// historyTurns user/bot turns, excluding the just-appended message.
func (s *JournalService) historyWindow(ctx context.Context, ownerID, beforeID uint) ([]ai.Turn, error) {
	w, err := s.locator.LocateCurrent(ctx, ownerID)
	if err != nil || w.Empty() {
		return nil, err
	}
	members, _, err := s.assembler.Members(ctx, w, 0, 0)
	if err != nil {
		return nil, err
	}

	turns := make([]ai.Turn, 0, s.historyTurns)
	var current *ai.Turn
	for _, member := range members {
		if member.ID >= beforeID {
			break
		}
		switch member.Kind() {
		case models.KindUserMessage:
			if current != nil {
				turns = append(turns, *current)
			}
			current = &ai.Turn{User: member.Message()}
		case models.KindBotMessage:
			if current == nil {
				current = &ai.Turn{}
			}
			current.Bot = member.Message()
			turns = append(turns, *current)
			current = nil
		}
	}
	if current != nil {
		turns = append(turns, *current)
	}

	if len(turns) > s.historyTurns {
		turns = turns[len(turns)-s.historyTurns:]
	}
	return turns, nil
}

// closingSessionHours derives the duration of the session a new marker is
// about to close. Zero when the owner has no open session or the derivation
// fails.
func (s *JournalService) closingSessionHours(ctx context.Context, ownerID uint) float64 {
	w, err := s.locator.LocateCurrent(ctx, ownerID)
	if err != nil {
		s.log.LogError(err, "closing session lookup failed", "owner_id", ownerID)
		return 0
	}
	if w.Empty() {
		return 0
	}
	session, err := s.assembler.Assemble(ctx, w)
	if err != nil {
		s.log.LogError(err, "closing session assembly failed", "owner_id", ownerID)
		return 0
	}
	return insights.SessionHours(session.Members)
}

func (s *JournalService) recordActivity(ctx context.Context, ownerID uint, at time.Time) {
	if s.usage == nil {
		return
	}
	if err := s.usage.RecordActivity(ctx, ownerID, at); err != nil {
		s.log.LogError(err, "activity update failed", "owner_id", ownerID)
	}
}

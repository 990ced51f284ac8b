package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chat-companion-analytics/backend/ai"
	insights "chat-companion-analytics/backend/insights/service"
	"chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
	"chat-companion-analytics/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeBot struct {
	answer  string
	err     error
	history []ai.Turn
	calls   int
}

func (b *fakeBot) Answer(_ context.Context, _ string, history []ai.Turn) (string, error) {
	b.calls++
	b.history = history
	return b.answer, b.err
}

type fakeSentiment struct {
	result *ai.SentimentResult
	err    error
}

func (s *fakeSentiment) Classify(_ context.Context, _ string) (*ai.SentimentResult, error) {
	return s.result, s.err
}

type fakeUsage struct {
	hours      []float64
	activities int
	err        error
}

func (u *fakeUsage) RecordUsage(_ context.Context, _ uint, sessionHours float64, _ time.Time) error {
	u.hours = append(u.hours, sessionHours)
	return u.err
}

func (u *fakeUsage) RecordActivity(_ context.Context, _ uint, _ time.Time) error {
	u.activities++
	return u.err
}

func newTestService(store repository.EventStore, bot BotAnswerer, sentiment SentimentClassifier, usage UsageRecorder) *JournalService {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	return NewJournalService(
		store,
		insights.NewBoundaryLocator(store),
		insights.NewSessionAssembler(store, 0),
		bot, sentiment, usage, 0, log,
	)
}

func seedAt(t *testing.T, store repository.EventStore, ownerID uint, payload models.Payload, at time.Time) *models.Event {
	t.Helper()
	event := &models.Event{OwnerID: ownerID, Payload: payload, CreatedAt: at}
	require.NoError(t, store.Append(context.Background(), event))
	return event
}

func TestRecordUserMessagePersistsDespiteBotFailure(t *testing.T) {
	store := repository.NewMemoryEventStore()
	bot := &fakeBot{err: errors.New("bot service unreachable")}
	svc := newTestService(store, bot, nil, nil)

	recorded, err := svc.RecordUserMessage(context.Background(), 1, "hello?")
	require.NoError(t, err)
	require.NotNil(t, recorded.User)
	assert.Nil(t, recorded.Bot)

	persisted, err := store.GetByID(context.Background(), 1, recorded.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello?", persisted.Message())
}

func TestRecordUserMessageToleratesSentimentFailure(t *testing.T) {
	store := repository.NewMemoryEventStore()
	sentiment := &fakeSentiment{err: errors.New("classifier timeout")}
	svc := newTestService(store, nil, sentiment, nil)

	recorded, err := svc.RecordUserMessage(context.Background(), 1, "fine I guess")
	require.NoError(t, err)

	payload := recorded.User.Payload.(models.UserMessage)
	assert.Nil(t, payload.SentimentPositive)
}

func TestRecordUserMessageAttachesSentiment(t *testing.T) {
	store := repository.NewMemoryEventStore()
	sentiment := &fakeSentiment{result: &ai.SentimentResult{IsPositive: true}}
	svc := newTestService(store, nil, sentiment, nil)

	recorded, err := svc.RecordUserMessage(context.Background(), 1, "great day")
	require.NoError(t, err)

	payload := recorded.User.Payload.(models.UserMessage)
	require.NotNil(t, payload.SentimentPositive)
	assert.True(t, *payload.SentimentPositive)
}

func TestRecordUserMessageAppendsBotReply(t *testing.T) {
	store := repository.NewMemoryEventStore()
	bot := &fakeBot{answer: "glad to hear it"}
	usage := &fakeUsage{}
	svc := newTestService(store, bot, nil, usage)

	seedAt(t, store, 1, models.SessionStart{}, sessionStart)
	recorded, err := svc.RecordUserMessage(context.Background(), 1, "good news")
	require.NoError(t, err)

	require.NotNil(t, recorded.Bot)
	assert.Equal(t, "glad to hear it", recorded.Bot.Message())
	assert.Greater(t, recorded.Bot.ID, recorded.User.ID)
	assert.Equal(t, 1, usage.activities)
}

func TestRecordUserMessagePassesHistoryWindow(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	seedAt(t, store, 1, models.SessionStart{}, sessionStart)
	seedAt(t, store, 1, models.UserMessage{Message: "first question"}, sessionStart.Add(time.Minute))
	seedAt(t, store, 1, models.BotMessage{Message: "first answer"}, sessionStart.Add(2*time.Minute))

	bot := &fakeBot{answer: "second answer"}
	svc := newTestService(store, bot, nil, nil)

	_, err := svc.RecordUserMessage(ctx, 1, "second question")
	require.NoError(t, err)

	require.Len(t, bot.history, 1)
	assert.Equal(t, "first question", bot.history[0].User)
	assert.Equal(t, "first answer", bot.history[0].Bot)
}

func TestStartSessionAccruesClosingSessionHours(t *testing.T) {
	store := repository.NewMemoryEventStore()
	usage := &fakeUsage{}
	svc := newTestService(store, nil, nil, usage)

	seedAt(t, store, 1, models.SessionStart{}, sessionStart)
	seedAt(t, store, 1, models.UserMessage{Message: "start"}, sessionStart.Add(time.Minute))
	seedAt(t, store, 1, models.BotMessage{Message: "end"}, sessionStart.Add(31*time.Minute))

	_, err := svc.StartSession(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, usage.hours, 1)
	assert.InDelta(t, 0.5, usage.hours[0], 1e-9)
}

func TestStartSessionWithNoOpenSessionAccruesNothing(t *testing.T) {
	store := repository.NewMemoryEventStore()
	usage := &fakeUsage{}
	svc := newTestService(store, nil, nil, usage)

	event, err := svc.StartSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.KindSessionStart, event.Kind())

	require.Len(t, usage.hours, 1)
	assert.Zero(t, usage.hours[0])
}

func TestStartSessionSurvivesUsageFailure(t *testing.T) {
	store := repository.NewMemoryEventStore()
	usage := &fakeUsage{err: errors.New("usage store down")}
	svc := newTestService(store, nil, nil, usage)

	event, err := svc.StartSession(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, event)

	_, err = store.GetByID(context.Background(), 1, event.ID)
	assert.NoError(t, err)
}

func TestRecordMoodRejectsUnknownPayload(t *testing.T) {
	store := repository.NewMemoryEventStore()
	svc := newTestService(store, nil, nil, nil)

	_, err := svc.RecordMood(context.Background(), 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidMood)
}

func TestAttachFeedbackMutatesBotMessage(t *testing.T) {
	store := repository.NewMemoryEventStore()
	svc := newTestService(store, nil, nil, nil)
	ctx := context.Background()

	target := seedAt(t, store, 1, models.BotMessage{Message: "was this helpful?"}, sessionStart)

	require.NoError(t, svc.AttachFeedback(ctx, 1, target.ID, "thumb", "up"))

	updated, err := store.GetByID(ctx, 1, target.ID)
	require.NoError(t, err)
	payload := updated.Payload.(models.BotMessage)
	assert.Equal(t, "thumb", payload.FeedbackType)
	assert.Equal(t, "up", payload.FeedbackValue)
}

func TestAttachFeedbackRejectsNonBotTarget(t *testing.T) {
	store := repository.NewMemoryEventStore()
	svc := newTestService(store, nil, nil, nil)

	target := seedAt(t, store, 1, models.UserMessage{Message: "mine"}, sessionStart)

	err := svc.AttachFeedback(context.Background(), 1, target.ID, "thumb", "down")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

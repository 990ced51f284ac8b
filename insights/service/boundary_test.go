package service

import (
	"context"
	"testing"
	"time"

	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func appendAt(t *testing.T, store *repository.MemoryEventStore, ownerID uint, payload journal.Payload, at time.Time) journal.Event {
	t.Helper()
	event := journal.Event{OwnerID: ownerID, CreatedAt: at, Payload: payload}
	require.NoError(t, store.Append(context.Background(), &event))
	return event
}

func TestBoundaryLocatorNoMarkers(t *testing.T) {
	store := repository.NewMemoryEventStore()
	appendAt(t, store, 1, journal.UserMessage{Message: "stray"}, baseTime)

	locator := NewBoundaryLocator(store)
	w, err := locator.Locate(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, w.Empty())
}

func TestBoundaryLocatorOpenEnded(t *testing.T) {
	store := repository.NewMemoryEventStore()
	marker := appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	appendAt(t, store, 1, journal.UserMessage{Message: "hi"}, baseTime.Add(time.Minute))

	locator := NewBoundaryLocator(store)
	w, err := locator.Locate(context.Background(), 1, marker.ID)
	require.NoError(t, err)
	assert.True(t, w.Open())
	assert.Equal(t, marker.ID, w.Lower.ID)
	assert.Equal(t, uint(0), w.UpperID())
}

func TestBoundaryLocatorClosedWindow(t *testing.T) {
	store := repository.NewMemoryEventStore()
	first := appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	appendAt(t, store, 1, journal.UserMessage{Message: "hi"}, baseTime.Add(time.Minute))
	second := appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(time.Hour))

	locator := NewBoundaryLocator(store)
	w, err := locator.Locate(context.Background(), 1, first.ID)
	require.NoError(t, err)
	assert.False(t, w.Open())
	assert.Equal(t, first.ID, w.Lower.ID)
	assert.Equal(t, second.ID, w.UpperID())
}

func TestBoundaryLocatorIgnoresOtherOwnersAndKinds(t *testing.T) {
	store := repository.NewMemoryEventStore()
	appendAt(t, store, 2, journal.SessionStart{}, baseTime)
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 6}, baseTime.Add(time.Minute))
	mine := appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(2*time.Minute))

	locator := NewBoundaryLocator(store)
	w, err := locator.Locate(context.Background(), 1, 1)
	require.NoError(t, err)
	require.False(t, w.Empty())
	assert.Equal(t, mine.ID, w.Lower.ID)
}

// Windows located from successive anchors never overlap: the next window's
// lower edge starts at or after the previous window's upper edge.
func TestBoundaryLocatorMonotonicScan(t *testing.T) {
	store := repository.NewMemoryEventStore()
	for i := 0; i < 4; i++ {
		appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(time.Duration(i)*time.Hour))
		appendAt(t, store, 1, journal.UserMessage{Message: "m"}, baseTime.Add(time.Duration(i)*time.Hour+time.Minute))
	}

	locator := NewBoundaryLocator(store)
	ctx := context.Background()

	w0, err := locator.Locate(ctx, 1, 0)
	require.NoError(t, err)
	require.False(t, w0.Empty())

	w1, err := locator.Locate(ctx, 1, w0.UpperID())
	require.NoError(t, err)
	require.False(t, w1.Empty())
	assert.GreaterOrEqual(t, w1.Lower.ID, w0.UpperID())
}

func TestLocateCurrentUsesLatestMarker(t *testing.T) {
	store := repository.NewMemoryEventStore()
	appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	latest := appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(time.Hour))

	locator := NewBoundaryLocator(store)
	w, err := locator.LocateCurrent(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, w.Empty())
	assert.Equal(t, latest.ID, w.Lower.ID)
	assert.True(t, w.Open())
}

package service

import (
	"context"
	"testing"
	"time"

	"chat-companion-analytics/backend/insights/models"
	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two markers split the stream into a closed session holding the first two
// messages and an open session holding the trailing one.
func TestAssembleSplitsStreamAtMarkers(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	m1 := appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	u1 := appendAt(t, store, 1, journal.UserMessage{Message: "hello"}, baseTime.Add(time.Minute))
	b1 := appendAt(t, store, 1, journal.BotMessage{Message: "hi there"}, baseTime.Add(2*time.Minute))
	m2 := appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(time.Hour))
	u2 := appendAt(t, store, 1, journal.UserMessage{Message: "back again"}, baseTime.Add(time.Hour+time.Minute))

	locator := NewBoundaryLocator(store)
	assembler := NewSessionAssembler(store, 0)

	w1, err := locator.Locate(ctx, 1, m1.ID)
	require.NoError(t, err)
	first, err := assembler.Assemble(ctx, w1)
	require.NoError(t, err)

	require.Len(t, first.Members, 2)
	assert.Equal(t, u1.ID, first.Members[0].ID)
	assert.Equal(t, b1.ID, first.Members[1].ID)
	assert.False(t, first.Open())
	require.NotNil(t, first.EndEventID)
	assert.Equal(t, m2.ID, *first.EndEventID)

	w2, err := locator.Locate(ctx, 1, m2.ID)
	require.NoError(t, err)
	second, err := assembler.Assemble(ctx, w2)
	require.NoError(t, err)

	require.Len(t, second.Members, 1)
	assert.Equal(t, u2.ID, second.Members[0].ID)
	assert.True(t, second.Open())
}

// Every message belongs to exactly one derived session: walking all windows
// partitions the owner's messages with no duplication and no omission.
func TestAssemblePartitionsAllMessages(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	var messageIDs []uint
	for i := 0; i < 3; i++ {
		appendAt(t, store, 1, journal.SessionStart{}, baseTime.Add(time.Duration(i)*time.Hour))
		for j := 0; j < 4; j++ {
			at := baseTime.Add(time.Duration(i)*time.Hour + time.Duration(j+1)*time.Minute)
			e := appendAt(t, store, 1, journal.UserMessage{Message: "m"}, at)
			messageIDs = append(messageIDs, e.ID)
		}
		appendAt(t, store, 1, journal.MoodMarker{MoodID: 6}, baseTime.Add(time.Duration(i)*time.Hour+30*time.Minute))
	}

	locator := NewBoundaryLocator(store)
	assembler := NewSessionAssembler(store, 0)

	seen := make(map[uint]int)
	anchor := uint(0)
	for {
		w, err := locator.Locate(ctx, 1, anchor)
		require.NoError(t, err)
		if w.Empty() {
			break
		}
		session, err := assembler.Assemble(ctx, w)
		require.NoError(t, err)
		for _, member := range session.Members {
			seen[member.ID]++
		}
		if w.Open() {
			break
		}
		anchor = w.UpperID()
	}

	require.Len(t, seen, len(messageIDs))
	for _, id := range messageIDs {
		assert.Equal(t, 1, seen[id], "message %d must appear exactly once", id)
	}
}

// Assembling the same window twice with no intervening appends yields the
// identical member set.
func TestAssembleIsIdempotent(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	marker := appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	appendAt(t, store, 1, journal.UserMessage{Message: "one"}, baseTime.Add(time.Minute))
	appendAt(t, store, 1, journal.BotMessage{Message: "two"}, baseTime.Add(2*time.Minute))

	locator := NewBoundaryLocator(store)
	assembler := NewSessionAssembler(store, 0)

	w, err := locator.Locate(ctx, 1, marker.ID)
	require.NoError(t, err)

	first, err := assembler.Assemble(ctx, w)
	require.NoError(t, err)
	second, err := assembler.Assemble(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, first.Members, second.Members)
}

func TestMembersPagination(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	marker := appendAt(t, store, 1, journal.SessionStart{}, baseTime)
	for i := 0; i < 5; i++ {
		appendAt(t, store, 1, journal.UserMessage{Message: "m"}, baseTime.Add(time.Duration(i+1)*time.Minute))
	}

	locator := NewBoundaryLocator(store)
	assembler := NewSessionAssembler(store, 0)

	w, err := locator.Locate(ctx, 1, marker.ID)
	require.NoError(t, err)

	page, total, err := assembler.Members(ctx, w, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, marker.ID+3, page[0].ID)

	empty, total, err := assembler.Members(ctx, models.Window{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, empty)
}

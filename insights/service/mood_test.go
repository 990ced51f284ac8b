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

func TestAnnotateResolvesNearestPrecedingMarker(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	appendAt(t, store, 1, journal.MoodMarker{MoodID: 7}, baseTime) // sad
	msg := appendAt(t, store, 1, journal.UserMessage{Message: "rough day"}, baseTime.Add(2*time.Minute))

	annotator := NewMoodAnnotator(store, 0)
	mood, err := annotator.Annotate(ctx, 1, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, mood)
	assert.Equal(t, "sad", mood.Name)
	assert.Equal(t, 7, mood.Code)
}

func TestAnnotateNoMarkerMeansNoAnnotation(t *testing.T) {
	store := repository.NewMemoryEventStore()
	msg := appendAt(t, store, 1, journal.UserMessage{Message: "hello"}, baseTime)

	annotator := NewMoodAnnotator(store, 0)
	mood, err := annotator.Annotate(context.Background(), 1, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, mood)
}

func TestAnnotateMarkerMustStrictlyPrecedeAnchor(t *testing.T) {
	store := repository.NewMemoryEventStore()
	marker := appendAt(t, store, 1, journal.MoodMarker{MoodID: 6}, baseTime)

	// The marker itself is not annotated by itself.
	annotator := NewMoodAnnotator(store, 0)
	mood, err := annotator.Annotate(context.Background(), 1, marker.ID)
	require.NoError(t, err)
	assert.Nil(t, mood)
}

func TestAnnotateUnknownCodeAnnotatesNothing(t *testing.T) {
	store := repository.NewMemoryEventStore()
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 42}, baseTime)
	msg := appendAt(t, store, 1, journal.UserMessage{Message: "hi"}, baseTime.Add(time.Minute))

	annotator := NewMoodAnnotator(store, 0)
	mood, err := annotator.Annotate(context.Background(), 1, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, mood)
}

// AnnotateAll matches the per-anchor lookup: each anchor resolves to the
// last marker before it, carried forward through the merged scan.
func TestAnnotateAllMatchesSingleLookups(t *testing.T) {
	store := repository.NewMemoryEventStore()
	ctx := context.Background()

	appendAt(t, store, 1, journal.MoodMarker{MoodID: 1}, baseTime) // angry
	a1 := appendAt(t, store, 1, journal.UserMessage{Message: "first"}, baseTime.Add(time.Minute))
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 6}, baseTime.Add(2*time.Minute)) // happy
	a2 := appendAt(t, store, 1, journal.UserMessage{Message: "second"}, baseTime.Add(3*time.Minute))
	a3 := appendAt(t, store, 1, journal.UserMessage{Message: "third"}, baseTime.Add(4*time.Minute))

	annotator := NewMoodAnnotator(store, 0)
	batch, err := annotator.AnnotateAll(ctx, 1, []uint{a3.ID, a1.ID, a2.ID})
	require.NoError(t, err)

	require.Len(t, batch, 3)
	assert.Equal(t, "angry", batch[a1.ID].Name)
	assert.Equal(t, "happy", batch[a2.ID].Name)
	assert.Equal(t, "happy", batch[a3.ID].Name)

	for _, anchorID := range []uint{a1.ID, a2.ID, a3.ID} {
		single, err := annotator.Annotate(ctx, 1, anchorID)
		require.NoError(t, err)
		require.NotNil(t, single)
		assert.Equal(t, *single, batch[anchorID])
	}
}

// When the marker scan is capped, the newest markers are the ones kept, so
// a heavily-marked owner still resolves to the most recent mood.
func TestAnnotateAllCapKeepsNewestMarkers(t *testing.T) {
	store := repository.NewMemoryEventStore()
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 1}, baseTime)
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 6}, baseTime.Add(time.Minute))
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 9}, baseTime.Add(2*time.Minute))
	anchor := appendAt(t, store, 1, journal.UserMessage{Message: "now"}, baseTime.Add(3*time.Minute))

	annotator := NewMoodAnnotator(store, 2)
	batch, err := annotator.AnnotateAll(context.Background(), 1, []uint{anchor.ID})
	require.NoError(t, err)
	require.Contains(t, batch, anchor.ID)
	assert.Equal(t, "tired", batch[anchor.ID].Name)
}

func TestAnnotateAllAnchorWithoutMarkerIsAbsent(t *testing.T) {
	store := repository.NewMemoryEventStore()
	a1 := appendAt(t, store, 1, journal.UserMessage{Message: "early"}, baseTime)
	appendAt(t, store, 1, journal.MoodMarker{MoodID: 9}, baseTime.Add(time.Minute))
	a2 := appendAt(t, store, 1, journal.UserMessage{Message: "late"}, baseTime.Add(2*time.Minute))

	annotator := NewMoodAnnotator(store, 0)
	batch, err := annotator.AnnotateAll(context.Background(), 1, []uint{a1.ID, a2.ID})
	require.NoError(t, err)

	_, found := batch[a1.ID]
	assert.False(t, found)
	assert.Equal(t, "tired", batch[a2.ID].Name)
}

package service

import (
	"context"
	"sort"

	"chat-companion-analytics/backend/insights/models"
	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
)

// moodNames maps the nine canonical mood-marker codes to their names.
// Unknown codes annotate nothing.
var moodNames = map[int]string{
	1: "angry",
	2: "anxious",
	3: "content",
	4: "excited",
	5: "stress",
	6: "happy",
	7: "sad",
	8: "surprised",
	9: "tired",
}

// MoodName resolves a marker code to its canonical name.
func MoodName(code int) (string, bool) {
	name, ok := moodNames[code]
	return name, ok
}

// MoodCodes returns the canonical codes in ascending order.
func MoodCodes() []int {
	codes := make([]int, 0, len(moodNames))
	for code := range moodNames {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// MoodAnnotator resolves the nearest preceding mood marker for anchor
// events. An annotation, when present, always has an id strictly less than
// the anchor's.
type MoodAnnotator struct {
	store   repository.EventStore
	maxRows int
}

func NewMoodAnnotator(store repository.EventStore, maxRows int) *MoodAnnotator {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &MoodAnnotator{store: store, maxRows: maxRows}
}

// Annotate resolves the mood for a single anchor. Returns nil when no
// qualifying marker exists or the marker carries an unknown code.
func (m *MoodAnnotator) Annotate(ctx context.Context, ownerID, anchorID uint) (*models.Mood, error) {
	marker, err := m.store.LatestMoodBefore(ctx, ownerID, anchorID)
	if err != nil {
		return nil, err
	}
	return moodOf(marker), nil
}

// AnnotateAll resolves moods for a batch of anchors with one marker scan
// instead of one query per anchor: markers and anchors are merged in id
// order, carrying the last-seen marker forward. Anchors without a preceding
// marker are absent from the result.
func (m *MoodAnnotator) AnnotateAll(ctx context.Context, ownerID uint, anchorIDs []uint) (map[uint]models.Mood, error) {
	result := make(map[uint]models.Mood, len(anchorIDs))
	if len(anchorIDs) == 0 {
		return result, nil
	}
	sorted := make([]uint, len(anchorIDs))
	copy(sorted, anchorIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	maxID := sorted[len(sorted)-1]
	markers, err := m.store.MoodMarkersUpTo(ctx, ownerID, maxID, m.maxRows)
	if err != nil {
		return nil, err
	}

	var last *journal.Event
	next := 0
	for _, anchorID := range sorted {
		for next < len(markers) && markers[next].ID < anchorID {
			last = &markers[next]
			next++
		}
		if mood := moodOf(last); mood != nil {
			result[anchorID] = *mood
		}
	}
	return result, nil
}

func moodOf(marker *journal.Event) *models.Mood {
	if marker == nil {
		return nil
	}
	payload, ok := marker.Payload.(journal.MoodMarker)
	if !ok {
		return nil
	}
	name, ok := moodNames[payload.MoodID]
	if !ok {
		return nil
	}
	return &models.Mood{Code: payload.MoodID, Name: name}
}

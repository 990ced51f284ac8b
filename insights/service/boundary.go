package service

import (
	"context"

	"chat-companion-analytics/backend/insights/models"
	"chat-companion-analytics/backend/journal/repository"
)

// BoundaryLocator resolves session edges from the marker stream. Boundaries
// are derived purely from event ordering, never from wall-clock gaps.
type BoundaryLocator struct {
	store repository.EventStore
}

func NewBoundaryLocator(store repository.EventStore) *BoundaryLocator {
	return &BoundaryLocator{store: store}
}

// Locate finds the nearest session-start markers at or after anchorID.
// Zero markers yield an empty window, one marker an open-ended window, two
// markers the half-open span [first, second).
func (l *BoundaryLocator) Locate(ctx context.Context, ownerID, anchorID uint) (models.Window, error) {
	edges, err := l.store.SessionStartsFrom(ctx, ownerID, anchorID, 2)
	if err != nil {
		return models.Window{}, err
	}
	var w models.Window
	if len(edges) >= 1 {
		w.Lower = &edges[0]
	}
	if len(edges) >= 2 {
		w.Upper = &edges[1]
	}
	return w, nil
}

// LocateCurrent resolves the window of the owner's most recent session, the
// one any new message would join. Returns an empty window when the owner has
// never started a session.
func (l *BoundaryLocator) LocateCurrent(ctx context.Context, ownerID uint) (models.Window, error) {
	latest, err := l.store.LatestSessionStart(ctx, ownerID)
	if err != nil {
		return models.Window{}, err
	}
	if latest == nil {
		return models.Window{}, nil
	}
	return models.Window{Lower: latest}, nil
}

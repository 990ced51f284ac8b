package service

import (
	"context"

	"chat-companion-analytics/backend/insights/models"
	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
)

// SessionAssembler materializes a session from a resolved window. Assembling
// the same window twice with no intervening appends yields an identical
// member set.
type SessionAssembler struct {
	store   repository.EventStore
	maxRows int
}

func NewSessionAssembler(store repository.EventStore, maxRows int) *SessionAssembler {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &SessionAssembler{store: store, maxRows: maxRows}
}

// Assemble fetches every member event of the window's session, ascending by
// id. Member scans are capped at maxRows.
func (a *SessionAssembler) Assemble(ctx context.Context, w models.Window) (models.Session, error) {
	if w.Empty() {
		return models.Session{}, nil
	}
	members, err := a.store.MessagesInWindow(ctx, w.Lower.OwnerID, w.Lower.ID, w.UpperID(), 0, a.maxRows)
	if err != nil {
		return models.Session{}, err
	}
	return newSession(w, members), nil
}

// Members paginates within one session's member events without loading the
// whole session.
func (a *SessionAssembler) Members(ctx context.Context, w models.Window, offset, limit int) ([]journal.Event, int64, error) {
	if w.Empty() {
		return nil, 0, nil
	}
	if limit <= 0 || limit > a.maxRows {
		limit = a.maxRows
	}
	total, err := a.store.CountMessagesInWindow(ctx, w.Lower.OwnerID, w.Lower.ID, w.UpperID())
	if err != nil {
		return nil, 0, err
	}
	members, err := a.store.MessagesInWindow(ctx, w.Lower.OwnerID, w.Lower.ID, w.UpperID(), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func newSession(w models.Window, members []journal.Event) models.Session {
	s := models.Session{
		OwnerID:      w.Lower.OwnerID,
		StartEventID: w.Lower.ID,
		StartTime:    w.Lower.CreatedAt,
		Members:      members,
	}
	if w.Upper != nil {
		endID := w.Upper.ID
		endTime := w.Upper.CreatedAt
		s.EndEventID = &endID
		s.EndTime = &endTime
	}
	return s
}

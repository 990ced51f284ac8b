package models

import (
	"time"

	journal "chat-companion-analytics/backend/journal/models"
)

// Window is a resolved pair of session boundaries. Lower is the anchoring
// session-start marker; Upper is the next one, nil for the trailing open
// session. A zero Window means no session begins at or after the anchor.
type Window struct {
	Lower *journal.Event
	Upper *journal.Event
}

// Empty reports whether no boundary was found.
func (w Window) Empty() bool { return w.Lower == nil }

// Open reports whether the window has no upper bound.
func (w Window) Open() bool { return w.Lower != nil && w.Upper == nil }

// UpperID returns the exclusive upper id of the window, 0 when open.
func (w Window) UpperID() uint {
	if w.Upper == nil {
		return 0
	}
	return w.Upper.ID
}

// Session is a derived, contiguous run of message events bounded by
// session-start markers. It is computed on read and never persisted.
type Session struct {
	OwnerID      uint
	StartEventID uint
	StartTime    time.Time
	EndEventID   *uint
	EndTime      *time.Time
	Members      []journal.Event
}

// Open reports whether the session has no closing boundary yet.
func (s Session) Open() bool { return s.EndEventID == nil }

// Mood is the canonical annotation resolved from the nearest preceding
// mood marker.
type Mood struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// SessionRow is one summary line of a paged session listing.
type SessionRow struct {
	FirstMessage  string     `json:"first_message"`
	StartEventID  uint       `json:"start_event_id"`
	StartTime     time.Time  `json:"start_time"`
	EndEventID    *uint      `json:"end_event_id,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationHours float64    `json:"duration_hours"`
	Mood          *Mood      `json:"mood,omitempty"`
	ChatTimeLabel string     `json:"chat_time_label"`
}

// PagedSessions is the paged result of a session listing or report.
// TotalCount is the number of qualifying sessions before pagination.
type PagedSessions struct {
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalCount int64        `json:"total_count"`
	Sessions   []SessionRow `json:"sessions"`
}

// PagedMessages is a page of one session's member events.
type PagedMessages struct {
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalCount int64        `json:"total_count"`
	Messages   []MessageRow `json:"messages"`
}

// MessageRow is one member event of a session detail listing.
type MessageRow struct {
	EventID    uint      `json:"event_id"`
	ExternalID string    `json:"external_id"`
	Sender     string    `json:"sender"`
	Message    string    `json:"message"`
	Mood       *Mood     `json:"mood,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

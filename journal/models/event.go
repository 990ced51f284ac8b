package models

import (
	"errors"
	"time"
)

// Kind discriminates the event union.
type Kind string

const (
	KindUserMessage  Kind = "user_message"
	KindBotMessage   Kind = "bot_message"
	KindSessionStart Kind = "session_start"
	KindMoodMarker   Kind = "mood_marker"
	KindFeedback     Kind = "feedback"
)

var (
	ErrMissingOwner    = errors.New("event owner is required")
	ErrMissingPayload  = errors.New("event payload is required")
	ErrEmptyMessage    = errors.New("message text is required")
	ErrInvalidMood     = errors.New("mood id must be positive")
	ErrInvalidFeedback = errors.New("feedback requires a target and a type")
)

// Payload is the kind-specific part of an event. The interface is sealed:
// exactly one payload type exists per kind, so a record cannot carry both a
// message and a mood marker.
type Payload interface {
	Kind() Kind
	validate() error
}

// UserMessage is a message typed by the owner. SentimentPositive is
// populated only when the external classifier answered in time.
type UserMessage struct {
	Message           string
	SentimentPositive *bool
}

func (UserMessage) Kind() Kind { return KindUserMessage }

func (p UserMessage) validate() error {
	if p.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}

// BotMessage is a reply produced by the bot collaborator. Feedback fields
// start empty and are attached later by a Feedback event.
type BotMessage struct {
	Message       string
	FeedbackType  string
	FeedbackValue string
}

func (BotMessage) Kind() Kind { return KindBotMessage }

func (p BotMessage) validate() error {
	if p.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}

// SessionStart marks a session boundary. It carries no payload of its own;
// its position in the log is the information.
type SessionStart struct{}

func (SessionStart) Kind() Kind { return KindSessionStart }

func (SessionStart) validate() error { return nil }

// MoodMarker records a mood selection by numeric code. Codes outside the
// canonical table are stored but never annotate anything.
type MoodMarker struct {
	MoodID int
}

func (MoodMarker) Kind() Kind { return KindMoodMarker }

func (p MoodMarker) validate() error {
	if p.MoodID <= 0 {
		return ErrInvalidMood
	}
	return nil
}

// Feedback attaches a rating to an existing bot message. Applying it is the
// only mutation the log permits.
type Feedback struct {
	TargetID      uint
	FeedbackType  string
	FeedbackValue string
}

func (Feedback) Kind() Kind { return KindFeedback }

func (p Feedback) validate() error {
	if p.TargetID == 0 || p.FeedbackType == "" {
		return ErrInvalidFeedback
	}
	return nil
}

// Event is one immutable record in the append-only owner-scoped log. The ID
// is assigned by the store and is strictly increasing in creation order.
type Event struct {
	ID         uint
	ExternalID string
	OwnerID    uint
	CreatedAt  time.Time
	Payload    Payload
}

// Kind returns the discriminator of the event's payload.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// IsMessage reports whether the event is a session member rather than a
// marker.
func (e Event) IsMessage() bool {
	k := e.Kind()
	return k == KindUserMessage || k == KindBotMessage
}

// Message returns the text carried by a message-kind event, or "".
func (e Event) Message() string {
	switch p := e.Payload.(type) {
	case UserMessage:
		return p.Message
	case BotMessage:
		return p.Message
	}
	return ""
}

// Validate enforces the union's structural rules at the write boundary.
func (e Event) Validate() error {
	if e.OwnerID == 0 {
		return ErrMissingOwner
	}
	if e.Payload == nil {
		return ErrMissingPayload
	}
	return e.Payload.validate()
}

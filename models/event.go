package models

import (
	"time"
)

// EventType identifies the kind of group activity an event is for.
type EventType string

const (
	EventTypeTrial   EventType = "trial"
	EventTypeDungeon EventType = "dungeon"
	EventTypeArena   EventType = "arena"
)

// ValidEventTypes lists every supported event type, in display order.
var ValidEventTypes = []EventType{EventTypeTrial, EventTypeDungeon, EventTypeArena}

// IsValid reports whether the event type is one of the supported kinds.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeTrial, EventTypeDungeon, EventTypeArena:
		return true
	}
	return false
}

// Sentinel roles that exist outside the capacity templates.
const (
	RoleLeader = "leader"
	RoleFill   = "fill"
)

// Event is one scheduled occurrence of a group activity with a
// registration roster.
type Event struct {
	ID        int64
	Type      EventType
	Name      string
	TriggerAt time.Time
	ChannelID string
	MessageID string
	CreatedAt time.Time
	IsDone    bool
}

// Bound reports whether the roster message has been sent and recorded.
func (e *Event) Bound() bool {
	return e.ChannelID != "" && e.MessageID != ""
}

// Participant is a user's role binding within one event.
type Participant struct {
	EventID int64
	UserID  string
	Role    string
}

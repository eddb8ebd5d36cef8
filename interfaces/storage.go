package interfaces

import (
	"time"

	"github.com/Snaptraks/FateBot/models"
)

// EventRepository is the durable store for events and participants. It is
// pure CRUD; capacity rules live in the registration session. Every
// mutating call is a single transaction, committed before it returns; a
// failed commit is reported as an error and leaves prior state untouched.
type EventRepository interface {
	// Event operations
	CreateEvent(eventType models.EventType, name string, triggerAt time.Time) (int64, error)
	BindMessage(eventID int64, channelID, messageID string, createdAt time.Time) error
	GetEvent(eventID int64) (*models.Event, error)
	// ListActiveEvents returns events with trigger_at after now that are
	// not done. Passing the zero time therefore returns every unfinished
	// event, overdue ones included.
	ListActiveEvents(now time.Time) ([]models.Event, error)
	MarkDone(eventID int64) error
	// EditField updates one of the editable fields: "trigger_at" or
	// "event_name". The event type is fixed at creation.
	EditField(eventID int64, field, value string) error

	// Participant operations
	AddRole(eventID int64, userID, role string) error
	ClearUser(eventID int64, userID string) error
	RemoveNonLeaderRoles(eventID int64, userID string) error
	// ListParticipants returns role rows in the order they were persisted.
	ListParticipants(eventID int64) ([]models.Participant, error)

	Close() error
}

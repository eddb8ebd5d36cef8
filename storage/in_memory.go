package storage

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/models"
)

// InMemoryStorage is a non-durable store for tests and local development.
type InMemoryStorage struct {
	mu           sync.Mutex
	nextID       int64
	events       map[int64]*models.Event
	participants map[int64][]models.Participant
}

// NewInMemoryStorage creates an empty in-memory store.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		nextID:       1,
		events:       make(map[int64]*models.Event),
		participants: make(map[int64][]models.Participant),
	}
}

func (s *InMemoryStorage) CreateEvent(eventType models.EventType, name string, triggerAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventID := s.nextID
	s.nextID++
	s.events[eventID] = &models.Event{
		ID:        eventID,
		Type:      eventType,
		Name:      name,
		TriggerAt: triggerAt.UTC(),
	}
	return eventID, nil
}

func (s *InMemoryStorage) BindMessage(eventID int64, channelID, messageID string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return s.notFound(eventID)
	}
	event.ChannelID = channelID
	event.MessageID = messageID
	event.CreatedAt = createdAt.UTC()
	return nil
}

func (s *InMemoryStorage) GetEvent(eventID int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, s.notFound(eventID)
	}
	copied := *event
	return &copied, nil
}

func (s *InMemoryStorage) ListActiveEvents(now time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.Event
	for id := int64(1); id < s.nextID; id++ {
		event, ok := s.events[id]
		if !ok {
			continue
		}
		if !event.IsDone && event.TriggerAt.After(now) {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (s *InMemoryStorage) MarkDone(eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return s.notFound(eventID)
	}
	event.IsDone = true
	return nil
}

func (s *InMemoryStorage) EditField(eventID int64, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return s.notFound(eventID)
	}

	switch field {
	case "trigger_at":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return apperrors.NewInvalidTimeError(value)
		}
		event.TriggerAt = t.UTC()
	case "event_name":
		event.Name = value
	default:
		return apperrors.NewValidationError("FIELD_NOT_EDITABLE",
			fmt.Sprintf("field %q is not editable", field),
			fmt.Sprintf("Field `%s` cannot be edited.", field))
	}
	return nil
}

func (s *InMemoryStorage) AddRole(eventID int64, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent: duplicate (event, role, user) rows are ignored.
	for _, p := range s.participants[eventID] {
		if p.UserID == userID && p.Role == role {
			return nil
		}
	}
	s.participants[eventID] = append(s.participants[eventID], models.Participant{
		EventID: eventID,
		UserID:  userID,
		Role:    role,
	})
	return nil
}

func (s *InMemoryStorage) ClearUser(eventID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.participants[eventID][:0]
	for _, p := range s.participants[eventID] {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	s.participants[eventID] = kept
	return nil
}

func (s *InMemoryStorage) RemoveNonLeaderRoles(eventID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.participants[eventID][:0]
	for _, p := range s.participants[eventID] {
		if p.UserID != userID || p.Role == models.RoleLeader {
			kept = append(kept, p)
		}
	}
	s.participants[eventID] = kept
	return nil
}

func (s *InMemoryStorage) ListParticipants(eventID int64) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := make([]models.Participant, len(s.participants[eventID]))
	copy(participants, s.participants[eventID])
	return participants, nil
}

func (s *InMemoryStorage) Close() error {
	return nil
}

func (s *InMemoryStorage) notFound(eventID int64) error {
	return apperrors.NewStorageError("EVENT_NOT_FOUND",
		fmt.Sprintf("no event with id %d", eventID), nil)
}

package storage

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/interfaces"
	"github.com/Snaptraks/FateBot/models"
)

// The sqlite and in-memory backends must agree on semantics, so the
// behavioral tests run against both.
func backends(t *testing.T) map[string]interfaces.EventRepository {
	t.Helper()

	sqlite, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]interfaces.EventRepository{
		"sqlite": sqlite,
		"memory": NewInMemoryStorage(),
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	triggerAt := time.Date(2026, 9, 15, 20, 0, 0, 0, time.UTC)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			eventID, err := repo.CreateEvent(models.EventTypeTrial, "nAA", triggerAt)
			if err != nil {
				t.Fatalf("CreateEvent() error: %v", err)
			}
			if eventID <= 0 {
				t.Fatalf("CreateEvent() id = %d, want positive", eventID)
			}

			event, err := repo.GetEvent(eventID)
			if err != nil {
				t.Fatalf("GetEvent() error: %v", err)
			}
			if event.Type != models.EventTypeTrial || event.Name != "nAA" {
				t.Errorf("event = %+v, want trial nAA", event)
			}
			if !event.TriggerAt.Equal(triggerAt) {
				t.Errorf("TriggerAt = %v, want %v", event.TriggerAt, triggerAt)
			}
			if event.Bound() || event.IsDone {
				t.Errorf("fresh event bound=%v done=%v, want false false", event.Bound(), event.IsDone)
			}

			if _, err := repo.GetEvent(eventID + 100); !apperrors.IsType(err, apperrors.TypeStorage) {
				t.Errorf("GetEvent(missing) error = %v, want storage error", err)
			}
		})
	}
}

func TestBindMessageAndMarkDone(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			eventID, _ := repo.CreateEvent(models.EventTypeDungeon, "FG2", time.Now().Add(time.Hour))

			createdAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
			if err := repo.BindMessage(eventID, "chan-1", "msg-1", createdAt); err != nil {
				t.Fatalf("BindMessage() error: %v", err)
			}

			event, _ := repo.GetEvent(eventID)
			if event.ChannelID != "chan-1" || event.MessageID != "msg-1" {
				t.Errorf("bound event = %+v", event)
			}
			if !event.CreatedAt.Equal(createdAt) {
				t.Errorf("CreatedAt = %v, want %v", event.CreatedAt, createdAt)
			}

			if err := repo.MarkDone(eventID); err != nil {
				t.Fatalf("MarkDone() error: %v", err)
			}
			event, _ = repo.GetEvent(eventID)
			if !event.IsDone {
				t.Error("event not done after MarkDone")
			}
		})
	}
}

func TestListActiveEvents(t *testing.T) {
	now := time.Now().UTC()

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			future, _ := repo.CreateEvent(models.EventTypeTrial, "nAA", now.Add(time.Hour))
			overdue, _ := repo.CreateEvent(models.EventTypeTrial, "nSS", now.Add(-time.Hour))
			done, _ := repo.CreateEvent(models.EventTypeTrial, "nHRC", now.Add(time.Hour))
			repo.MarkDone(done)

			active, err := repo.ListActiveEvents(now)
			if err != nil {
				t.Fatalf("ListActiveEvents(now) error: %v", err)
			}
			if len(active) != 1 || active[0].ID != future {
				t.Errorf("active events = %v, want only %d", active, future)
			}

			// The zero time widens the query to overdue events, which
			// recovery needs.
			all, err := repo.ListActiveEvents(time.Time{})
			if err != nil {
				t.Fatalf("ListActiveEvents(zero) error: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("unfinished events = %v, want 2", all)
			}
			if all[0].ID != future && all[1].ID != future {
				t.Errorf("future event %d missing from %v", future, all)
			}
			if all[0].ID != overdue && all[1].ID != overdue {
				t.Errorf("overdue event %d missing from %v", overdue, all)
			}
		})
	}
}

func TestEditField(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			eventID, _ := repo.CreateEvent(models.EventTypeTrial, "nAA", time.Now().Add(time.Hour))

			newTime := time.Date(2027, 1, 2, 18, 30, 0, 0, time.UTC)
			if err := repo.EditField(eventID, "trigger_at", newTime.Format(time.RFC3339Nano)); err != nil {
				t.Fatalf("EditField(trigger_at) error: %v", err)
			}
			if err := repo.EditField(eventID, "event_name", "nSS"); err != nil {
				t.Fatalf("EditField(event_name) error: %v", err)
			}

			event, _ := repo.GetEvent(eventID)
			if !event.TriggerAt.Equal(newTime) || event.Name != "nSS" {
				t.Errorf("edited event = %+v", event)
			}

			if err := repo.EditField(eventID, "event_type", "dungeon"); !apperrors.IsType(err, apperrors.TypeValidation) {
				t.Errorf("EditField(event_type) error = %v, want validation error", err)
			}
			if err := repo.EditField(eventID, "trigger_at", "garbage"); !apperrors.IsType(err, apperrors.TypeInvalidTime) {
				t.Errorf("EditField(bad time) error = %v, want invalid-time", err)
			}
		})
	}
}

func TestParticipantLifecycle(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			eventID, _ := repo.CreateEvent(models.EventTypeTrial, "nAA", time.Now().Add(time.Hour))

			mustAdd := func(userID, role string) {
				t.Helper()
				if err := repo.AddRole(eventID, userID, role); err != nil {
					t.Fatalf("AddRole(%s, %s) error: %v", userID, role, err)
				}
			}

			mustAdd("u1", "tank0")
			mustAdd("u1", models.RoleLeader)
			mustAdd("u2", "dps0")
			// Duplicate rows are ignored, not errors.
			mustAdd("u2", "dps0")

			participants, err := repo.ListParticipants(eventID)
			if err != nil {
				t.Fatalf("ListParticipants() error: %v", err)
			}
			if len(participants) != 3 {
				t.Fatalf("participants = %v, want 3 rows", participants)
			}
			// Insertion order is preserved for deterministic rendering.
			if participants[0].UserID != "u1" || participants[0].Role != "tank0" {
				t.Errorf("first row = %+v, want u1 tank0", participants[0])
			}

			// Role replacement keeps the leader row.
			if err := repo.RemoveNonLeaderRoles(eventID, "u1"); err != nil {
				t.Fatalf("RemoveNonLeaderRoles() error: %v", err)
			}
			participants, _ = repo.ListParticipants(eventID)
			for _, p := range participants {
				if p.UserID == "u1" && p.Role != models.RoleLeader {
					t.Errorf("u1 still holds %s after RemoveNonLeaderRoles", p.Role)
				}
			}

			// Clear removes everything, leader included.
			if err := repo.ClearUser(eventID, "u1"); err != nil {
				t.Fatalf("ClearUser() error: %v", err)
			}
			participants, _ = repo.ListParticipants(eventID)
			if len(participants) != 1 || participants[0].UserID != "u2" {
				t.Errorf("participants after clear = %v, want only u2", participants)
			}
		})
	}
}

func TestFactory(t *testing.T) {
	repo, err := New("memory", "")
	if err != nil {
		t.Fatalf("New(memory) error: %v", err)
	}
	if _, ok := repo.(*InMemoryStorage); !ok {
		t.Fatalf("New(memory) = %T, want *InMemoryStorage", repo)
	}

	repo, err = New("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("New(sqlite) error: %v", err)
	}
	repo.Close()

	if _, err := New("mongodb", ""); err == nil {
		t.Fatal("New(mongodb) succeeded, want error")
	}
}

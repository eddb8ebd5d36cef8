package storage

import (
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/utils"

	_ "modernc.org/sqlite"
)

// SQLiteStorage is the default event store, one file on disk.
type SQLiteStorage struct {
	db *sql.DB
}

const createEventTable = `
CREATE TABLE IF NOT EXISTS event(
	event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT    NOT NULL,
	event_name TEXT    NOT NULL,
	trigger_at TEXT    NOT NULL,
	channel_id TEXT,
	message_id TEXT,
	created_at TEXT,
	is_done    INTEGER NOT NULL DEFAULT 0
)`

const createParticipantTable = `
CREATE TABLE IF NOT EXISTS participant(
	event_id INTEGER NOT NULL,
	role     TEXT    NOT NULL,
	user_id  TEXT    NOT NULL,
	FOREIGN KEY (event_id) REFERENCES event (event_id),
	UNIQUE(event_id, role, user_id)
)`

// NewSQLiteStorage opens (creating if needed) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// modernc.org/sqlite allows a single writer; one connection keeps the
	// driver from returning SQLITE_BUSY under interleaved sessions.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{createEventTable, createParticipantTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	utils.Info("SQLite storage ready at %s", path)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) CreateEvent(eventType models.EventType, name string, triggerAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO event (event_type, event_name, trigger_at, is_done)
		 VALUES (?, ?, ?, 0)`,
		string(eventType), name, formatTime(triggerAt),
	)
	if err != nil {
		return 0, apperrors.NewStorageError("CREATE_EVENT_FAILED", "failed to insert event", err)
	}

	eventID, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.NewStorageError("CREATE_EVENT_FAILED", "failed to read new event id", err)
	}
	return eventID, nil
}

func (s *SQLiteStorage) BindMessage(eventID int64, channelID, messageID string, createdAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE event
		    SET channel_id = ?, message_id = ?, created_at = ?
		  WHERE event_id = ?`,
		channelID, messageID, formatTime(createdAt), eventID,
	)
	if err != nil {
		return apperrors.NewStorageError("BIND_MESSAGE_FAILED", "failed to bind roster message", err)
	}
	return nil
}

func (s *SQLiteStorage) GetEvent(eventID int64) (*models.Event, error) {
	row := s.db.QueryRow(
		`SELECT event_id, event_type, event_name, trigger_at,
		        channel_id, message_id, created_at, is_done
		   FROM event
		  WHERE event_id = ?`,
		eventID,
	)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStorageError("EVENT_NOT_FOUND",
			fmt.Sprintf("no event with id %d", eventID), err)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("GET_EVENT_FAILED", "failed to query event", err)
	}
	return event, nil
}

func (s *SQLiteStorage) ListActiveEvents(now time.Time) ([]models.Event, error) {
	rows, err := s.db.Query(
		`SELECT event_id, event_type, event_name, trigger_at,
		        channel_id, message_id, created_at, is_done
		   FROM event
		  WHERE trigger_at > ?
		    AND is_done = 0
		  ORDER BY event_id`,
		formatTime(now),
	)
	if err != nil {
		return nil, apperrors.NewStorageError("LIST_EVENTS_FAILED", "failed to query active events", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("LIST_EVENTS_FAILED", "failed to scan event row", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("LIST_EVENTS_FAILED", "failed to iterate event rows", err)
	}
	return events, nil
}

func (s *SQLiteStorage) MarkDone(eventID int64) error {
	_, err := s.db.Exec(`UPDATE event SET is_done = 1 WHERE event_id = ?`, eventID)
	if err != nil {
		return apperrors.NewStorageError("MARK_DONE_FAILED", "failed to mark event done", err)
	}
	return nil
}

func (s *SQLiteStorage) EditField(eventID int64, field, value string) error {
	switch field {
	case "trigger_at":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return apperrors.NewInvalidTimeError(value)
		}
		value = formatTime(t)
		_, err = s.db.Exec(`UPDATE event SET trigger_at = ? WHERE event_id = ?`, value, eventID)
		if err != nil {
			return apperrors.NewStorageError("EDIT_FIELD_FAILED", "failed to update trigger_at", err)
		}
	case "event_name":
		_, err := s.db.Exec(`UPDATE event SET event_name = ? WHERE event_id = ?`, value, eventID)
		if err != nil {
			return apperrors.NewStorageError("EDIT_FIELD_FAILED", "failed to update event_name", err)
		}
	default:
		// event_type in particular is fixed at creation; changing the game
		// type would invalidate the role template.
		return apperrors.NewValidationError("FIELD_NOT_EDITABLE",
			fmt.Sprintf("field %q is not editable", field),
			fmt.Sprintf("Field `%s` cannot be edited.", field))
	}
	return nil
}

func (s *SQLiteStorage) AddRole(eventID int64, userID, role string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO participant (event_id, role, user_id)
		 VALUES (?, ?, ?)`,
		eventID, role, userID,
	)
	if err != nil {
		return apperrors.NewStorageError("ADD_ROLE_FAILED", "failed to insert participant role", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearUser(eventID int64, userID string) error {
	_, err := s.db.Exec(
		`DELETE FROM participant WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return apperrors.NewStorageError("CLEAR_USER_FAILED", "failed to clear participant", err)
	}
	return nil
}

func (s *SQLiteStorage) RemoveNonLeaderRoles(eventID int64, userID string) error {
	_, err := s.db.Exec(
		`DELETE FROM participant
		  WHERE event_id = ? AND user_id = ? AND role != ?`,
		eventID, userID, models.RoleLeader,
	)
	if err != nil {
		return apperrors.NewStorageError("REMOVE_ROLE_FAILED", "failed to remove participant roles", err)
	}
	return nil
}

func (s *SQLiteStorage) ListParticipants(eventID int64) ([]models.Participant, error) {
	rows, err := s.db.Query(
		`SELECT event_id, role, user_id
		   FROM participant
		  WHERE event_id = ?
		  ORDER BY rowid`,
		eventID,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("LIST_PARTICIPANTS_FAILED", "failed to query participants", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.EventID, &p.Role, &p.UserID); err != nil {
			return nil, apperrors.NewStorageError("LIST_PARTICIPANTS_FAILED", "failed to scan participant row", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("LIST_PARTICIPANTS_FAILED", "failed to iterate participant rows", err)
	}
	return participants, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event     models.Event
		eventType string
		triggerAt string
		channelID sql.NullString
		messageID sql.NullString
		createdAt sql.NullString
		isDone    int
	)

	err := row.Scan(&event.ID, &eventType, &event.Name, &triggerAt,
		&channelID, &messageID, &createdAt, &isDone)
	if err != nil {
		return nil, err
	}

	event.Type = models.EventType(eventType)
	event.ChannelID = channelID.String
	event.MessageID = messageID.String
	event.IsDone = isDone != 0

	if event.TriggerAt, err = time.Parse(time.RFC3339Nano, triggerAt); err != nil {
		return nil, fmt.Errorf("bad trigger_at %q: %w", triggerAt, err)
	}
	if createdAt.Valid {
		if event.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt.String); err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", createdAt.String, err)
		}
	}
	return &event, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

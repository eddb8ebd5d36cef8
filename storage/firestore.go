package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Snaptraks/FateBot/constants"
	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/utils"
)

// FirestoreStorage keeps events in Firestore, for hosted deployments
// where the bot has no persistent disk.
type FirestoreStorage struct {
	client         *firestore.Client
	ctx            context.Context
	app            *firebase.App
	reconnectMutex sync.Mutex
}

const (
	maxReconnectAttempts = 3
	reconnectDelay       = 2 * time.Second
)

type eventDoc struct {
	EventType string    `firestore:"eventType"`
	EventName string    `firestore:"eventName"`
	TriggerAt time.Time `firestore:"triggerAt"`
	ChannelID string    `firestore:"channelId"`
	MessageID string    `firestore:"messageId"`
	CreatedAt time.Time `firestore:"createdAt"`
	IsDone    bool      `firestore:"isDone"`
}

type participantDoc struct {
	Role     string    `firestore:"role"`
	UserID   string    `firestore:"userId"`
	JoinedAt time.Time `firestore:"joinedAt"`
}

// NewFirestoreStorage connects to Firestore using the credentials JSON
// from the environment.
func NewFirestoreStorage() (*FirestoreStorage, error) {
	utils.Info("Initializing Firestore storage")
	ctx := context.Background()

	creds := os.Getenv(constants.EnvFirebaseCreds)
	if creds == "" {
		return nil, fmt.Errorf("%s environment variable not set", constants.EnvFirebaseCreds)
	}

	opt := option.WithCredentialsJSON([]byte(creds))

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	utils.Info("Firestore storage initialized successfully")
	return &FirestoreStorage{
		client: client,
		ctx:    ctx,
		app:    app,
	}, nil
}

// GetClient exposes the Firestore client for health checks.
func (s *FirestoreStorage) GetClient() interface{} {
	return s.client
}

func (s *FirestoreStorage) eventRef(eventID int64) *firestore.DocumentRef {
	return s.client.Collection("events").Doc(strconv.FormatInt(eventID, 10))
}

func (s *FirestoreStorage) CreateEvent(eventType models.EventType, name string, triggerAt time.Time) (int64, error) {
	var eventID int64

	err := s.executeWithRetry(func() error {
		return s.client.RunTransaction(s.ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			counter := s.client.Collection("counters").Doc("events")

			next := int64(1)
			snap, err := tx.Get(counter)
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			if err == nil {
				value, err := snap.DataAt("next")
				if err != nil {
					return err
				}
				next = value.(int64)
			}

			if err := tx.Set(counter, map[string]interface{}{"next": next + 1}); err != nil {
				return err
			}

			eventID = next
			return tx.Set(s.eventRef(next), eventDoc{
				EventType: string(eventType),
				EventName: name,
				TriggerAt: triggerAt.UTC(),
			})
		})
	})
	if err != nil {
		return 0, apperrors.NewStorageError("CREATE_EVENT_FAILED", "failed to insert event", err)
	}
	return eventID, nil
}

func (s *FirestoreStorage) BindMessage(eventID int64, channelID, messageID string, createdAt time.Time) error {
	err := s.executeWithRetry(func() error {
		_, err := s.eventRef(eventID).Update(s.ctx, []firestore.Update{
			{Path: "channelId", Value: channelID},
			{Path: "messageId", Value: messageID},
			{Path: "createdAt", Value: createdAt.UTC()},
		})
		return err
	})
	if err != nil {
		return apperrors.NewStorageError("BIND_MESSAGE_FAILED", "failed to bind roster message", err)
	}
	return nil
}

func (s *FirestoreStorage) GetEvent(eventID int64) (*models.Event, error) {
	var event *models.Event

	err := s.executeWithRetry(func() error {
		snap, err := s.eventRef(eventID).Get(s.ctx)
		if err != nil {
			return err
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		event = doc.toModel(eventID)
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperrors.NewStorageError("EVENT_NOT_FOUND",
				fmt.Sprintf("no event with id %d", eventID), err)
		}
		return nil, apperrors.NewStorageError("GET_EVENT_FAILED", "failed to query event", err)
	}
	return event, nil
}

func (s *FirestoreStorage) ListActiveEvents(now time.Time) ([]models.Event, error) {
	var events []models.Event

	err := s.executeWithRetry(func() error {
		events = events[:0]

		iter := s.client.Collection("events").
			Where("isDone", "==", false).
			Where("triggerAt", ">", now.UTC()).
			Documents(s.ctx)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}

			eventID, err := strconv.ParseInt(snap.Ref.ID, 10, 64)
			if err != nil {
				utils.Warn("Skipping event document with non-numeric id %q", snap.Ref.ID)
				continue
			}

			var doc eventDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			events = append(events, *doc.toModel(eventID))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("LIST_EVENTS_FAILED", "failed to query active events", err)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *FirestoreStorage) MarkDone(eventID int64) error {
	err := s.executeWithRetry(func() error {
		_, err := s.eventRef(eventID).Update(s.ctx, []firestore.Update{
			{Path: "isDone", Value: true},
		})
		return err
	})
	if err != nil {
		return apperrors.NewStorageError("MARK_DONE_FAILED", "failed to mark event done", err)
	}
	return nil
}

func (s *FirestoreStorage) EditField(eventID int64, field, value string) error {
	var update firestore.Update

	switch field {
	case "trigger_at":
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return apperrors.NewInvalidTimeError(value)
		}
		update = firestore.Update{Path: "triggerAt", Value: t.UTC()}
	case "event_name":
		update = firestore.Update{Path: "eventName", Value: value}
	default:
		return apperrors.NewValidationError("FIELD_NOT_EDITABLE",
			fmt.Sprintf("field %q is not editable", field),
			fmt.Sprintf("Field `%s` cannot be edited.", field))
	}

	err := s.executeWithRetry(func() error {
		_, err := s.eventRef(eventID).Update(s.ctx, []firestore.Update{update})
		return err
	})
	if err != nil {
		return apperrors.NewStorageError("EDIT_FIELD_FAILED", "failed to update event field", err)
	}
	return nil
}

func (s *FirestoreStorage) AddRole(eventID int64, userID, role string) error {
	err := s.executeWithRetry(func() error {
		// Document ID encodes (role, user) so duplicate inserts collide,
		// mirroring the UNIQUE(event_id, role, user_id) constraint.
		ref := s.eventRef(eventID).Collection("participants").Doc(role + "_" + userID)
		_, err := ref.Create(s.ctx, participantDoc{
			Role:     role,
			UserID:   userID,
			JoinedAt: time.Now().UTC(),
		})
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return err
	})
	if err != nil {
		return apperrors.NewStorageError("ADD_ROLE_FAILED", "failed to insert participant role", err)
	}
	return nil
}

func (s *FirestoreStorage) ClearUser(eventID int64, userID string) error {
	if err := s.deleteUserRoles(eventID, userID, true); err != nil {
		return apperrors.NewStorageError("CLEAR_USER_FAILED", "failed to clear participant", err)
	}
	return nil
}

func (s *FirestoreStorage) RemoveNonLeaderRoles(eventID int64, userID string) error {
	if err := s.deleteUserRoles(eventID, userID, false); err != nil {
		return apperrors.NewStorageError("REMOVE_ROLE_FAILED", "failed to remove participant roles", err)
	}
	return nil
}

// deleteUserRoles removes a user's role documents in one transaction,
// keeping the leader row unless includeLeader is set.
func (s *FirestoreStorage) deleteUserRoles(eventID int64, userID string, includeLeader bool) error {
	return s.executeWithRetry(func() error {
		return s.client.RunTransaction(s.ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			query := s.eventRef(eventID).Collection("participants").
				Where("userId", "==", userID)

			snaps, err := tx.Documents(query).GetAll()
			if err != nil {
				return err
			}

			for _, snap := range snaps {
				var doc participantDoc
				if err := snap.DataTo(&doc); err != nil {
					return err
				}
				if !includeLeader && doc.Role == models.RoleLeader {
					continue
				}
				if err := tx.Delete(snap.Ref); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (s *FirestoreStorage) ListParticipants(eventID int64) ([]models.Participant, error) {
	var participants []models.Participant

	err := s.executeWithRetry(func() error {
		participants = participants[:0]

		iter := s.eventRef(eventID).Collection("participants").
			OrderBy("joinedAt", firestore.Asc).
			Documents(s.ctx)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}

			var doc participantDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			participants = append(participants, models.Participant{
				EventID: eventID,
				UserID:  doc.UserID,
				Role:    doc.Role,
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("LIST_PARTICIPANTS_FAILED", "failed to query participants", err)
	}
	return participants, nil
}

func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}

func (doc eventDoc) toModel(eventID int64) *models.Event {
	return &models.Event{
		ID:        eventID,
		Type:      models.EventType(doc.EventType),
		Name:      doc.EventName,
		TriggerAt: doc.TriggerAt,
		ChannelID: doc.ChannelID,
		MessageID: doc.MessageID,
		CreatedAt: doc.CreatedAt,
		IsDone:    doc.IsDone,
	}
}

// executeWithRetry runs a Firestore operation, reconnecting once when the
// failure looks like a dropped connection.
func (s *FirestoreStorage) executeWithRetry(operation func() error) error {
	err := operation()
	if err != nil && isFirestoreConnectionError(err) {
		utils.Warn("Detected Firestore connection error, attempting reconnection: %v", err)
		if reconnectErr := s.reconnectFirestore(); reconnectErr != nil {
			return fmt.Errorf("operation failed and reconnection failed: %v (original: %v)", reconnectErr, err)
		}
		return operation()
	}
	return err
}

func (s *FirestoreStorage) reconnectFirestore() error {
	s.reconnectMutex.Lock()
	defer s.reconnectMutex.Unlock()

	utils.Warn("Attempting to reconnect to Firestore")

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if s.client != nil {
			s.client.Close()
		}

		newClient, err := s.app.Firestore(s.ctx)
		if err != nil {
			utils.Warn("Firestore reconnection attempt %d/%d failed: %v", attempt, maxReconnectAttempts, err)
			if attempt < maxReconnectAttempts {
				time.Sleep(reconnectDelay * time.Duration(attempt))
			}
			continue
		}

		s.client = newClient
		utils.Info("Successfully reconnected to Firestore on attempt %d", attempt)
		return nil
	}

	return fmt.Errorf("failed to reconnect to Firestore after %d attempts", maxReconnectAttempts)
}

func isFirestoreConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "deadline exceeded")
}

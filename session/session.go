package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Snaptraks/FateBot/catalog"
	"github.com/Snaptraks/FateBot/constants"
	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/interfaces"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/utils"
)

// State is the lifecycle phase of a registration session.
type State int

const (
	// StatePendingRender: the event row exists but the roster message has
	// not been confirmed yet. Actions are not accepted.
	StatePendingRender State = iota
	// StateActive: the roster is live and actions mutate it.
	StateActive
	// StateFinalizing: the trigger fired; the closing sequence is running.
	StateFinalizing
	// StateClosed: terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePendingRender:
		return "PENDING_RENDER"
	case StateActive:
		return "ACTIVE"
	case StateFinalizing:
		return "FINALIZING"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// AttendanceExporter records a finalized roster in an external sheet.
// A nil exporter disables the export.
type AttendanceExporter interface {
	Append(eventTitle string, triggerAt time.Time, participants []models.Participant) error
}

// EventMetrics receives counters about session activity. Nil disables.
type EventMetrics interface {
	SendEventMetric(kind string, count int)
}

// Deps carries everything a session needs besides the event itself.
type Deps struct {
	Repo     interfaces.EventRepository
	Gateway  interfaces.ChatGateway
	Catalog  *catalog.Catalog
	Exporter AttendanceExporter
	Metrics  EventMetrics
	// OnClose is called exactly once, after the session reaches CLOSED.
	OnClose func(eventID int64)
}

// Session owns the live registration state for one event. All mutations
// are serialized on one mutex, and the roster re-render happens inside
// the same critical section as the mutation it reflects, so the embed
// never shows a state that was later reordered.
type Session struct {
	mu       sync.Mutex
	state    State
	event    *models.Event
	template *catalog.Template
	timer    *EventTimer
	deps     Deps
}

// New creates a session in PENDING_RENDER for an event that already has
// a storage row.
func New(event *models.Event, tpl *catalog.Template, deps Deps) *Session {
	return &Session{
		state:    StatePendingRender,
		event:    event,
		template: tpl,
		deps:     deps,
	}
}

// EventID returns the session's event ID. Immutable, no lock needed.
func (s *Session) EventID() int64 {
	return s.event.ID
}

// Event returns a snapshot of the event row.
func (s *Session) Event() models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.event
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start publishes the roster in channelID: placeholder message first, so
// the message ID is durably bound before any button can be pressed, then
// the real embed, the reaction buttons and the trigger timer.
func (s *Session) Start(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePendingRender {
		return fmt.Errorf("cannot start session for event %d in state %s", s.event.ID, s.state)
	}

	messageID, err := s.deps.Gateway.SendMessage(channelID, constants.MsgPlaceholder)
	if err != nil {
		return fmt.Errorf("failed to send roster placeholder: %w", err)
	}

	if err := s.deps.Repo.BindMessage(s.event.ID, channelID, messageID, time.Now().UTC()); err != nil {
		return err
	}
	s.event.ChannelID = channelID
	s.event.MessageID = messageID

	if err := s.renderLocked(); err != nil {
		return err
	}

	for _, role := range constants.ButtonOrder {
		if role != models.RoleLeader && role != models.RoleFill && role != "clear" && !s.template.Offered(role) {
			continue
		}
		if err := s.deps.Gateway.AddReaction(channelID, messageID, constants.Buttons[role]); err != nil {
			// A missing button degrades the menu but the roster still works.
			utils.Warn("Failed to seed %s reaction on event %d: %v", role, s.event.ID, err)
		}
	}

	s.armTimerLocked()
	s.state = StateActive
	utils.Info("Event %d (%s %s) active in channel %s, triggers at %s",
		s.event.ID, s.event.Type, s.event.Name, channelID, utils.FormatDateTime(s.event.TriggerAt))
	return nil
}

// Resume rebuilds a live session from a persisted event after a restart.
// The roster message must still exist; the embed is re-rendered from
// storage so button presses missed while offline simply disappear.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePendingRender {
		return fmt.Errorf("cannot resume session for event %d in state %s", s.event.ID, s.state)
	}
	if !s.event.Bound() {
		return fmt.Errorf("event %d has no roster message to resume", s.event.ID)
	}

	if err := s.deps.Gateway.FetchMessage(s.event.ChannelID, s.event.MessageID); err != nil {
		return fmt.Errorf("roster message for event %d is gone: %w", s.event.ID, err)
	}

	if err := s.renderLocked(); err != nil {
		return err
	}

	// An overdue trigger fires the timer immediately.
	s.armTimerLocked()
	s.state = StateActive
	utils.Info("Resumed event %d (%s %s), triggers at %s",
		s.event.ID, s.event.Type, s.event.Name, utils.FormatDateTime(s.event.TriggerAt))
	return nil
}

// Apply dispatches one action against the roster. Actions arriving
// outside ACTIVE are rejected with an event-not-running error; reaction
// callers drop that silently.
func (s *Session) Apply(action models.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		utils.Debug("Dropping %s action for event %d in state %s", action.Kind(), s.event.ID, s.state)
		return apperrors.NewEventNotRunningError(s.event.ID)
	}

	var (
		changed bool
		err     error
	)
	switch a := action.(type) {
	case models.RoleAction:
		changed, err = s.applyRole(a.UserID, a.Role)
	case models.LeaderAction:
		changed, err = s.applyLeader(a.UserID)
	case models.ClearAction:
		err = s.deps.Repo.ClearUser(s.event.ID, a.UserID)
		changed = err == nil
	case models.EditAction:
		changed, err = s.applyEdit(a.Field, a.Value)
	default:
		err = fmt.Errorf("unknown action kind %q", action.Kind())
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.SendEventMetric(action.Kind(), 1)
	}
	return s.renderLocked()
}

// applyRole implements the capacity rules for role and fill buttons:
// a role press replaces the user's previous role; a press on a full role
// is a no-op for users already on the roster and a fill signup otherwise.
func (s *Session) applyRole(userID, role string) (bool, error) {
	if role != models.RoleFill && !s.template.Offered(role) {
		return false, apperrors.NewInvalidRoleError(role)
	}

	participants, err := s.deps.Repo.ListParticipants(s.event.ID)
	if err != nil {
		return false, err
	}

	var holders int
	var hasTarget, hasAnyRole bool
	for _, p := range participants {
		if p.Role == role {
			holders++
			if p.UserID == userID {
				hasTarget = true
			}
		}
		if p.UserID == userID && p.Role != models.RoleLeader {
			hasAnyRole = true
		}
	}

	if hasTarget {
		return false, nil
	}

	target := role
	if role != models.RoleFill {
		slot, _ := s.template.Role(role)
		if holders >= slot.Capacity {
			if hasAnyRole {
				// Full slot and the user is already somewhere on the
				// roster: leave them where they are.
				return false, nil
			}
			target = models.RoleFill
		}
	}

	if err := s.deps.Repo.RemoveNonLeaderRoles(s.event.ID, userID); err != nil {
		return false, err
	}
	if err := s.deps.Repo.AddRole(s.event.ID, userID, target); err != nil {
		return false, err
	}
	return true, nil
}

// applyLeader grants the leader designation: at most one per event, only
// for users already on the roster, kept alongside their capacity role.
func (s *Session) applyLeader(userID string) (bool, error) {
	participants, err := s.deps.Repo.ListParticipants(s.event.ID)
	if err != nil {
		return false, err
	}

	var registered bool
	for _, p := range participants {
		if p.Role == models.RoleLeader {
			// Leader slot already taken (possibly by this user).
			return false, nil
		}
		if p.UserID == userID {
			registered = true
		}
	}
	if !registered {
		utils.Debug("Ignoring leader request from unregistered user %s on event %d", userID, s.event.ID)
		return false, nil
	}

	if err := s.deps.Repo.AddRole(s.event.ID, userID, models.RoleLeader); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) applyEdit(field, value string) (bool, error) {
	switch field {
	case "trigger_at":
		t, err := utils.ParseEventTime(value)
		if err != nil {
			return false, err
		}
		if err := s.deps.Repo.EditField(s.event.ID, field, t.Format(time.RFC3339Nano)); err != nil {
			return false, err
		}
		s.event.TriggerAt = t
		if !s.timer.Rearm(t) {
			return false, apperrors.NewEventNotRunningError(s.event.ID)
		}
		return true, nil

	case "event_name":
		tpl, err := s.deps.Catalog.Lookup(s.event.Type, value)
		if err != nil {
			return false, err
		}
		if err := s.deps.Repo.EditField(s.event.ID, field, value); err != nil {
			return false, err
		}
		// A template swap may leave roles over their new capacity; the
		// roster keeps the stale signups and renders the overflow as is.
		s.event.Name = value
		s.template = tpl
		return true, nil

	default:
		return false, apperrors.NewValidationError("FIELD_NOT_EDITABLE",
			fmt.Sprintf("field %q is not editable", field),
			fmt.Sprintf("Field `%s` cannot be edited.", field))
	}
}

// Cancel stops the session before its trigger. When the timer callback
// has already started the cancel loses the race and reports the event as
// not running.
func (s *Session) Cancel(notify, deleteMessage bool) error {
	s.mu.Lock()

	if s.state != StateActive && s.state != StatePendingRender {
		s.mu.Unlock()
		return apperrors.NewEventNotRunningError(s.event.ID)
	}
	if s.timer != nil && !s.timer.Stop() {
		s.mu.Unlock()
		return apperrors.NewEventNotRunningError(s.event.ID)
	}
	s.state = StateClosed

	if err := s.deps.Repo.MarkDone(s.event.ID); err != nil {
		utils.Error("Failed to mark cancelled event %d done: %v", s.event.ID, err)
	}
	if deleteMessage && s.event.Bound() {
		if err := s.deps.Gateway.DeleteMessage(s.event.ChannelID, s.event.MessageID); err != nil {
			utils.Warn("Failed to delete roster message for event %d: %v", s.event.ID, err)
		}
	}
	if notify && s.event.ChannelID != "" {
		text := fmt.Sprintf(constants.MsgEventCancelled, s.event.ID, s.event.Name)
		if _, err := s.deps.Gateway.SendMessage(s.event.ChannelID, text); err != nil {
			utils.Warn("Failed to send cancellation notice for event %d: %v", s.event.ID, err)
		}
	}

	eventID := s.event.ID
	s.mu.Unlock()

	utils.Info("Event %d cancelled", eventID)
	s.close(eventID)
	return nil
}

// finalize is the timer callback: ping the roster, mark the event done,
// export attendance, close. Failures past the state change are logged
// and skipped so the session always reaches CLOSED.
func (s *Session) finalize() {
	s.mu.Lock()

	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateFinalizing

	participants, err := s.deps.Repo.ListParticipants(s.event.ID)
	if err != nil {
		utils.Error("Failed to load participants finalizing event %d: %v", s.event.ID, err)
		participants = nil
	}

	text := fmt.Sprintf(constants.MsgEventTime, titleCase(string(s.event.Type)), mentionList(participants, s.deps.Gateway.MentionUser))
	if _, err := s.deps.Gateway.SendMessage(s.event.ChannelID, text); err != nil {
		utils.Error("Failed to send trigger ping for event %d: %v", s.event.ID, err)
	}

	if err := s.deps.Repo.MarkDone(s.event.ID); err != nil {
		utils.Error("Failed to mark event %d done: %v", s.event.ID, err)
	}

	if s.deps.Exporter != nil {
		if err := s.deps.Exporter.Append(s.template.Title, s.event.TriggerAt, participants); err != nil {
			utils.Warn("Attendance export failed for event %d: %v", s.event.ID, err)
		}
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.SendEventMetric("finalized", len(participants))
	}

	s.state = StateClosed
	eventID := s.event.ID
	s.mu.Unlock()

	utils.Info("Event %d finalized with %d signups", eventID, len(participants))
	s.close(eventID)
}

func (s *Session) close(eventID int64) {
	if s.deps.OnClose != nil {
		s.deps.OnClose(eventID)
	}
}

func (s *Session) armTimerLocked() {
	s.timer = NewEventTimer(s.event.TriggerAt, s.finalize)
}

// renderLocked redraws the roster embed from storage. Callers hold the
// session mutex.
func (s *Session) renderLocked() error {
	participants, err := s.deps.Repo.ListParticipants(s.event.ID)
	if err != nil {
		return err
	}

	embed := BuildEmbed(s.event, s.template, participants, s.deps.Gateway.MentionUser)
	return s.deps.Gateway.EditMessage(s.event.ChannelID, s.event.MessageID, "", embed)
}

// mentionList joins one mention per distinct participant, in the order
// they first signed up.
func mentionList(participants []models.Participant, mention func(string) string) string {
	seen := make(map[string]bool)
	var mentions []string
	for _, p := range participants {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		mentions = append(mentions, mention(p.UserID))
	}
	return strings.Join(mentions, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

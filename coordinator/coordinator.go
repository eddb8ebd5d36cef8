package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/Snaptraks/FateBot/catalog"
	"github.com/Snaptraks/FateBot/constants"
	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/interfaces"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/session"
	"github.com/Snaptraks/FateBot/utils"
)

// Deps carries the shared services sessions are built from.
type Deps struct {
	Repo     interfaces.EventRepository
	Gateway  interfaces.ChatGateway
	Catalog  *catalog.Catalog
	Exporter session.AttendanceExporter
	Metrics  session.EventMetrics
}

// Coordinator owns the registry of live registration sessions. It maps
// event IDs and roster message IDs to sessions and routes inbound
// commands and reactions to them.
type Coordinator struct {
	deps Deps

	mu        sync.Mutex
	sessions  map[int64]*session.Session
	byMessage map[string]int64
}

func New(deps Deps) *Coordinator {
	return &Coordinator{
		deps:      deps,
		sessions:  make(map[int64]*session.Session),
		byMessage: make(map[string]int64),
	}
}

// StartEvent creates a new event and publishes its roster in channelID.
// It returns the new event ID.
func (c *Coordinator) StartEvent(eventType models.EventType, name string, triggerAt time.Time, channelID string) (int64, error) {
	tpl, err := c.deps.Catalog.Lookup(eventType, name)
	if err != nil {
		return 0, err
	}

	eventID, err := c.deps.Repo.CreateEvent(eventType, name, triggerAt)
	if err != nil {
		return 0, err
	}

	event := &models.Event{
		ID:        eventID,
		Type:      eventType,
		Name:      name,
		TriggerAt: triggerAt.UTC(),
	}
	sess := session.New(event, tpl, c.sessionDeps())
	c.register(sess)

	if err := sess.Start(channelID); err != nil {
		// The row exists but the roster never went live; retire the event
		// so recovery does not resurrect a half-started session.
		c.remove(eventID)
		if markErr := c.deps.Repo.MarkDone(eventID); markErr != nil {
			utils.Error("Failed to retire half-started event %d: %v", eventID, markErr)
		}
		return 0, err
	}

	// The roster message ID only exists after Start.
	c.indexMessage(sess)
	return eventID, nil
}

// RecoverAll rebuilds sessions for every unfinished event in storage.
// Overdue events resume too; their timers fire immediately and run the
// normal finalization. One broken event never blocks the others.
func (c *Coordinator) RecoverAll() error {
	// The zero time makes the query return overdue events as well.
	events, err := c.deps.Repo.ListActiveEvents(time.Time{})
	if err != nil {
		return err
	}

	recovered := 0
	for i := range events {
		event := events[i]

		tpl, err := c.deps.Catalog.Lookup(event.Type, event.Name)
		if err != nil {
			utils.Error("Skipping event %d: template lookup failed: %v", event.ID, err)
			continue
		}

		sess := session.New(&event, tpl, c.sessionDeps())
		c.register(sess)
		if err := sess.Resume(); err != nil {
			utils.Error("Skipping event %d: %v", event.ID, err)
			c.remove(event.ID)
			continue
		}
		recovered++
	}

	utils.Info("Recovered %d of %d persisted events", recovered, len(events))
	return nil
}

// CancelEvent cancels a running event.
func (c *Coordinator) CancelEvent(eventID int64, notify, deleteMessage bool) error {
	sess, ok := c.lookup(eventID)
	if !ok {
		return apperrors.NewEventNotRunningError(eventID)
	}
	return sess.Cancel(notify, deleteMessage)
}

// RouteAction applies an action to the session for eventID.
func (c *Coordinator) RouteAction(eventID int64, action models.Action) error {
	sess, ok := c.lookup(eventID)
	if !ok {
		return apperrors.NewEventNotRunningError(eventID)
	}
	return sess.Apply(action)
}

// RouteReaction translates a reaction on a roster message into an action.
// It reports whether the press was consumed; reactions on non-roster
// messages and unknown emojis are ignored and left alone.
func (c *Coordinator) RouteReaction(messageID, userID, emoji string) bool {
	c.mu.Lock()
	eventID, ok := c.byMessage[messageID]
	var sess *session.Session
	if ok {
		sess = c.sessions[eventID]
	}
	c.mu.Unlock()

	if sess == nil {
		return false
	}

	role, ok := constants.RoleForEmoji(emoji)
	if !ok {
		return false
	}

	var action models.Action
	switch role {
	case models.RoleLeader:
		action = models.LeaderAction{UserID: userID}
	case "clear":
		action = models.ClearAction{UserID: userID}
	default:
		action = models.RoleAction{UserID: userID, Role: role}
	}

	if err := sess.Apply(action); err != nil {
		// Late presses against a closing session are expected noise.
		if !apperrors.IsType(err, apperrors.TypeEventNotRunning) {
			utils.Warn("Reaction %s from user %s on event %d failed: %v", emoji, userID, eventID, err)
		}
	}
	return true
}

// ActiveEventIDs lists the events with a live session, ascending.
func (c *Coordinator) ActiveEventIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int64, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Shutdown stops every session timer without closing the events, so the
// next start can recover them.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.sessions {
		delete(c.byMessage, c.sessions[id].Event().MessageID)
		delete(c.sessions, id)
	}
}

func (c *Coordinator) sessionDeps() session.Deps {
	return session.Deps{
		Repo:     c.deps.Repo,
		Gateway:  c.deps.Gateway,
		Catalog:  c.deps.Catalog,
		Exporter: c.deps.Exporter,
		Metrics:  c.deps.Metrics,
		OnClose:  c.remove,
	}
}

func (c *Coordinator) register(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[sess.EventID()] = sess
	if messageID := sess.Event().MessageID; messageID != "" {
		c.byMessage[messageID] = sess.EventID()
	}
}

func (c *Coordinator) indexMessage(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if messageID := sess.Event().MessageID; messageID != "" {
		c.byMessage[messageID] = sess.EventID()
	}
}

func (c *Coordinator) lookup(eventID int64) (*session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[eventID]
	return sess, ok
}

func (c *Coordinator) remove(eventID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[eventID]; !ok {
		return
	}
	delete(c.sessions, eventID)
	for messageID, id := range c.byMessage {
		if id == eventID {
			delete(c.byMessage, messageID)
		}
	}
}

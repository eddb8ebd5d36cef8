package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Snaptraks/FateBot/catalog"
	apperrors "github.com/Snaptraks/FateBot/errors"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/storage"
)

// stubGateway records outbound calls instead of hitting Discord.
type stubGateway struct {
	mu       sync.Mutex
	nextID   int
	sent     []string
	embeds   map[string]*discordgo.MessageEmbed
	deleted  []string
	fetchErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{embeds: make(map[string]*discordgo.MessageEmbed)}
}

func (g *stubGateway) SendMessage(channelID, content string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.sent = append(g.sent, content)
	return fmt.Sprintf("msg-%d", g.nextID), nil
}

func (g *stubGateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := fmt.Sprintf("msg-%d", g.nextID)
	g.embeds[id] = embed
	return id, nil
}

func (g *stubGateway) EditMessage(channelID, messageID, content string, embed *discordgo.MessageEmbed) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.embeds[messageID] = embed
	return nil
}

func (g *stubGateway) DeleteMessage(channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *stubGateway) AddReaction(channelID, messageID, emoji string) error { return nil }

func (g *stubGateway) FetchMessage(channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchErr
}

func (g *stubGateway) UserName(userID string) (string, error) { return "user-" + userID, nil }

func (g *stubGateway) MentionUser(userID string) string { return "<@" + userID + ">" }

func (g *stubGateway) BotUserID() string { return "bot" }

func (g *stubGateway) WaitUntilReady(time.Duration) error { return nil }

func (g *stubGateway) lastSent() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return ""
	}
	return g.sent[len(g.sent)-1]
}

func (g *stubGateway) lastEmbed(messageID string) *discordgo.MessageEmbed {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.embeds[messageID]
}

type testFixture struct {
	session *Session
	repo    *storage.InMemoryStorage
	gateway *stubGateway
	closed  chan int64
}

func newTestSession(t *testing.T, eventType models.EventType, name string, triggerAt time.Time) *testFixture {
	t.Helper()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	tpl, err := cat.Lookup(eventType, name)
	if err != nil {
		t.Fatalf("catalog lookup error: %v", err)
	}

	repo := storage.NewInMemoryStorage()
	eventID, err := repo.CreateEvent(eventType, name, triggerAt)
	if err != nil {
		t.Fatalf("CreateEvent() error: %v", err)
	}

	gw := newStubGateway()
	closed := make(chan int64, 1)

	event := &models.Event{ID: eventID, Type: eventType, Name: name, TriggerAt: triggerAt.UTC()}
	sess := New(event, tpl, Deps{
		Repo:    repo,
		Gateway: gw,
		Catalog: cat,
		OnClose: func(id int64) { closed <- id },
	})

	return &testFixture{session: sess, repo: repo, gateway: gw, closed: closed}
}

func (f *testFixture) start(t *testing.T) {
	t.Helper()
	if err := f.session.Start("channel-1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := f.session.State(); got != StateActive {
		t.Fatalf("state after Start = %s, want %s", got, StateActive)
	}
}

func (f *testFixture) roles(t *testing.T, userID string) []string {
	t.Helper()
	participants, err := f.repo.ListParticipants(f.session.EventID())
	if err != nil {
		t.Fatalf("ListParticipants() error: %v", err)
	}
	var roles []string
	for _, p := range participants {
		if p.UserID == userID {
			roles = append(roles, p.Role)
		}
	}
	return roles
}

func farFuture() time.Time {
	return time.Now().UTC().Add(24 * time.Hour)
}

func TestApplyBeforeStartIsRejected(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())

	err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "dps0"})
	if !apperrors.IsType(err, apperrors.TypeEventNotRunning) {
		t.Fatalf("Apply() before Start error = %v, want event-not-running", err)
	}
}

func TestRoleAssignmentAndExclusivity(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "dps0"}); err != nil {
		t.Fatalf("Apply(dps0) error: %v", err)
	}
	if got := f.roles(t, "u1"); len(got) != 1 || got[0] != "dps0" {
		t.Fatalf("roles after dps0 = %v, want [dps0]", got)
	}

	// A second role press replaces the first.
	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "healer0"}); err != nil {
		t.Fatalf("Apply(healer0) error: %v", err)
	}
	if got := f.roles(t, "u1"); len(got) != 1 || got[0] != "healer0" {
		t.Fatalf("roles after healer0 = %v, want [healer0]", got)
	}

	// Pressing the role you already hold changes nothing.
	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "healer0"}); err != nil {
		t.Fatalf("Apply(healer0 again) error: %v", err)
	}
	if got := f.roles(t, "u1"); len(got) != 1 || got[0] != "healer0" {
		t.Fatalf("roles after repeat press = %v, want [healer0]", got)
	}
}

func TestFullRoleOverflowsToFill(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	// dps0 has capacity 4 in the 12-person template.
	for i := 1; i <= 4; i++ {
		user := fmt.Sprintf("u%d", i)
		if err := f.session.Apply(models.RoleAction{UserID: user, Role: "dps0"}); err != nil {
			t.Fatalf("Apply(dps0) for %s error: %v", user, err)
		}
	}

	for i := 5; i <= 6; i++ {
		user := fmt.Sprintf("u%d", i)
		if err := f.session.Apply(models.RoleAction{UserID: user, Role: "dps0"}); err != nil {
			t.Fatalf("Apply(dps0) for %s error: %v", user, err)
		}
		if got := f.roles(t, user); len(got) != 1 || got[0] != models.RoleFill {
			t.Fatalf("roles for %s = %v, want [fill]", user, got)
		}
	}

	for i := 1; i <= 4; i++ {
		user := fmt.Sprintf("u%d", i)
		if got := f.roles(t, user); len(got) != 1 || got[0] != "dps0" {
			t.Fatalf("roles for %s = %v, want [dps0]", user, got)
		}
	}
}

func TestConcurrentPressesNeverOversell(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	// Ten distinct users race for dps0's four slots; the session mutex
	// serializes them, so exactly four land and the rest overflow to fill.
	const users = 10
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			if err := f.session.Apply(models.RoleAction{UserID: user, Role: "dps0"}); err != nil {
				t.Errorf("Apply(dps0) for %s error: %v", user, err)
			}
		}(i)
	}
	wg.Wait()

	participants, err := f.repo.ListParticipants(f.session.EventID())
	if err != nil {
		t.Fatalf("ListParticipants() error: %v", err)
	}

	counts := make(map[string]int)
	seen := make(map[string]bool)
	for _, p := range participants {
		counts[p.Role]++
		if seen[p.UserID] {
			t.Errorf("user %s holds more than one role", p.UserID)
		}
		seen[p.UserID] = true
	}
	if counts["dps0"] != 4 {
		t.Errorf("dps0 holds %d users, want 4", counts["dps0"])
	}
	if counts[models.RoleFill] != users-4 {
		t.Errorf("fill holds %d users, want %d", counts[models.RoleFill], users-4)
	}
	if len(participants) != users {
		t.Errorf("roster holds %d rows, want %d", len(participants), users)
	}
}

func TestFullRolePressKeepsExistingRole(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	if err := f.session.Apply(models.RoleAction{UserID: "held", Role: "tank0"}); err != nil {
		t.Fatalf("Apply(tank0) error: %v", err)
	}
	if err := f.session.Apply(models.RoleAction{UserID: "other", Role: "healer0"}); err != nil {
		t.Fatalf("Apply(healer0) error: %v", err)
	}

	// healer0 (capacity 1) is now full; a press by someone already on the
	// roster leaves them where they are instead of bumping them to fill.
	if err := f.session.Apply(models.RoleAction{UserID: "held", Role: "healer0"}); err != nil {
		t.Fatalf("Apply(full healer0) error: %v", err)
	}
	if got := f.roles(t, "held"); len(got) != 1 || got[0] != "tank0" {
		t.Fatalf("roles for held = %v, want [tank0]", got)
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	f := newTestSession(t, models.EventTypeDungeon, "FG2", farFuture())
	f.start(t)

	// The 4-person template declares dps1 with capacity 0.
	err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "dps1"})
	if !apperrors.IsType(err, apperrors.TypeInvalidRole) {
		t.Fatalf("Apply(dps1) error = %v, want invalid-role", err)
	}
}

func TestLeaderRules(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	// Leader requires an existing signup.
	if err := f.session.Apply(models.LeaderAction{UserID: "u1"}); err != nil {
		t.Fatalf("Apply(leader, unregistered) error: %v", err)
	}
	if got := f.roles(t, "u1"); len(got) != 0 {
		t.Fatalf("roles for unregistered leader = %v, want none", got)
	}

	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "tank0"}); err != nil {
		t.Fatalf("Apply(tank0) error: %v", err)
	}
	if err := f.session.Apply(models.LeaderAction{UserID: "u1"}); err != nil {
		t.Fatalf("Apply(leader) error: %v", err)
	}

	// Leader is additive: the capacity role stays.
	got := f.roles(t, "u1")
	if len(got) != 2 {
		t.Fatalf("roles for leader = %v, want tank0 and leader", got)
	}

	// Only one leader per event.
	if err := f.session.Apply(models.RoleAction{UserID: "u2", Role: "healer0"}); err != nil {
		t.Fatalf("Apply(healer0) error: %v", err)
	}
	if err := f.session.Apply(models.LeaderAction{UserID: "u2"}); err != nil {
		t.Fatalf("Apply(leader, taken) error: %v", err)
	}
	for _, role := range f.roles(t, "u2") {
		if role == models.RoleLeader {
			t.Fatalf("second user became leader")
		}
	}
}

func TestLeaderSurvivesRoleChange(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	mustApply := func(a models.Action) {
		t.Helper()
		if err := f.session.Apply(a); err != nil {
			t.Fatalf("Apply(%s) error: %v", a.Kind(), err)
		}
	}
	mustApply(models.RoleAction{UserID: "u1", Role: "tank0"})
	mustApply(models.LeaderAction{UserID: "u1"})
	mustApply(models.RoleAction{UserID: "u1", Role: "dps0"})

	got := f.roles(t, "u1")
	hasLeader, hasDPS := false, false
	for _, role := range got {
		switch role {
		case models.RoleLeader:
			hasLeader = true
		case "dps0":
			hasDPS = true
		}
	}
	if !hasLeader || !hasDPS || len(got) != 2 {
		t.Fatalf("roles after role change = %v, want [leader dps0]", got)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "tank0"}); err != nil {
		t.Fatalf("Apply(tank0) error: %v", err)
	}
	if err := f.session.Apply(models.LeaderAction{UserID: "u1"}); err != nil {
		t.Fatalf("Apply(leader) error: %v", err)
	}
	if err := f.session.Apply(models.ClearAction{UserID: "u1"}); err != nil {
		t.Fatalf("Apply(clear) error: %v", err)
	}
	if got := f.roles(t, "u1"); len(got) != 0 {
		t.Fatalf("roles after clear = %v, want none", got)
	}
}

func TestEditTriggerAt(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	if err := f.session.Apply(models.EditAction{Field: "trigger_at", Value: "2030-06-01T20:00"}); err != nil {
		t.Fatalf("Apply(edit trigger_at) error: %v", err)
	}

	want := time.Date(2030, 6, 1, 20, 0, 0, 0, time.UTC)
	if got := f.session.Event().TriggerAt; !got.Equal(want) {
		t.Fatalf("TriggerAt after edit = %v, want %v", got, want)
	}

	stored, err := f.repo.GetEvent(f.session.EventID())
	if err != nil {
		t.Fatalf("GetEvent() error: %v", err)
	}
	if !stored.TriggerAt.Equal(want) {
		t.Fatalf("stored TriggerAt = %v, want %v", stored.TriggerAt, want)
	}
}

func TestEditEventName(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	if err := f.session.Apply(models.EditAction{Field: "event_name", Value: "nSS"}); err != nil {
		t.Fatalf("Apply(edit event_name) error: %v", err)
	}
	if got := f.session.Event().Name; got != "nSS" {
		t.Fatalf("Name after edit = %q, want nSS", got)
	}

	// An unknown name for the event's type is rejected before storage.
	err := f.session.Apply(models.EditAction{Field: "event_name", Value: "not-a-trial"})
	if !apperrors.IsType(err, apperrors.TypeUnknownEvent) {
		t.Fatalf("Apply(edit unknown name) error = %v, want unknown-event", err)
	}
	if got := f.session.Event().Name; got != "nSS" {
		t.Fatalf("Name after failed edit = %q, want nSS", got)
	}
}

func TestFinalizeOnTrigger(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", time.Now().UTC().Add(50*time.Millisecond))
	f.start(t)

	if err := f.session.Apply(models.RoleAction{UserID: "u1", Role: "tank0"}); err != nil {
		t.Fatalf("Apply(tank0) error: %v", err)
	}

	select {
	case id := <-f.closed:
		if id != f.session.EventID() {
			t.Fatalf("closed event %d, want %d", id, f.session.EventID())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session never finalized")
	}

	if got := f.session.State(); got != StateClosed {
		t.Fatalf("state after finalize = %s, want %s", got, StateClosed)
	}

	ping := f.gateway.lastSent()
	if !strings.Contains(ping, "Trial Time") || !strings.Contains(ping, "<@u1>") {
		t.Fatalf("trigger ping = %q, want mention of u1 in a Trial Time message", ping)
	}

	stored, err := f.repo.GetEvent(f.session.EventID())
	if err != nil {
		t.Fatalf("GetEvent() error: %v", err)
	}
	if !stored.IsDone {
		t.Fatal("event not marked done after finalize")
	}

	// Late actions after closing are dropped.
	err = f.session.Apply(models.RoleAction{UserID: "u9", Role: "dps0"})
	if !apperrors.IsType(err, apperrors.TypeEventNotRunning) {
		t.Fatalf("Apply() after close error = %v, want event-not-running", err)
	}
}

func TestCancel(t *testing.T) {
	f := newTestSession(t, models.EventTypeTrial, "nAA", farFuture())
	f.start(t)

	messageID := f.session.Event().MessageID
	if err := f.session.Cancel(true, true); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	select {
	case <-f.closed:
	case <-time.After(time.Second):
		t.Fatal("OnClose never called after cancel")
	}

	stored, err := f.repo.GetEvent(f.session.EventID())
	if err != nil {
		t.Fatalf("GetEvent() error: %v", err)
	}
	if !stored.IsDone {
		t.Fatal("event not marked done after cancel")
	}

	f.gateway.mu.Lock()
	deleted := len(f.gateway.deleted) == 1 && f.gateway.deleted[0] == messageID
	f.gateway.mu.Unlock()
	if !deleted {
		t.Fatal("roster message not deleted on cancel")
	}

	if got := f.gateway.lastSent(); !strings.Contains(got, "cancelled") {
		t.Fatalf("cancel notice = %q, want a cancellation message", got)
	}

	if err := f.session.Cancel(true, true); !apperrors.IsType(err, apperrors.TypeEventNotRunning) {
		t.Fatalf("second Cancel() error = %v, want event-not-running", err)
	}
}

func TestResume(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	tpl, _ := cat.Lookup(models.EventTypeTrial, "nAA")

	repo := storage.NewInMemoryStorage()
	eventID, _ := repo.CreateEvent(models.EventTypeTrial, "nAA", farFuture())
	if err := repo.BindMessage(eventID, "channel-1", "msg-1", time.Now().UTC()); err != nil {
		t.Fatalf("BindMessage() error: %v", err)
	}
	repo.AddRole(eventID, "u1", "tank0")

	gw := newStubGateway()
	stored, _ := repo.GetEvent(eventID)
	sess := New(stored, tpl, Deps{Repo: repo, Gateway: gw, Catalog: cat})

	if err := sess.Resume(); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if got := sess.State(); got != StateActive {
		t.Fatalf("state after Resume = %s, want %s", got, StateActive)
	}

	embed := gw.lastEmbed("msg-1")
	if embed == nil {
		t.Fatal("roster not re-rendered on resume")
	}

	// Resume edits the existing message; it never re-sends the placeholder.
	gw.mu.Lock()
	resent := len(gw.sent)
	gw.mu.Unlock()
	if resent != 0 {
		t.Fatalf("Resume() sent %d new messages, want 0", resent)
	}
}

func TestResumeFailsWhenMessageGone(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error: %v", err)
	}
	tpl, _ := cat.Lookup(models.EventTypeTrial, "nAA")

	repo := storage.NewInMemoryStorage()
	eventID, _ := repo.CreateEvent(models.EventTypeTrial, "nAA", farFuture())
	repo.BindMessage(eventID, "channel-1", "msg-1", time.Now().UTC())

	gw := newStubGateway()
	gw.fetchErr = fmt.Errorf("unknown message")
	stored, _ := repo.GetEvent(eventID)
	sess := New(stored, tpl, Deps{Repo: repo, Gateway: gw, Catalog: cat})

	if err := sess.Resume(); err == nil {
		t.Fatal("Resume() succeeded with a deleted roster message")
	}
}

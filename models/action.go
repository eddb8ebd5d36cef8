package models

// Action is an inbound request to mutate a running registration session.
// The concrete variants replace per-button handler callbacks with a tagged
// union dispatched in one place.
type Action interface {
	// Kind returns a short tag used for logging and metrics.
	Kind() string
}

// RoleAction requests a capacity role (or the fill bucket) for a user.
type RoleAction struct {
	UserID string
	Role   string
}

func (RoleAction) Kind() string { return "role" }

// LeaderAction requests the leader designation for a user.
type LeaderAction struct {
	UserID string
}

func (LeaderAction) Kind() string { return "leader" }

// ClearAction removes a user from the event entirely, leader included.
type ClearAction struct {
	UserID string
}

func (ClearAction) Kind() string { return "clear" }

// EditAction changes an event field administratively. Field is restricted
// to the storage allow-list (trigger_at, event_name).
type EditAction struct {
	Field string
	Value string
}

func (EditAction) Kind() string { return "edit" }

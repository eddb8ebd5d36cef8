package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/models"
)

// editPrompt tracks one in-flight interactive edit: first reply names
// the field, second reply carries the value.
type editPrompt struct {
	eventID   int64
	field     string
	startedAt time.Time
}

type editPromptStore struct {
	mu      sync.Mutex
	pending map[string]*editPrompt
}

func newEditPromptStore() *editPromptStore {
	return &editPromptStore{pending: make(map[string]*editPrompt)}
}

func promptKey(channelID, userID string) string {
	return channelID + ":" + userID
}

func (s *editPromptStore) start(channelID, userID string, eventID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[promptKey(channelID, userID)] = &editPrompt{
		eventID:   eventID,
		startedAt: time.Now(),
	}
}

type promptStep int

const (
	promptNone promptStep = iota
	promptExpired
	promptBadField
	promptAskValue
	promptApply
)

// advance feeds one message into the pending prompt for this channel
// and user. The whole field/value transition happens under the store
// mutex, so concurrent messages from the same user cannot see a
// half-updated prompt. On promptApply the prompt is removed and the
// returned eventID and field tell the caller what to edit.
func (s *editPromptStore) advance(channelID, userID, content string) (step promptStep, eventID int64, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := promptKey(channelID, userID)
	prompt, ok := s.pending[key]
	if !ok {
		return promptNone, 0, ""
	}
	if time.Since(prompt.startedAt) > constants.EditPromptTimeout {
		delete(s.pending, key)
		return promptExpired, 0, ""
	}

	if prompt.field == "" {
		if content != "trigger_at" && content != "event_name" {
			return promptBadField, 0, ""
		}
		prompt.field = content
		return promptAskValue, prompt.eventID, content
	}

	delete(s.pending, key)
	return promptApply, prompt.eventID, prompt.field
}

// consumeEditPrompt feeds a message into a pending edit prompt. It
// reports whether the message was consumed by the prompt flow.
func (ch *CommandHandler) consumeEditPrompt(channelID, userID, content string) bool {
	step, eventID, field := ch.prompts.advance(channelID, userID, content)

	switch step {
	case promptNone:
		return false
	case promptExpired:
		ch.sendInfo(channelID, constants.MsgEditPromptExpiry)
	case promptBadField:
		ch.sendInfo(channelID, constants.MsgEditBadField)
	case promptAskValue:
		ch.sendInfo(channelID, fmt.Sprintf(constants.MsgEditAskValue, field))
	case promptApply:
		err := ch.deps.Coordinator.RouteAction(eventID, models.EditAction{
			Field: field,
			Value: content,
		})
		if err != nil {
			ch.respondError(channelID, err)
			return true
		}
		ch.sendSuccess(channelID, fmt.Sprintf(constants.MsgEditDone, eventID, field))
	}
	return true
}

package interfaces

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// ChatGateway is the chat-service surface the core depends on. The
// Discord implementation lives in the gateway package; tests use a stub.
type ChatGateway interface {
	// SendMessage sends plain text and returns the new message ID.
	SendMessage(channelID, content string) (string, error)
	// SendEmbed sends an embed and returns the new message ID.
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error)
	// EditMessage replaces a message's content and embed.
	EditMessage(channelID, messageID, content string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string) error
	// AddReaction seeds a reaction button on a message.
	AddReaction(channelID, messageID, emoji string) error
	// FetchMessage verifies a message still exists, used during recovery.
	FetchMessage(channelID, messageID string) error
	// UserName resolves a user ID to a display name, from cache when
	// possible, falling back to a remote fetch.
	UserName(userID string) (string, error)
	// MentionUser formats a user mention.
	MentionUser(userID string) string
	// BotUserID is the bot's own account, excluded from button presses.
	BotUserID() string
	// WaitUntilReady blocks until the gateway connection is ready, or the
	// timeout elapses.
	WaitUntilReady(timeout time.Duration) error
}

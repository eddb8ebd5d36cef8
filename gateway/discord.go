package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Snaptraks/FateBot/cache"
	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/utils"
)

// DiscordGateway implements the chat gateway on top of a discordgo
// session. API calls that matter for the roster flow are retried with
// exponential backoff before the failure is surfaced.
type DiscordGateway struct {
	session *discordgo.Session
	names   *cache.Cache

	readyOnce sync.Once
	ready     chan struct{}

	mu        sync.RWMutex
	botUserID string
}

// New wraps an unopened discordgo session. HandleReady must be
// registered on the session before it is opened.
func New(session *discordgo.Session) *DiscordGateway {
	return &DiscordGateway{
		session: session,
		names:   cache.New(constants.UserCacheTTL, constants.UserCacheCleanupSize),
		ready:   make(chan struct{}),
	}
}

// HandleReady records the bot's own user ID and unblocks WaitUntilReady.
func (g *DiscordGateway) HandleReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.mu.Lock()
	g.botUserID = r.User.ID
	g.mu.Unlock()

	g.readyOnce.Do(func() { close(g.ready) })
	utils.Info("Discord gateway ready as %s", r.User.Username)
}

func (g *DiscordGateway) WaitUntilReady(timeout time.Duration) error {
	select {
	case <-g.ready:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("gateway not ready after %v", timeout)
	}
}

func (g *DiscordGateway) BotUserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.botUserID
}

func (g *DiscordGateway) SendMessage(channelID, content string) (string, error) {
	var msg *discordgo.Message
	err := withRetry("send message", func() error {
		var err error
		msg, err = g.session.ChannelMessageSend(channelID, content)
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *DiscordGateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	var msg *discordgo.Message
	err := withRetry("send embed", func() error {
		var err error
		msg, err = g.session.ChannelMessageSendEmbed(channelID, embed)
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *DiscordGateway) EditMessage(channelID, messageID, content string, embed *discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetContent(content).
		SetEmbed(embed)
	return withRetry("edit message", func() error {
		_, err := g.session.ChannelMessageEditComplex(edit)
		return err
	})
}

func (g *DiscordGateway) DeleteMessage(channelID, messageID string) error {
	return withRetry("delete message", func() error {
		return g.session.ChannelMessageDelete(channelID, messageID)
	})
}

func (g *DiscordGateway) AddReaction(channelID, messageID, emoji string) error {
	return withRetry("add reaction", func() error {
		return g.session.MessageReactionAdd(channelID, messageID, emoji)
	})
}

func (g *DiscordGateway) FetchMessage(channelID, messageID string) error {
	return withRetry("fetch message", func() error {
		_, err := g.session.ChannelMessage(channelID, messageID)
		return err
	})
}

func (g *DiscordGateway) UserName(userID string) (string, error) {
	if name, ok := g.names.Get(userID); ok {
		return name, nil
	}

	var user *discordgo.User
	err := withRetry("fetch user", func() error {
		var err error
		user, err = g.session.User(userID)
		return err
	})
	if err != nil {
		return "", err
	}

	g.names.Set(userID, user.Username)
	return user.Username, nil
}

func (g *DiscordGateway) MentionUser(userID string) string {
	return "<@" + userID + ">"
}

// withRetry runs a Discord API call up to MaxDiscordRetries times with
// exponential backoff. discordgo already honors rate-limit headers; this
// covers transient transport failures on top of that.
func withRetry(operation string, call func() error) error {
	var err error
	delay := constants.BaseRetryDelay

	for attempt := 1; attempt <= constants.MaxDiscordRetries; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if attempt < constants.MaxDiscordRetries {
			utils.Warn("Discord %s failed (attempt %d/%d), retrying in %v: %v",
				operation, attempt, constants.MaxDiscordRetries, delay, err)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("discord %s failed after %d attempts: %w", operation, constants.MaxDiscordRetries, err)
}

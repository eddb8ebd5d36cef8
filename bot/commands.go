package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/models"
	"github.com/Snaptraks/FateBot/utils"
)

// CommandHandler parses prefix commands and reaction presses and routes
// them to the coordinator.
type CommandHandler struct {
	deps    *CommandDependencies
	prompts *editPromptStore
}

func NewCommandHandler(deps *CommandDependencies) *CommandHandler {
	return &CommandHandler{
		deps:    deps,
		prompts: newEditPromptStore(),
	}
}

// HandleMessage processes one Discord message.
func (ch *CommandHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if ch.shouldIgnoreMessage(s, m) {
		return
	}

	// A pending edit prompt swallows the user's next messages in that
	// channel, prefix or not.
	if ch.consumeEditPrompt(m.ChannelID, m.Author.ID, strings.TrimSpace(m.Content)) {
		return
	}

	command, params := ch.parseMessage(m)
	if command == "" {
		return
	}

	ch.routeCommand(s, m, command, params)
}

// HandleReactionAdd processes one reaction press on any message. The
// coordinator ignores reactions on messages that are not live rosters.
func (ch *CommandHandler) HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == ch.deps.Gateway.BotUserID() {
		return
	}

	if !ch.deps.Coordinator.RouteReaction(r.MessageID, r.UserID, r.Emoji.Name) {
		return
	}

	// Pop the user's reaction back off so the buttons stay pressable.
	// Only consumed presses get this; reactions anywhere else are left
	// alone.
	if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
		utils.Debug("Failed to remove reaction: %v", err)
	}
}

func (ch *CommandHandler) shouldIgnoreMessage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Author.ID == s.State.User.ID {
		return true
	}
	if m.Author.Bot {
		return true
	}
	if m.GuildID == "" {
		utils.Debug("DM received from %s", m.Author.Username)
	}
	return false
}

func (ch *CommandHandler) parseMessage(m *discordgo.MessageCreate) (command string, params []string) {
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, ch.deps.Prefix) {
		return "", nil
	}

	args := strings.Fields(content)
	if len(args) == 0 {
		return "", nil
	}

	command = args[0][len(ch.deps.Prefix):]
	params = args[1:]
	return command, params
}

func (ch *CommandHandler) routeCommand(s *discordgo.Session, m *discordgo.MessageCreate, command string, params []string) {
	isAdmin := ch.isAdmin(s, m)
	if ch.deps.MetricsClient != nil {
		ch.deps.MetricsClient.SendCommandMetric(command, isAdmin)
	}

	switch command {
	case "help":
		ch.handleHelp(m)
	case "trial":
		ch.handleCreate(m, models.EventTypeTrial, command, params)
	case "dungeon":
		ch.handleCreate(m, models.EventTypeDungeon, command, params)
	case "arena":
		ch.handleCreate(m, models.EventTypeArena, command, params)
	case "event":
		ch.handleEvent(m, params, isAdmin)
	case "timeiso":
		ch.handleTimeISO(m)
	case "ping":
		ch.handlePing(m)
	}
}

func (ch *CommandHandler) handleHelp(m *discordgo.MessageCreate) {
	ch.sendPlain(m.ChannelID, strings.ReplaceAll(constants.HelpMessage, "{p}", ch.deps.Prefix))
}

func (ch *CommandHandler) handlePing(m *discordgo.MessageCreate) {
	ch.sendInfo(m.ChannelID, constants.MsgPong)
}

func (ch *CommandHandler) handleTimeISO(m *discordgo.MessageCreate) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05")
	ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgTimeISO, now))
}

// handleCreate schedules a new event and publishes its roster in the
// channel the command came from.
func (ch *CommandHandler) handleCreate(m *discordgo.MessageCreate, eventType models.EventType, command string, params []string) {
	if m.GuildID == "" {
		ch.sendInfo(m.ChannelID, "Events can only be scheduled in a server channel.")
		return
	}
	if len(params) == 0 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgCreateUsage, ch.deps.Prefix, command))
		return
	}

	name := params[0]
	triggerAt := time.Now().UTC().Add(constants.DefaultEventLeadTime)
	if len(params) > 1 {
		parsed, err := utils.ParseEventTime(strings.Join(params[1:], " "))
		if err != nil {
			ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgWrongTimeISO, ch.deps.Prefix))
			return
		}
		triggerAt = parsed
	}

	eventID, err := ch.deps.Coordinator.StartEvent(eventType, name, triggerAt, m.ChannelID)
	if err != nil {
		ch.respondError(m.ChannelID, err)
		return
	}
	utils.Info("User %s scheduled %s %s as event %d", m.Author.Username, eventType, name, eventID)
}

func (ch *CommandHandler) handleEvent(m *discordgo.MessageCreate, params []string, isAdmin bool) {
	if len(params) == 0 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgEventUsage, ch.deps.Prefix))
		return
	}

	sub := params[0]
	params = params[1:]

	if sub == "list" {
		ch.handleEventList(m, params)
		return
	}

	// Everything past list mutates events.
	if !isAdmin {
		ch.sendInfo(m.ChannelID, constants.MsgInsufficientPermissions)
		return
	}

	switch sub {
	case "cancel":
		ch.handleEventCancel(m, params)
	case "add":
		ch.handleEventAdd(m, params)
	case "remove":
		ch.handleEventRemove(m, params)
	case "edit":
		ch.handleEventEdit(m, params)
	default:
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgEventUsage, ch.deps.Prefix))
	}
}

func (ch *CommandHandler) handleEventList(m *discordgo.MessageCreate, params []string) {
	if len(params) == 0 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgListUsage, ch.deps.Prefix))
		return
	}

	eventType := models.EventType(params[0])
	entries, err := ch.deps.Catalog.Entries(eventType)
	if err != nil {
		ch.respondError(m.ChannelID, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Available %ss:**\n", eventType)
	for _, entry := range entries {
		fmt.Fprintf(&b, "`%s` - %s\n", entry.Key, entry.Title)
	}
	ch.sendPlain(m.ChannelID, b.String())
}

func (ch *CommandHandler) handleEventCancel(m *discordgo.MessageCreate, params []string) {
	if len(params) != 1 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgCancelUsage, ch.deps.Prefix))
		return
	}

	eventID, ok := ch.parseEventID(m, params[0])
	if !ok {
		return
	}
	if err := ch.deps.Coordinator.CancelEvent(eventID, true, true); err != nil {
		ch.respondError(m.ChannelID, err)
	}
}

// handleEventAdd signs a user up administratively, subject to the same
// capacity rules as a button press.
func (ch *CommandHandler) handleEventAdd(m *discordgo.MessageCreate, params []string) {
	if len(params) != 3 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgAddUsage, ch.deps.Prefix))
		return
	}

	eventID, ok := ch.parseEventID(m, params[0])
	if !ok {
		return
	}
	role := params[1]
	userID := parseUserID(params[2], m.Mentions)

	var action models.Action
	if role == models.RoleLeader {
		action = models.LeaderAction{UserID: userID}
	} else {
		action = models.RoleAction{UserID: userID, Role: role}
	}
	if err := ch.deps.Coordinator.RouteAction(eventID, action); err != nil {
		ch.respondError(m.ChannelID, err)
		return
	}
	ch.sendSuccess(m.ChannelID, fmt.Sprintf(constants.MsgAdded, ch.deps.Gateway.MentionUser(userID), eventID, role))
}

func (ch *CommandHandler) handleEventRemove(m *discordgo.MessageCreate, params []string) {
	if len(params) != 2 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgRemoveUsage, ch.deps.Prefix))
		return
	}

	eventID, ok := ch.parseEventID(m, params[0])
	if !ok {
		return
	}
	userID := parseUserID(params[1], m.Mentions)

	if err := ch.deps.Coordinator.RouteAction(eventID, models.ClearAction{UserID: userID}); err != nil {
		ch.respondError(m.ChannelID, err)
		return
	}
	ch.sendSuccess(m.ChannelID, fmt.Sprintf(constants.MsgRemoved, ch.deps.Gateway.MentionUser(userID), eventID))
}

func (ch *CommandHandler) handleEventEdit(m *discordgo.MessageCreate, params []string) {
	if len(params) != 1 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgEditUsage, ch.deps.Prefix))
		return
	}

	eventID, ok := ch.parseEventID(m, params[0])
	if !ok {
		return
	}

	ch.prompts.start(m.ChannelID, m.Author.ID, eventID)
	ch.sendInfo(m.ChannelID, constants.MsgEditAskField)
}

func (ch *CommandHandler) parseEventID(m *discordgo.MessageCreate, raw string) (int64, bool) {
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || eventID <= 0 {
		ch.sendInfo(m.ChannelID, fmt.Sprintf(constants.MsgInvalidEventID, raw))
		return 0, false
	}
	return eventID, true
}

// parseUserID accepts a raw user ID or a <@...> mention.
func parseUserID(raw string, mentions []*discordgo.User) string {
	if strings.HasPrefix(raw, "<@") && len(mentions) > 0 {
		return mentions[0].ID
	}
	raw = strings.TrimPrefix(raw, "<@")
	raw = strings.TrimPrefix(raw, "!")
	return strings.TrimSuffix(raw, ">")
}

// isAdmin reports whether the author may use the admin subcommands:
// guild owner, or any role carrying ADMINISTRATOR.
func (ch *CommandHandler) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.GuildID == "" {
		return false
	}

	guild, err := s.State.Guild(m.GuildID)
	if err != nil || guild == nil {
		utils.Warn("Cannot get guild information: %v", err)
		return false
	}

	if m.Author.ID == guild.OwnerID {
		return true
	}

	member, err := s.GuildMember(m.GuildID, m.Author.ID)
	if err != nil || member == nil {
		utils.Warn("Cannot get member information for %s: %v", m.Author.Username, err)
		return false
	}

	for _, roleID := range member.Roles {
		role, err := s.State.Role(m.GuildID, roleID)
		if err != nil {
			continue
		}
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}

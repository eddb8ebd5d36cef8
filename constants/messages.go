package constants

// User-facing messages
const (
	// Registration menu
	MsgPlaceholder    = "Getting things ready..."
	MsgEventTime      = "%s Time %s"
	MsgEventCancelled = "Event %d (%s) has been cancelled."
	MsgNobodyYet      = "—"

	// Event commands
	MsgCreateUsage    = "Usage: `%s%s <name> [iso-8601 datetime]`"
	MsgEventUsage     = "Usage: `%sevent <list|cancel|add|remove|edit> ...`"
	MsgListUsage      = "Usage: `%sevent list <trial|dungeon|arena>`"
	MsgCancelUsage    = "Usage: `%sevent cancel <event_id>`"
	MsgAddUsage       = "Usage: `%sevent add <event_id> <role> <user>`"
	MsgRemoveUsage    = "Usage: `%sevent remove <event_id> <user>`"
	MsgEditUsage      = "Usage: `%sevent edit <event_id>`"
	MsgInvalidEventID = "Invalid event ID `%s`."
	MsgWrongTimeISO   = "Wrong time format. Are you sure it is ISO?\nYou can see the right format with `%stimeiso`."

	// Interactive edit prompt
	MsgEditAskField     = "Which field do you want to edit? (`trigger_at` or `event_name`)"
	MsgEditAskValue     = "New value for `%s`?"
	MsgEditBadField     = "Field must be `trigger_at` or `event_name`."
	MsgEditDone         = "Event %d updated: %s."
	MsgEditPromptExpiry = "Edit prompt expired. Run the command again."

	// Admin actions
	MsgAdded   = "Added %s to event %d as `%s`."
	MsgRemoved = "Removed %s from event %d."

	// Permission
	MsgInsufficientPermissions = "You need administrator permissions for that."

	// Misc
	MsgTimeISO = "The time is currently `%s` UTC!"
	MsgPong    = "Pong!"
)

// Emoji prefixes for status messages
const (
	EmojiSuccess = "✅"
	EmojiError   = "❌"
	EmojiInfo    = "ℹ️"
	EmojiWarning = "⚠️"
)

// HelpMessage is the reply to the help command.
const HelpMessage = "**FateBot event commands**\n\n" +
	"**Everyone:**\n" +
	"• `{p}trial <name> [datetime]` - schedule a trial (default: one hour from now)\n" +
	"• `{p}dungeon <name> [datetime]` - schedule a dungeon\n" +
	"• `{p}arena <name> [datetime]` - schedule an arena\n" +
	"• `{p}event list <type>` - list the available events and their abbreviations\n" +
	"• `{p}timeiso` - current UTC time in ISO format\n" +
	"React to a roster message to sign up; the crown takes leader, the " +
	"thought balloon joins as fill, the cross clears you from the event.\n\n" +
	"**Admins:**\n" +
	"• `{p}event cancel <event_id>`\n" +
	"• `{p}event add <event_id> <role> <user>`\n" +
	"• `{p}event remove <event_id> <user>`\n" +
	"• `{p}event edit <event_id>`"

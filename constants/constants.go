package constants

import "time"

// Discord API retry behavior
const (
	MaxDiscordRetries = 3
	BaseRetryDelay    = 1 * time.Second
)

// Event scheduling
const (
	// DefaultEventLeadTime is used when an event is created without an
	// explicit trigger time.
	DefaultEventLeadTime = 1 * time.Hour

	// GatewayReadyTimeout bounds how long recovery waits for the Discord
	// connection before giving up on startup.
	GatewayReadyTimeout = 60 * time.Second

	// EditPromptTimeout bounds the interactive `event edit` prompt; a
	// pending prompt older than this is discarded.
	EditPromptTimeout = 60 * time.Second
)

// User cache
const (
	UserCacheTTL         = 10 * time.Minute
	UserCacheCleanupSize = 64
)

// Embed rendering
const (
	EmbedColor = 0x200972
)

// Time formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)

// Defaults
const (
	DefaultHTTPPort      = "8080"
	DefaultCommandPrefix = "&"
	DefaultSQLitePath    = "FateBot.db"
)

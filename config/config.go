package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/Snaptraks/FateBot/constants"
)

// Config holds the whole application configuration.
type Config struct {
	Discord   DiscordConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Sheets    SheetsConfig
	Telemetry TelemetryConfig
}

type DiscordConfig struct {
	Token         string
	CommandPrefix string
}

type StorageConfig struct {
	Backend    string
	SQLitePath string
}

type LoggingConfig struct {
	Level     string
	DebugMode bool
}

type SheetsConfig struct {
	SpreadsheetID string
}

type TelemetryConfig struct {
	Enabled   bool
	ProjectID string
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		Discord: DiscordConfig{
			Token:         getEnv(constants.EnvDiscordToken, ""),
			CommandPrefix: getEnv(constants.EnvCommandPrefix, constants.DefaultCommandPrefix),
		},
		Storage: StorageConfig{
			Backend:    getEnv(constants.EnvStorageBackend, constants.StorageBackendSQLite),
			SQLitePath: getEnv(constants.EnvSQLitePath, constants.DefaultSQLitePath),
		},
		Logging: LoggingConfig{
			Level:     getEnv(constants.EnvLogLevel, constants.LogLevelInfo),
			DebugMode: getEnvBool(constants.EnvDebugMode, false),
		},
		Sheets: SheetsConfig{
			SpreadsheetID: getEnv(constants.EnvSpreadsheetID, ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:   getEnvBool(constants.EnvTelemetry, false),
			ProjectID: getEnv(constants.EnvProjectID, ""),
		},
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return &ConfigError{
			Field:   "Discord.Token",
			Message: "Discord bot token is required",
		}
	}

	if c.Discord.CommandPrefix == "" {
		return &ConfigError{
			Field:   "Discord.CommandPrefix",
			Message: "command prefix must not be empty",
		}
	}

	validBackends := map[string]bool{
		constants.StorageBackendSQLite:    true,
		constants.StorageBackendFirestore: true,
		constants.StorageBackendMemory:    true,
	}
	if !validBackends[c.Storage.Backend] {
		return &ConfigError{
			Field:   "Storage.Backend",
			Message: "STORAGE_BACKEND must be one of: sqlite, firestore, memory (got: " + c.Storage.Backend + ")",
		}
	}
	if c.Storage.Backend == constants.StorageBackendSQLite && c.Storage.SQLitePath == "" {
		return &ConfigError{
			Field:   "Storage.SQLitePath",
			Message: "SQLITE_PATH must not be empty for the sqlite backend",
		}
	}

	validLogLevels := map[string]bool{
		constants.LogLevelDebug: true,
		constants.LogLevelInfo:  true,
		constants.LogLevelWarn:  true,
		constants.LogLevelError: true,
	}
	if !validLogLevels[strings.ToUpper(c.Logging.Level)] {
		return &ConfigError{
			Field:   "Logging.Level",
			Message: "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR (got: " + c.Logging.Level + ")",
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.ProjectID == "" {
		return &ConfigError{
			Field:   "Telemetry.ProjectID",
			Message: "GOOGLE_CLOUD_PROJECT is required when telemetry is enabled",
		}
	}

	return nil
}

// IsDebugMode reports whether debug logging is on.
func (c *Config) IsDebugMode() bool {
	return c.Logging.DebugMode || strings.ToUpper(c.Logging.Level) == constants.LogLevelDebug
}

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in " + e.Field + ": " + e.Message
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

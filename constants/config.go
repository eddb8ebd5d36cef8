package constants

// Environment variable names
const (
	EnvDiscordToken    = "DISCORD_TOKEN"
	EnvCommandPrefix   = "COMMAND_PREFIX"
	EnvStorageBackend  = "STORAGE_BACKEND"
	EnvSQLitePath      = "SQLITE_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvDebugMode       = "DEBUG_MODE"
	EnvHTTPPort        = "PORT"
	EnvSpreadsheetID   = "ATTENDANCE_SPREADSHEET_ID"
	EnvTelemetry       = "TELEMETRY_ENABLED"
	EnvProjectID       = "GOOGLE_CLOUD_PROJECT"
	EnvFirebaseCreds   = "FIREBASE_CREDENTIALS_JSON"
)

// Storage backend names accepted by STORAGE_BACKEND
const (
	StorageBackendSQLite    = "sqlite"
	StorageBackendFirestore = "firestore"
	StorageBackendMemory    = "memory"
)

// Log level names
const (
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

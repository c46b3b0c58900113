package settings

// JSON keys of settings.json. Nested keys use viper's dot notation.
const (
	IP       = "ip"
	Port     = "port"
	Loglevel = "loglevel"

	EnableMetrics = "enableMetrics"

	DBType             = "dbType"
	DBSettingsFilename = "dbSettings.filename"
	DBSettingsHost     = "dbSettings.host"
	DBSettingsPort     = "dbSettings.port"
	DBSettingsDatabase = "dbSettings.database"
	DBSettingsUser     = "dbSettings.user"
	DBSettingsPassword = "dbSettings.password"

	EditorIndentStep = "editor.indentStep"
	EditorIndentUnit = "editor.indentUnit"

	HistoryCoalesceWindowMs = "history.coalesceWindowMs"
	HistoryMaxSteps         = "history.maxSteps"

	ImportSanitizeHtml = "import.sanitizeHtml"
	ImportMaxFileSize  = "import.maxFileSize"

	SocketMaxMessageSize = "socket.maxMessageSize"

	CommitRateLimitingDuration = "commitRateLimiting.duration"
	CommitRateLimitingPoints   = "commitRateLimiting.points"
)

package settings

import (
	"strings"

	"github.com/spf13/viper"
)

type ConfigKey struct {
	Key         string
	Default     any
	Description string
}

const envPrefix = "ETHERDOC"

func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(
		strings.ReplaceAll(key, ".", "_"),
	)
}

var Registry = []ConfigKey{
	// ---------------------------------------------------------------------
	// Core
	// ---------------------------------------------------------------------
	{Key: IP, Default: "0.0.0.0", Description: "Bind address"},
	{Key: Port, Default: "9001", Description: "HTTP server port"},
	{Key: Loglevel, Default: "INFO", Description: "Log level (DEBUG, INFO, WARN, ERROR)"},
	{Key: EnableMetrics, Default: true, Description: "Expose prometheus metrics on /metrics"},

	// ---------------------------------------------------------------------
	// Database
	// ---------------------------------------------------------------------
	{Key: DBType, Default: string(SQLITE), Description: "Database type (sqlite, memory, postgres)"},
	{Key: DBSettingsFilename, Default: "var/etherdoc.db", Description: "SQLite database filename"},
	{Key: DBSettingsHost, Default: "localhost", Description: "Database host"},
	{Key: DBSettingsPort, Default: "5432", Description: "Database port"},
	{Key: DBSettingsDatabase, Default: "etherdoc", Description: "Database name"},
	{Key: DBSettingsUser, Default: "", Description: "Database user"},
	{Key: DBSettingsPassword, Default: "", Description: "Database password"},

	// ---------------------------------------------------------------------
	// Editor
	// ---------------------------------------------------------------------
	{Key: EditorIndentStep, Default: 40, Description: "Paragraph indent step"},
	{Key: EditorIndentUnit, Default: "px", Description: "CSS unit of the indent step"},
	{
		Key:         HistoryCoalesceWindowMs,
		Default:     100,
		Description: "Window in which consecutive typing merges into one undo step",
	},
	{Key: HistoryMaxSteps, Default: 200, Description: "Undo steps kept per document"},

	// ---------------------------------------------------------------------
	// Import / transport
	// ---------------------------------------------------------------------
	{Key: ImportSanitizeHtml, Default: true, Description: "Sanitize imported HTML"},
	{
		Key:         ImportMaxFileSize,
		Default:     50 * 1024 * 1024,
		Description: "Max import file size",
	},
	{
		Key:         SocketMaxMessageSize,
		Default:     50000,
		Description: "Max websocket message size in bytes",
	},
	{Key: CommitRateLimitingDuration, Default: 1, Description: "Rate limit window in seconds"},
	{Key: CommitRateLimitingPoints, Default: 10, Description: "Messages allowed per client IP and window, 0 disables"},
}

func ApplyRegistryDefaults() {
	for _, c := range Registry {
		viper.SetDefault(c.Key, c.Default)
	}
}

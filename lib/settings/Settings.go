package settings

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ether/etherdoc/lib/history"
	"github.com/ether/etherdoc/lib/lists"
	"go.uber.org/zap"
)

type DBSettings struct {
	Filename string
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

type EditorSettings struct {
	IndentStep int    `json:"indentStep"`
	IndentUnit string `json:"indentUnit"`
}

type HistorySettings struct {
	CoalesceWindowMs int `json:"coalesceWindowMs"`
	MaxSteps         int `json:"maxSteps"`
}

type ImportSettings struct {
	SanitizeHtml bool  `json:"sanitizeHtml"`
	MaxFileSize  int64 `json:"maxFileSize"`
}

type SocketSettings struct {
	MaxMessageSize int64 `json:"maxMessageSize"`
}

type CommitRateLimiting struct {
	Duration int `json:"duration"`
	Points   int `json:"points"`
}

type Settings struct {
	Root               string
	SettingsFilename   string             `json:"settingsFilename"`
	IP                 string             `json:"ip"`
	Port               string             `json:"port"`
	LogLevel           string             `json:"logLevel"`
	EnableMetrics      bool               `json:"enableMetrics"`
	DBType             IDBType            `json:"dbType"`
	DBSettings         *DBSettings        `json:"dbSettings"`
	Editor             EditorSettings     `json:"editor"`
	History            HistorySettings    `json:"history"`
	Import             ImportSettings     `json:"import"`
	Socket             SocketSettings     `json:"socket"`
	CommitRateLimiting CommitRateLimiting `json:"commitRateLimiting"`
	GitVersion         string             `json:"-"`
}

func (s *Settings) ListOptions() lists.Options {
	return lists.Options{
		IndentStep: s.Editor.IndentStep,
		IndentUnit: s.Editor.IndentUnit,
	}
}

func (s *Settings) HistoryOptions() history.Options {
	return history.Options{
		CoalesceWindow: time.Duration(s.History.CoalesceWindowMs) * time.Millisecond,
		MaxSteps:       s.History.MaxSteps,
	}
}

var Displayed Settings

// InitSettings reads settings.json from ETHERDOC_SETTINGS_PATH or the working
// directory. A missing file leaves the defaults in place.
func InitSettings(logger *zap.SugaredLogger) *Settings {
	pathToRoot := os.Getenv("ETHERDOC_SETTINGS_PATH")
	if pathToRoot == "" {
		pathToRoot, _ = os.Getwd()
	}

	settingsFilePath := filepath.Join(pathToRoot, "settings.json")
	content, err := os.ReadFile(settingsFilePath)
	if err != nil {
		logger.Infow("no settings file, using defaults", "path", settingsFilePath)
		content = nil
	}

	setting, err := ReadConfig(string(content))
	if err != nil {
		logger.Fatalw("error reading settings", "path", settingsFilePath, "error", err)
	}
	setting.Root = pathToRoot
	setting.SettingsFilename = settingsFilePath
	setting.GitVersion = GitVersion()
	Displayed = *setting
	return setting
}

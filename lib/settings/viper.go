package settings

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// ReadConfig loads settings from jsonStr, or from ./settings.json when
// jsonStr is empty. ETHERDOC_* environment variables override both.
func ReadConfig(jsonStr string) (*Settings, error) {
	viper.Reset()
	viper.SetConfigName("settings")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvPrefix(strings.ToLower(envPrefix))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	ApplyRegistryDefaults()

	if jsonStr != "" {
		if err := viper.ReadConfig(strings.NewReader(jsonStr)); err != nil {
			return nil, err
		}
	} else {
		if err := viper.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}

	dbTypeToUse, err := ParseDBType(viper.GetString(DBType))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		IP:            viper.GetString(IP),
		Port:          viper.GetString(Port),
		LogLevel:      viper.GetString(Loglevel),
		EnableMetrics: viper.GetBool(EnableMetrics),
		DBType:        dbTypeToUse,
		DBSettings: &DBSettings{
			Filename: viper.GetString(DBSettingsFilename),
			Host:     viper.GetString(DBSettingsHost),
			Port:     viper.GetString(DBSettingsPort),
			Database: viper.GetString(DBSettingsDatabase),
			User:     viper.GetString(DBSettingsUser),
			Password: viper.GetString(DBSettingsPassword),
		},
		Editor: EditorSettings{
			IndentStep: viper.GetInt(EditorIndentStep),
			IndentUnit: viper.GetString(EditorIndentUnit),
		},
		History: HistorySettings{
			CoalesceWindowMs: viper.GetInt(HistoryCoalesceWindowMs),
			MaxSteps:         viper.GetInt(HistoryMaxSteps),
		},
		Import: ImportSettings{
			SanitizeHtml: viper.GetBool(ImportSanitizeHtml),
			MaxFileSize:  viper.GetInt64(ImportMaxFileSize),
		},
		Socket: SocketSettings{
			MaxMessageSize: viper.GetInt64(SocketMaxMessageSize),
		},
		CommitRateLimiting: CommitRateLimiting{
			Duration: viper.GetInt(CommitRateLimitingDuration),
			Points:   viper.GetInt(CommitRateLimitingPoints),
		},
	}

	return s, nil
}

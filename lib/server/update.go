package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/utils"
	"go.uber.org/zap"
)

type UpdateChecker struct {
	httpClient *http.Client
	logger     *zap.SugaredLogger
	db         db.DataStore
	apiURL     string
}

func NewUpdateChecker(logger *zap.SugaredLogger, db db.DataStore) *UpdateChecker {
	return &UpdateChecker{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		db:         db,
		apiURL:     "https://api.github.com/repos/ether/etherdoc/releases/latest",
	}
}

type GitHubRelease struct {
	TagName string `json:"tag_name"`
}

func StartUpdateRoutine(logger *zap.SugaredLogger, db db.DataStore, currentVersion string) {
	uc := NewUpdateChecker(logger, db)
	uc.recordServerVersion(currentVersion)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		uc.performUpdateCheck(currentVersion)

		for range ticker.C {
			uc.performUpdateCheck(currentVersion)
		}
	}()
}

// recordServerVersion stores currentVersion and logs when the data was last
// written by an older release.
func (uc *UpdateChecker) recordServerVersion(currentVersion string) {
	previous, err := uc.db.GetServerVersion()
	if err != nil {
		uc.logger.Warnf("Failed to read stored server version: %v", err)
	} else if previous != nil && utils.IsUpdateAvailable(*previous, currentVersion) {
		uc.logger.Infow("data was written by an older release", "previous", *previous, "current", currentVersion)
	}

	if err := uc.db.SaveServerVersion(currentVersion); err != nil {
		uc.logger.Warnf("Failed to persist current version to database: %v", err)
	}
}

func (uc *UpdateChecker) performUpdateCheck(currentVersion string) {
	updateAvailable, err := uc.CheckForUpdates(currentVersion)
	if err != nil {
		uc.logger.Warnf("Failed to check for updates: %v", err)
		return
	}

	if updateAvailable != nil && *updateAvailable {
		uc.logger.Info("A new version of Etherdoc is available! Please update to the latest version.")
	}
}

func (uc *UpdateChecker) CheckForUpdates(currentVersion string) (*bool, error) {
	resp, err := uc.httpClient.Get(uc.apiURL)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var release GitHubRelease
	err = json.NewDecoder(resp.Body).Decode(&release)
	if err != nil {
		return nil, err
	}

	update := utils.IsUpdateAvailable(currentVersion, release.TagName)
	return &update, nil
}

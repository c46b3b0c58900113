package utils

import (
	"github.com/Masterminds/semver/v3"
)

// IsUpdateAvailable reports whether the release tag latest is newer than the
// running build. Builds stamped with a commit instead of a tag, and tags that
// are not semver, never ask for an update.
func IsUpdateAvailable(current, latest string) bool {
	if latest == "" {
		return false
	}
	running, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	release, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return release.GreaterThan(running)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUpdateAvailable(t *testing.T) {
	testCases := []struct {
		name     string
		current  string
		latest   string
		expected bool
	}{
		{name: "newer release", current: "v1.0.0", latest: "v1.1.0", expected: true},
		{name: "same release", current: "v1.1.0", latest: "v1.1.0", expected: false},
		{name: "older release", current: "v2.0.0", latest: "v1.9.9", expected: false},
		{name: "development build", current: "3f2a9c1-dirty", latest: "v1.1.0", expected: false},
		{name: "no release", current: "v1.0.0", latest: "", expected: false},
		{name: "malformed tag", current: "v1.0.0", latest: "nightly", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsUpdateAvailable(tc.current, tc.latest))
		})
	}
}

package loadtest

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/server"
	"github.com/ether/etherdoc/lib/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantHost      string
		wantAuthors   int
		wantLurkers   int
		wantDuration  time.Duration
		wantUntilFail bool
	}{
		{
			name:     "default values",
			args:     []string{},
			wantHost: "http://127.0.0.1:9001",
		},
		{
			name:     "positional host",
			args:     []string{"http://test.com"},
			wantHost: "http://test.com",
		},
		{
			name:          "explicit flags",
			args:          []string{"-host", "http://test.com", "-authors", "5", "-lurkers", "10", "-duration", "60", "-loadUntilFail"},
			wantHost:      "http://test.com",
			wantAuthors:   5,
			wantLurkers:   10,
			wantDuration:  60 * time.Second,
			wantUntilFail: true,
		},
		{
			name:         "positional host and shorthands",
			args:         []string{"http://pos.com", "-a", "3", "-d", "30"},
			wantHost:     "http://pos.com",
			wantAuthors:  3,
			wantDuration: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseRunArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, cfg.Host)
			assert.Equal(t, tt.wantAuthors, cfg.Authors)
			assert.Equal(t, tt.wantLurkers, cfg.Lurkers)
			assert.Equal(t, tt.wantDuration, cfg.Duration)
			assert.Equal(t, tt.wantUntilFail, cfg.LoadUntilFail)
		})
	}
}

func TestParseMultiRunArgs(t *testing.T) {
	tests := []struct {
		name             string
		args             []string
		wantHost         string
		wantMaxDocuments int
	}{
		{
			name:             "default values",
			args:             []string{},
			wantHost:         "http://127.0.0.1:9001",
			wantMaxDocuments: 10,
		},
		{
			name:             "explicit flags",
			args:             []string{"-host", "http://test.com", "-maxDocuments", "20"},
			wantHost:         "http://test.com",
			wantMaxDocuments: 20,
		},
		{
			name:             "positional host",
			args:             []string{"http://pos.com", "-maxDocuments", "5"},
			wantHost:         "http://pos.com",
			wantMaxDocuments: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, maxDocuments, err := parseMultiRunArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantMaxDocuments, maxDocuments)
		})
	}
}

func TestNewRunnerTarget(t *testing.T) {
	r := NewRunner(Config{Host: "http://127.0.0.1:9001/"}, zap.NewNop().Sugar())
	assert.True(t, strings.HasPrefix(r.target, "http://127.0.0.1:9001/api/documents/"))

	r = NewRunner(Config{Host: "http://127.0.0.1:9001/api/documents/notes"}, zap.NewNop().Sugar())
	assert.Equal(t, "http://127.0.0.1:9001/api/documents/notes", r.target)
}

func TestRunAgainstServer(t *testing.T) {
	if testing.Short() {
		t.Skip("load test skipped in short mode")
	}
	settings := testutils.TestSettings()
	settings.EnableMetrics = false
	settings.CommitRateLimiting.Points = 10000
	store, stop := server.NewApp(settings, db.NewMemoryDataStore(), zap.NewNop().Sugar())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go store.C.Listener(ln)
	t.Cleanup(func() {
		_ = store.C.Shutdown()
		stop()
	})

	metrics, err := NewRunner(Config{
		Host:        "http://" + ln.Addr().String(),
		Authors:     2,
		Lurkers:     1,
		Duration:    2 * time.Second,
		AppendEvery: 100 * time.Millisecond,
		Silent:      true,
	}, zap.NewNop().Sugar()).Run()
	require.NoError(t, err)
	assert.EqualValues(t, 3, metrics.ClientsConnected)
	assert.Positive(t, metrics.AppendSent)
	assert.Positive(t, metrics.AcceptedAppends)
	assert.Positive(t, metrics.ChangeFromServer)
}

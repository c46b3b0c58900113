package stats

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ether/etherdoc/lib/api/stats"
	"github.com/ether/etherdoc/lib/test/testutils"
	"github.com/stretchr/testify/require"
)

func TestStatsEndpoints(t *testing.T) {
	testDb := testutils.NewTestDBHandler(t)

	defer testDb.StartTestDBHandler()

	testDb.AddTests(
		testutils.TestRunConfig{
			Name: "Metrics Endpoint Exists",
			Test: testMetricsEndpointExists,
		},
		testutils.TestRunConfig{
			Name: "Metrics Endpoint Disabled",
			Test: testMetricsEndpointDisabled,
		},
		testutils.TestRunConfig{
			Name: "Health Endpoint Exists",
			Test: testHealthEndpointExists,
		},
	)
}

func testMetricsEndpointExists(t *testing.T, testDb testutils.TestDataStore) {
	stats.Init(testDb.ToInitStore())

	req := httptest.NewRequest("GET", "/metrics", nil)

	resp, err := testDb.App.Test(req, 1000)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	output := string(body)

	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, output, "etherdoc_active_documents")
	require.Contains(t, output, "etherdoc_connected_clients")
	require.Contains(t, output, "go_goroutines")
}

func testMetricsEndpointDisabled(t *testing.T, testDb testutils.TestDataStore) {
	testDb.Settings.EnableMetrics = false
	stats.Init(testDb.ToInitStore())

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := testDb.App.Test(req, 1000)
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)
}

func testHealthEndpointExists(t *testing.T, testDb testutils.TestDataStore) {
	stats.Init(testDb.ToInitStore())
	_, err := testDb.Manager.OpenSession("health")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := testDb.App.Test(req, 1000)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var health stats.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, stats.StatusPass, health.Status)
	require.Len(t, health.Checks["database"], 1)
	require.Equal(t, stats.StatusPass, health.Checks["database"][0].Status)
	require.EqualValues(t, 1, health.Checks["sessions"][0].Observed)
}

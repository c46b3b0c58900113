package settings

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConfig(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	code := RunConfigCommand(&out, args, func() {
		_, err := ReadConfig(`{"editor": {"indentUnit": "em"}}`)
		require.NoError(t, err)
	})
	return out.String(), code
}

func TestConfigInitNestsDefaults(t *testing.T) {
	out, code := runConfig(t, "init")
	require.Equal(t, 0, code)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	editor, ok := tree["editor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "px", editor["indentUnit"])
	assert.Equal(t, "sqlite", tree["dbType"])
}

func TestConfigGet(t *testing.T) {
	out, code := runConfig(t, "get", EditorIndentUnit)
	assert.Equal(t, 0, code)
	assert.Equal(t, "em\n", out)

	out, code = runConfig(t, "get", "editor.nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unknown config key")
}

func TestConfigEnvListsEveryKey(t *testing.T) {
	out, code := runConfig(t, "env")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "ETHERDOC_EDITOR_INDENTSTEP")
	assert.Contains(t, out, "ETHERDOC_COMMITRATELIMITING_POINTS")
}

func TestConfigUnknownCommand(t *testing.T) {
	out, code := runConfig(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Usage:")

	out, code = runConfig(t, "reset")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, `unknown config command "reset"`)
}

package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdList(t *testing.T) {
	out, _, err := execute(t, "std", "--kind", "transform")
	require.NoError(t, err)
	assert.Contains(t, out, "std.group")
	assert.Contains(t, out, "std.join")
	assert.NotContains(t, out, "std.lower")
}

func TestStdDescribe(t *testing.T) {
	out, _, err := execute(t, "std", "join")
	require.NoError(t, err)
	assert.Contains(t, out, "std.join (transform)")
	assert.Contains(t, out, "side:inner|left|right|full (default inner)")
}

func TestStdJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "std", "std.count")
	require.NoError(t, err)

	var resp struct {
		Data FunctionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "std.count", resp.Data.Name)
	assert.True(t, resp.Data.Aggregate)
	require.Len(t, resp.Data.Params, 1)
	assert.Equal(t, "column", resp.Data.Params[0].Name)
}

func TestStdErrors(t *testing.T) {
	out, _, err := execute(t, "std", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unknown built-in: nope")

	out, _, err = execute(t, "std", "--kind", "macro")
	require.Error(t, err)
	assert.Contains(t, out, `invalid kind "macro"`)
}

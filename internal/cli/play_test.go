package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayImmediatePlayback(t *testing.T) {
	out, err := execute(t, "play", clickDoc,
		"--fixture", pageFixture,
		"--list", "a-1",
		"--immediate",
		"--for", "100ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Engine started.")
	assert.Contains(t, out, "Stopped after")
	assert.Contains(t, out, `[data-w-id="box"] { transform: translate3d(100px, 0px, 0px); }`)
}

func TestPlayJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "play", clickDoc,
		"--fixture", pageFixture,
		"--list", "a-1",
		"--immediate",
		"--fps", "120",
		"--for", "50ms",
	)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PlayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "json output stays clean: %s", out)
	assert.Equal(t, "ok", resp.Status)
	assert.GreaterOrEqual(t, resp.Data.Paints, 1)
	require.NotEmpty(t, resp.Data.Elements)
	assert.Equal(t, `[data-w-id="box"]`, resp.Data.Elements[0].Element)
}

func TestPlayUnknownClickTarget(t *testing.T) {
	out, err := execute(t, "play", clickDoc, "--fixture", pageFixture, "--click", ".nope", "--for", "10ms")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `no element matches ".nope"`)
}

func TestPlayRejectsBrokenDocument(t *testing.T) {
	out, err := execute(t, "play", brokenDoc, "--fixture", pageFixture, "--for", "10ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E210")
}

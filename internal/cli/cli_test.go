package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ACTIONMESH_MODEL_PROVIDER", "mock")
	t.Setenv("ACTIONMESH_LOG_LEVEL", "error")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestActions_YAML(t *testing.T) {
	out, err := run(t, "actions", "--format", "yaml")
	require.NoError(t, err)

	var docs []actionDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	names := map[string]actionDoc{}
	for _, d := range docs {
		names[d.Name] = d
	}
	require.Contains(t, names, "send_sms")
	assert.Equal(t, "high", names["send_sms"].Risk)
	assert.Equal(t, "requires_confirmation", names["send_sms"].Policy)
	assert.Equal(t, "requires_approval", names["draft_sms"].Policy)
}

func TestActions_TableAndCategory(t *testing.T) {
	out, err := run(t, "actions", "--category", "voice")
	require.NoError(t, err)
	assert.Contains(t, out, "transfer_call")
	assert.NotContains(t, out, "get_contact")

	_, err = run(t, "actions", "--format", "xml")
	assert.Error(t, err)
}

func TestCommitment(t *testing.T) {
	out, err := run(t, "commitment", "Great, I'll arrange for someone to call you back.")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["has_commitment"])
	assert.Equal(t, "callback", got["type"])
	assert.Equal(t, "high", got["urgency"])
}

func TestSMS(t *testing.T) {
	out, err := run(t, "sms", "--from", "+15550001111", "Hi")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["auto_sendable"])
	assert.Equal(t, "greeting", got["intent"].(map[string]any)["category"])

	_, err = run(t, "sms", "Hi")
	assert.Error(t, err, "--from is required")
}

func TestChat(t *testing.T) {
	out, err := run(t, "chat", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Mock response to: hello")
	assert.Contains(t, out, `"response_ready"`)
}

func TestChat_InvalidConfirmArgs(t *testing.T) {
	_, err := run(t, "chat", "--confirm", "send_sms", "--confirm-args", "{not json", "yes")
	assert.ErrorContains(t, err, "--confirm-args")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "actionmesh dev")
}

package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevel_Order(t *testing.T) {
	assert.True(t, RiskLow.AtMost(RiskMedium))
	assert.True(t, RiskMedium.AtMost(RiskMedium))
	assert.False(t, RiskHigh.AtMost(RiskMedium))
	assert.Less(t, int(RiskLow), int(RiskHigh))
}

func TestRiskLevel_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]RiskLevel{"r": RiskHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":"high"}`, string(b))

	var out map[string]RiskLevel
	require.NoError(t, json.Unmarshal([]byte(`{"r":"Medium"}`), &out))
	assert.Equal(t, RiskMedium, out["r"])

	_, err = ParseRiskLevel("extreme")
	assert.Error(t, err)
}

func TestExecutionContext_Confirmation(t *testing.T) {
	ec := NewExecutionContext("t1", "u1", ChannelChat)
	assert.False(t, ec.IsConfirmed("send_sms", nil))
	ec.Confirm("send_sms", "u1")
	assert.True(t, ec.IsConfirmed("send_sms", map[string]any{"body": "a"}))
	assert.False(t, ec.IsConfirmed("delete_contact", nil))

	assert.True(t, ec.ConsumeConfirmation("send_sms", map[string]any{"body": "a"}))
	assert.False(t, ec.ConsumeConfirmation("send_sms", map[string]any{"body": "a"}))
	assert.False(t, ec.IsConfirmed("send_sms", nil))
}

func TestExecutionContext_ConfirmCallBindsArgs(t *testing.T) {
	ec := NewExecutionContext("t1", "u1", ChannelChat)
	ec.ConfirmCall("send_sms", map[string]any{"to": "+15550001111", "body": "See you at 9", "segments": 1}, "u1")

	assert.False(t, ec.ConsumeConfirmation("send_sms", map[string]any{"to": "+15550001111", "body": "See you at 10"}))
	assert.False(t, ec.Confirmation.Used)
	// Decoded JSON arguments match the typed ones.
	assert.True(t, ec.ConsumeConfirmation("send_sms", map[string]any{"body": "See you at 9", "segments": float64(1), "to": "+15550001111"}))
	assert.False(t, ec.ConsumeConfirmation("send_sms", map[string]any{"to": "+15550001111", "body": "See you at 9", "segments": 1}))
}

func TestArgsDigest(t *testing.T) {
	assert.Equal(t, ArgsDigest(nil), ArgsDigest(map[string]any{}))
	assert.Equal(t, ArgsDigest(map[string]any{"a": 1, "b": "x"}), ArgsDigest(map[string]any{"b": "x", "a": 1.0}))
	assert.NotEqual(t, ArgsDigest(map[string]any{"a": 1}), ArgsDigest(map[string]any{"a": 2}))
}

func TestExecutionContext_Ref(t *testing.T) {
	ec := NewExecutionContext("t1", "u1", ChannelSMS)
	assert.True(t, ec.Ref().IsZero())
	assert.False(t, ec.HasFocalEntity())

	ec.Contact = &Contact{ID: "c1"}
	ec.Project = &Project{ID: "p1"}
	assert.Equal(t, EntityRef{ContactID: "c1", ProjectID: "p1"}, ec.Ref())
	assert.True(t, ec.HasFocalEntity())
}

func TestExecutionResult_ModelPayload(t *testing.T) {
	r := Failed("not found")
	assert.JSONEq(t, `{"success":false,"error":"not found"}`, r.ModelPayload())

	d := &Draft{ID: "d1", Channel: ChannelSMS, Recipient: "+15550001111", Body: "hi"}
	r = NeedsApproval(d, "draft ready")
	assert.True(t, r.NeedsExternalAction())
	assert.Contains(t, r.ModelPayload(), `"awaiting_approval":true`)
}

func TestContent_Helpers(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "x"}},
		TextPart{Text: "b"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "2", Name: "y"}},
	}}
	assert.Equal(t, "ab", c.Text())
	calls := c.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "x", calls[0].Name)
	assert.Equal(t, "y", calls[1].Name)
}

func TestBundle_IsEmpty(t *testing.T) {
	var b *EnrichmentBundle
	assert.True(t, b.IsEmpty())
	assert.True(t, (&EnrichmentBundle{}).IsEmpty())
	assert.False(t, (&EnrichmentBundle{Activities: []Activity{{ID: "a"}}}).IsEmpty())
}

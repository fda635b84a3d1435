package gemini

import (
	"testing"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildContents_Roles(t *testing.T) {
	contents := buildContents([]core.Content{
		core.NewTextContent(core.RoleSystem, "ignored here"),
		core.NewTextContent(core.RoleUser, "find Ann"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "1", Name: "search_contacts", Arguments: `{"query":"Ann"}`}}}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "1", Name: "search_contacts", Response: `{"success":true}`}}}},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "Ann", contents[1].Parts[0].FunctionCall.Args["query"])
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, true, contents[2].Parts[0].FunctionResponse.Response["success"])
}

func TestBuildConfig(t *testing.T) {
	m := NewModelFromClient(nil)
	cfg := m.buildConfig(model.Request{
		Instructions: "be brief",
		Contents:     []core.Content{core.NewTextContent(core.RoleSystem, "sms rules")},
		Tools:        []model.ToolDefinition{model.NewToolDefinition("get_contact", "Get", map[string]any{"type": "object"})},
	})

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief\n\nsms rules", cfg.SystemInstruction.Parts[0].Text)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "get_contact", cfg.Tools[0].FunctionDeclarations[0].Name)
	assert.Equal(t, "gemini", m.Info().Provider)
}

func TestFromGenai_FunctionCall(t *testing.T) {
	cand := &genai.Candidate{Content: &genai.Content{Parts: []*genai.Part{
		{Text: "checking"},
		{FunctionCall: &genai.FunctionCall{Name: "get_project", Args: map[string]any{"project_id": "p1"}}},
	}}}

	c := fromGenai(cand.Content)
	calls := c.FunctionCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
	assert.JSONEq(t, `{"project_id":"p1"}`, calls[0].Arguments)
	assert.Equal(t, "checking", c.Text())
	assert.Equal(t, "tool_calls", finishReason(cand))
}

func TestDecodeObject(t *testing.T) {
	assert.Equal(t, map[string]any{}, decodeObject(""))
	assert.Equal(t, map[string]any{"result": "plain"}, decodeObject("plain"))
}

package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/actionmesh/actions"
	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/internal/testutil"
	"github.com/hupe1980/actionmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crmOrchestrator(t *testing.T) (*Orchestrator, testutil.Fixture) {
	t.Helper()
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	s, fx := testutil.Seed(t, now)
	cat := catalog.New()
	require.NoError(t, actions.Register(cat, actions.Deps{Store: s, Messenger: &testutil.FakeMessenger{}, Clock: testutil.FixedClock(now)}))
	cat.Seal()
	return New(cat, enrichment.New(s), func(o *Options) { o.Integrations = []string{actions.IntegrationSMS} }), fx
}

func TestRunTurn_DirectReply(t *testing.T) {
	o, _ := crmOrchestrator(t)
	m := model.NewMockModel("m").ReplyText("  Hello!  ")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "hi"})
	assert.Equal(t, "Hello!", res.Reply)
	assert.False(t, res.Fallback)
	assert.Equal(t, []TurnState{StateIdle, StatePromptAssembled, StateModelInvoked, StateResponseReady}, res.States)
	assert.Equal(t, 1, res.ModelCalls)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.NotEmpty(t, reqs[0].Tools)
	assert.NotEmpty(t, reqs[0].Instructions)
}

func TestRunTurn_NotFoundFoldedIntoSecondPass(t *testing.T) {
	o, _ := crmOrchestrator(t)
	m := model.NewMockModel("m").
		ReplyToolCalls(core.FunctionCall{ID: "call_1", Name: "update_project", Arguments: `{"project_id":"p-404","status":"on hold"}`}).
		ReplyText("Sorry, I couldn't find that project. Could you double-check the name?")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelSMS).Build()

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "put project p-404 on hold"})
	assert.False(t, res.Fallback)
	assert.Contains(t, res.Reply, "Sorry")
	assert.Equal(t, StateResponseReady, res.State())
	assert.Contains(t, res.States, StateToolCallsPending)
	assert.Equal(t, 2, res.ModelCalls)

	require.Len(t, res.Tools, 1)
	assert.Equal(t, ToolFailed, res.Tools[0].State)
	assert.Equal(t, "project not found", res.Tools[0].Result.Error)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[1].Tools, "second pass must not offer tools")
	folded := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Equal(t, core.RoleTool, folded.Role)
	fr, ok := folded.Parts[0].(core.FunctionResponsePart)
	require.True(t, ok)
	assert.Equal(t, "call_1", fr.FunctionResponse.ID)
	assert.JSONEq(t, `{"success":false,"error":"project not found"}`, fr.FunctionResponse.Response)
}

func TestRunTurn_SequentialToolsSurfaceDraftsAndConfirmations(t *testing.T) {
	o, fx := crmOrchestrator(t)
	m := model.NewMockModel("m").
		ReplyToolCalls(
			core.FunctionCall{Name: "draft_sms", Arguments: `{"body":"Your estimate is ready","to":"+15551234567"}`},
			core.FunctionCall{Name: "delete_contact", Arguments: `{"contact_id":"` + fx.Contact.ID + `"}`},
			core.FunctionCall{Name: "get_contact", Arguments: `not json`},
		).
		ReplyText("I drafted the text. Do you really want to delete Ann?")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "text Ann and delete her"})
	require.Len(t, res.Tools, 3)
	assert.Equal(t, "draft_sms", res.Tools[0].Call.Name)
	assert.Equal(t, "delete_contact", res.Tools[1].Call.Name)
	assert.Equal(t, ToolSucceeded, res.Tools[0].State)
	assert.Equal(t, ToolSucceeded, res.Tools[1].State)
	assert.Equal(t, ToolFailed, res.Tools[2].State)
	for _, tool := range res.Tools {
		assert.NotEmpty(t, tool.Call.ID)
	}

	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "Your estimate is ready", res.Drafts[0].Body)
	require.Len(t, res.PendingConfirmations, 1)
	assert.Equal(t, "delete_contact", res.PendingConfirmations[0].Action)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	folded := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Len(t, folded.Parts, 3)
}

func TestRunTurn_OneConfirmationUnlocksOneCall(t *testing.T) {
	calls := &counter{}
	o := New(gatedCatalog(t, calls), nil)
	m := model.NewMockModel("m").
		ReplyToolCalls(
			core.FunctionCall{ID: "1", Name: "wipe", Arguments: `{}`},
			core.FunctionCall{ID: "2", Name: "wipe", Arguments: `{}`},
			core.FunctionCall{ID: "3", Name: "wipe", Arguments: `{}`},
		).
		ReplyText("Done once. Please confirm again for the rest.")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Confirmed("wipe").Build()

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "yes, wipe it"})
	assert.Equal(t, int32(1), calls.n.Load())
	require.Len(t, res.Tools, 3)
	assert.True(t, res.Tools[0].Result.Success)
	assert.True(t, res.Tools[1].Result.AwaitingConfirmation)
	assert.True(t, res.Tools[2].Result.AwaitingConfirmation)
	require.Len(t, res.PendingConfirmations, 2)
	assert.Equal(t, map[string]any{}, res.PendingConfirmations[0].Args)
}

func TestRunTurn_ConfirmedArgsMismatch(t *testing.T) {
	o, fx := crmOrchestrator(t)
	m := model.NewMockModel("m").
		ReplyToolCalls(core.FunctionCall{ID: "1", Name: "delete_contact", Arguments: `{"contact_id":"someone-else"}`}).
		ReplyText("Please confirm.")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()
	ec.ConfirmCall("delete_contact", map[string]any{"contact_id": fx.Contact.ID}, ec.UserID)

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "delete"})
	require.Len(t, res.Tools, 1)
	assert.True(t, res.Tools[0].Result.AwaitingConfirmation)
	require.Len(t, res.PendingConfirmations, 1)
	assert.Equal(t, map[string]any{"contact_id": "someone-else"}, res.PendingConfirmations[0].Args)
	assert.False(t, ec.Confirmation.Used)
}

func TestRunTurn_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		model *model.MockModel
		calls int
	}{
		{"first call fails", model.NewMockModel("m").ReplyError(errors.New("503")), 1},
		{"empty reply", model.NewMockModel("m").ReplyText("   "), 1},
		{"second call fails", model.NewMockModel("m").
			ReplyToolCalls(core.FunctionCall{ID: "1", Name: "get_contact", Arguments: `{"contact_id":"c-1"}`}).
			ReplyError(errors.New("timeout")), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := crmOrchestrator(t)
			ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelSMS).Build()
			res := o.RunTurn(context.Background(), tt.model, TurnRequest{Context: ec, UserText: "hello"})
			assert.True(t, res.Fallback)
			assert.Error(t, res.Err)
			assert.Equal(t, DefaultFallbackMessage, res.Reply)
			assert.Equal(t, StateResponseReady, res.State())
			assert.Equal(t, tt.calls, res.ModelCalls)
		})
	}
}

func TestRunTurn_CallBudget(t *testing.T) {
	o, _ := crmOrchestrator(t)
	o.opts.MaxModelCalls = 1
	m := model.NewMockModel("m").
		ReplyToolCalls(core.FunctionCall{ID: "1", Name: "get_contact", Arguments: `{"contact_id":"c-1"}`}).
		ReplyText("never sent")
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()

	res := o.RunTurn(context.Background(), m, TurnRequest{Context: ec, UserText: "who is c-1?"})
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, ErrCallBudgetExhausted)
	assert.Equal(t, 1, res.ModelCalls)
	assert.Len(t, m.Requests(), 1)
	require.Len(t, res.Tools, 1)
}

func TestCallBudget(t *testing.T) {
	b := &callBudget{max: 2}
	assert.NoError(t, b.spend())
	assert.NoError(t, b.spend())
	assert.ErrorIs(t, b.spend(), ErrCallBudgetExhausted)
	assert.Equal(t, 2, b.used)

	unlimited := &callBudget{}
	for i := 0; i < 10; i++ {
		assert.NoError(t, unlimited.spend())
	}
}

func TestRunTurn_Overrides(t *testing.T) {
	o, _ := crmOrchestrator(t)
	m := model.NewMockModel("m").ReplyText("ok")
	tools := []model.ToolDefinition{model.NewToolDefinition("get_contact", "Get", map[string]any{"type": "object"})}
	history := []core.Content{
		core.NewTextContent(core.RoleUser, "earlier"),
		core.NewTextContent(core.RoleAssistant, "reply"),
	}

	o.RunTurn(context.Background(), m, TurnRequest{SystemPrompt: "custom", Tools: tools, History: history, UserText: "now"})

	req := m.Requests()[0]
	assert.Equal(t, "custom", req.Instructions)
	assert.Len(t, req.Tools, 1)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, "now", req.Contents[2].Text())
}

package orchestrator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/actionmesh/actions"
	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n atomic.Int32 }

func (c *counter) executor(res *core.ExecutionResult) catalog.Executor {
	return func(context.Context, *core.ExecutionContext, map[string]any) (*core.ExecutionResult, error) {
		c.n.Add(1)
		return res, nil
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.msgs, msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }

var noteSchema = map[string]any{
	"type":                 "object",
	"properties":           map[string]any{"note": map[string]any{"type": "string"}},
	"required":             []any{"note"},
	"additionalProperties": false,
}

func gatedCatalog(t *testing.T, calls *counter) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	cat.MustRegister(
		catalog.Action{Name: "add_note", Description: "Add a note", Category: "notes", Risk: core.RiskLow, EnabledByDefault: true, Parameters: noteSchema, Execute: calls.executor(core.Succeeded(nil, "ok"))},
		catalog.Action{Name: "wipe", Description: "Wipe all data", Category: "admin", Risk: core.RiskHigh, EnabledByDefault: true, Execute: calls.executor(core.Succeeded(nil, "wiped"))},
		catalog.Action{Name: "archive", Description: "Archive the project", Category: "admin", Risk: core.RiskLow, Policy: core.PolicyRequiresConfirmation, EnabledByDefault: true,
			ConfirmationPrompt: func(map[string]any) string { return "Archive it?" }, Execute: calls.executor(core.Succeeded(nil, "archived"))},
		catalog.Action{Name: "refund", Description: "Refund a payment", Category: "payments", Risk: core.RiskLow, EnabledByDefault: true, Execute: calls.executor(core.Succeeded(nil, "refunded"))},
		catalog.Action{Name: "hangup", Description: "End the call", Category: "voice", Risk: core.RiskLow, EnabledByDefault: true, Channels: []core.Channel{core.ChannelVoiceInbound}, Execute: calls.executor(core.Succeeded(nil, "bye"))},
		catalog.Action{Name: "book", Description: "Book", Category: "scheduling", Risk: core.RiskLow, RequiredIntegrations: []string{"calendar"}, Execute: calls.executor(core.Succeeded(nil, "booked"))},
		catalog.Action{Name: "write_letter", Description: "Write a letter", Category: "messaging", Risk: core.RiskLow, Policy: core.PolicyRequiresApproval, EnabledByDefault: true,
			Execute: calls.executor(core.Succeeded(nil, "Dear Ann"))},
		catalog.Action{Name: "explode", Description: "Panics", Category: "notes", Risk: core.RiskLow, EnabledByDefault: true,
			Execute: func(context.Context, *core.ExecutionContext, map[string]any) (*core.ExecutionResult, error) { panic("kaboom") }},
		catalog.Action{Name: "broken", Description: "Fails", Category: "notes", Risk: core.RiskLow, EnabledByDefault: true,
			Execute: func(context.Context, *core.ExecutionContext, map[string]any) (*core.ExecutionResult, error) {
				return nil, errors.New("db down: password=secret")
			}},
		catalog.Action{Name: "slow", Description: "Blocks", Category: "notes", Risk: core.RiskLow, EnabledByDefault: true,
			Execute: func(ctx context.Context, _ *core.ExecutionContext, _ map[string]any) (*core.ExecutionResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}},
	)
	cat.Seal()
	return cat
}

func TestExecuteFunction_Gating(t *testing.T) {
	calls := &counter{}
	o := New(gatedCatalog(t, calls), nil, func(o *Options) { o.ToolTimeout = 20 * time.Millisecond })
	ctx := context.Background()
	chat := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()

	tests := []struct {
		name    string
		action  string
		args    map[string]any
		wantErr string
	}{
		{"unknown", "missing", nil, "unknown action"},
		{"channel", "hangup", nil, "not available on the chat channel"},
		{"integration", "book", nil, "integration"},
		{"forbidden category", "refund", nil, "not authorized"},
		{"schema", "add_note", map[string]any{"note": 42}, "validation"},
		{"missing required", "add_note", map[string]any{}, "validation"},
		{"panic", "explode", nil, "failed unexpectedly"},
		{"plain error hidden", "broken", nil, "the action failed"},
		{"timeout", "slow", nil, "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := o.ExecuteFunction(ctx, tt.action, tt.args, chat)
			assert.False(t, res.Success)
			assert.False(t, res.AwaitingConfirmation)
			assert.Contains(t, res.Error, tt.wantErr)
			assert.NotContains(t, res.Error, "secret")
		})
	}
	assert.Zero(t, calls.n.Load())

	res := o.ExecuteFunction(ctx, "add_note", map[string]any{"note": "hi"}, chat)
	assert.True(t, res.Success)
	assert.Equal(t, int32(1), calls.n.Load())
}

func TestExecuteFunction_ConfirmationGate(t *testing.T) {
	calls := &counter{}
	o := New(gatedCatalog(t, calls), nil)
	ctx := context.Background()

	for _, name := range []string{"wipe", "archive"} {
		ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()
		res := o.ExecuteFunction(ctx, name, nil, ec)
		assert.True(t, res.AwaitingConfirmation, name)
		assert.False(t, res.Success, name)
		assert.NotEmpty(t, res.ConfirmationPrompt, name)
	}
	assert.Zero(t, calls.n.Load(), "executor must not run without confirmation")

	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()
	assert.Equal(t, "Archive it?", o.ExecuteFunction(ctx, "archive", nil, ec).ConfirmationPrompt)
	assert.Equal(t, "Please confirm: Wipe all data?", o.ExecuteFunction(ctx, "wipe", nil, ec).ConfirmationPrompt)

	// A confirmation for another action does not unlock this one.
	ec = testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Confirmed("archive").Build()
	assert.True(t, o.ExecuteFunction(ctx, "wipe", nil, ec).AwaitingConfirmation)
	assert.Zero(t, calls.n.Load())

	ec = testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Confirmed("wipe").Build()
	res := o.ExecuteFunction(ctx, "wipe", nil, ec)
	assert.True(t, res.Success)
	assert.Equal(t, int32(1), calls.n.Load())
}

func TestExecuteFunction_ConfirmationIsSingleUse(t *testing.T) {
	calls := &counter{}
	o := New(gatedCatalog(t, calls), nil)
	ctx := context.Background()

	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Confirmed("wipe").Build()
	assert.True(t, o.ExecuteFunction(ctx, "wipe", nil, ec).Success)
	res := o.ExecuteFunction(ctx, "wipe", nil, ec)
	assert.True(t, res.AwaitingConfirmation)
	assert.Equal(t, int32(1), calls.n.Load())
}

func TestExecuteFunction_ConfirmationBoundToArgs(t *testing.T) {
	calls := &counter{}
	o := New(gatedCatalog(t, calls), nil)
	ctx := context.Background()

	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()
	ec.ConfirmCall("archive", map[string]any{}, ec.UserID)
	assert.True(t, o.ExecuteFunction(ctx, "archive", map[string]any{}, ec).Success)
	assert.Equal(t, int32(1), calls.n.Load())

	ec.ConfirmCall("wipe", map[string]any{}, ec.UserID)
	assert.True(t, o.ExecuteFunction(ctx, "archive", map[string]any{}, ec).AwaitingConfirmation)
	assert.False(t, ec.Confirmation.Used, "a confirmation for another action stays unused")
	assert.True(t, o.ExecuteFunction(ctx, "wipe", map[string]any{}, ec).Success)
	assert.Equal(t, int32(2), calls.n.Load())
}

func TestExecuteFunction_ApprovalForcedIntoDraft(t *testing.T) {
	o := New(gatedCatalog(t, &counter{}), nil)
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelSMS).Build()

	res := o.ExecuteFunction(context.Background(), "write_letter", nil, ec)
	assert.True(t, res.Success)
	assert.True(t, res.AwaitingApproval)
	require.NotNil(t, res.Draft)
	assert.NotEmpty(t, res.Draft.ID)
	assert.Equal(t, "Dear Ann", res.Draft.Body)
	assert.Equal(t, core.ChannelSMS, res.Draft.Channel)
}

func TestOffered(t *testing.T) {
	o := New(gatedCatalog(t, &counter{}), nil, func(o *Options) { o.Integrations = []string{"calendar"} })

	names := func(ch core.Channel) []string {
		var out []string
		for _, td := range o.Tools(testutil.NewContextBuilder(testutil.Tenant, ch).Build()) {
			out = append(out, td.Function.Name)
		}
		return out
	}

	chat := names(core.ChannelChat)
	assert.Contains(t, chat, "book")
	assert.NotContains(t, chat, "refund")
	assert.NotContains(t, chat, "hangup")
	assert.Contains(t, names(core.ChannelVoiceInbound), "hangup")
}

func TestSystemPrompt(t *testing.T) {
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	s, fx := testutil.Seed(t, now)
	cat := catalog.New()
	require.NoError(t, actions.Register(cat, actions.Deps{Store: s}))
	o := New(cat, enrichment.New(s), func(o *Options) { o.CompanyName = "Acme Roofing" })

	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelSMS).Contact(fx.Contact.ID).Build()
	o.Enrich(context.Background(), ec)
	prompt := o.SystemPrompt(ec)

	order := []string{"Acme Roofing", "## Channel: SMS", "## Contact", "Ann Lee", "## Authorization", "payments", `tag "es"`}
	last := -1
	for _, marker := range order {
		idx := strings.Index(prompt, marker)
		require.GreaterOrEqual(t, idx, 0, marker)
		assert.Greater(t, idx, last, marker)
		last = idx
	}
}

func TestSystemPrompt_ChatPage(t *testing.T) {
	o := New(gatedCatalog(t, &counter{}), nil)
	ec := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Page("projects").Build()
	o.Enrich(context.Background(), ec)
	prompt := o.SystemPrompt(ec)
	assert.Contains(t, prompt, "our company")
	assert.Contains(t, prompt, `"projects" page`)
	assert.NotContains(t, prompt, "Respond in the language")
}

func TestExecuteFunction_LateCompletionIsLogged(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	cat := catalog.New()
	require.NoError(t, cat.Register(catalog.Action{
		Name: "stubborn", Description: "Ignores cancellation", Category: "notes", Risk: core.RiskLow, EnabledByDefault: true,
		Execute: func(context.Context, *core.ExecutionContext, map[string]any) (*core.ExecutionResult, error) {
			<-release
			finished.Store(true)
			return &core.ExecutionResult{Success: true, Message: "done"}, nil
		},
	}))
	cat.Seal()

	lg := &recordingLogger{}
	o := New(cat, nil, func(o *Options) {
		o.ToolTimeout = 10 * time.Millisecond
		o.Logger = lg
	})
	chat := testutil.NewContextBuilder(testutil.Tenant, core.ChannelChat).Build()

	res := o.ExecuteFunction(context.Background(), "stubborn", nil, chat)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")
	assert.False(t, finished.Load())
	assert.False(t, lg.logged("orchestrator.action.late_completion"))

	close(release)
	require.Eventually(t, func() bool { return lg.logged("orchestrator.action.late_completion") }, time.Second, 5*time.Millisecond)
	assert.True(t, finished.Load())
}

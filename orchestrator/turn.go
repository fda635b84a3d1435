package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TurnState is a state of the two-pass turn.
type TurnState string

// Turn states.
const (
	StateIdle             TurnState = "idle"
	StatePromptAssembled  TurnState = "prompt_assembled"
	StateModelInvoked     TurnState = "model_invoked"
	StateToolCallsPending TurnState = "tool_calls_pending"
	StateResponseReady    TurnState = "response_ready"
)

// ToolState is the lifecycle state of a single tool call.
type ToolState string

// Tool call states.
const (
	ToolDispatched ToolState = "dispatched"
	ToolSucceeded  ToolState = "succeeded"
	ToolFailed     ToolState = "failed"
)

// TurnRequest is the input of RunTurn.
type TurnRequest struct {
	Context *core.ExecutionContext
	// SystemPrompt overrides the assembled prompt when set.
	SystemPrompt string
	History      []core.Content
	UserText     string
	// Tools overrides the offered tool schemas when non-nil.
	Tools []model.ToolDefinition
}

// ToolOutcome is the record of one dispatched tool call.
type ToolOutcome struct {
	Call   core.FunctionCall    `json:"call"`
	Result core.ExecutionResult `json:"result"`
	State  ToolState            `json:"state"`
}

// PendingConfirmation is an action waiting for the user's explicit consent.
// Approving it means calling ExecutionContext.ConfirmCall with Action and Args
// on the next turn.
type PendingConfirmation struct {
	Action string         `json:"action"`
	Prompt string         `json:"prompt"`
	Args   map[string]any `json:"args,omitempty"`
}

// TurnResult is the outcome of RunTurn. The final state is always
// StateResponseReady.
type TurnResult struct {
	Reply                string                `json:"reply"`
	Fallback             bool                  `json:"fallback"`
	States               []TurnState           `json:"states"`
	Tools                []ToolOutcome         `json:"tools,omitempty"`
	Drafts               []core.Draft          `json:"drafts,omitempty"`
	PendingConfirmations []PendingConfirmation `json:"pending_confirmations,omitempty"`
	ModelCalls           int                   `json:"model_calls"`
	Err                  error                 `json:"-"`
}

// State returns the last state reached.
func (r *TurnResult) State() TurnState {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

func (r *TurnResult) enter(s TurnState) { r.States = append(r.States, s) }

// ErrEmptyReply is recorded when the model produced neither text nor tool calls.
var ErrEmptyReply = errors.New("model returned an empty reply")

// RunTurn executes one conversational turn: the model is called with the
// tool schemas, any requested tools run sequentially in the requested order,
// and a second call without tools phrases the final reply. Model failures
// and empty replies yield the fallback message.
func (o *Orchestrator) RunTurn(ctx context.Context, llm model.Model, req TurnRequest) TurnResult {
	ec := req.Context
	if ec == nil {
		ec = core.NewExecutionContext("", "", core.ChannelChat)
	}
	ctx, span := o.opts.Tracer.Start(ctx, "orchestrator.turn",
		trace.WithAttributes(
			attribute.String("tenant_id", ec.TenantID),
			attribute.String("channel", string(ec.Channel)),
			attribute.String("model", llm.Info().Name),
		))
	defer span.End()

	res := TurnResult{}
	res.enter(StateIdle)

	prompt := req.SystemPrompt
	if prompt == "" {
		prompt = o.SystemPrompt(ec)
	}
	tools := req.Tools
	if tools == nil {
		tools = o.Tools(ec)
	}
	contents := append([]core.Content(nil), req.History...)
	contents = append(contents, core.NewTextContent(core.RoleUser, req.UserText))
	res.enter(StatePromptAssembled)

	budget := &callBudget{max: o.opts.MaxModelCalls}
	first, err := o.generate(ctx, llm, budget, model.Request{Instructions: prompt, Contents: contents, Tools: tools})
	res.enter(StateModelInvoked)
	if err != nil {
		return o.fallback(span, res, budget, err)
	}

	calls := first.Content.FunctionCalls()
	if len(calls) == 0 {
		return o.finish(span, res, budget, first.Content.Text())
	}

	res.enter(StateToolCallsPending)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = core.NewID()
		}
	}
	contents = append(contents, core.Content{Role: core.RoleAssistant, Parts: callParts(first.Content.Text(), calls)})

	responses := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		outcome := o.dispatch(ctx, call, ec)
		res.Tools = append(res.Tools, outcome)
		if d := outcome.Result.Draft; d != nil && outcome.Result.AwaitingApproval {
			res.Drafts = append(res.Drafts, *d)
		}
		if outcome.Result.AwaitingConfirmation {
			args, _ := decodeArgs(call.Arguments)
			res.PendingConfirmations = append(res.PendingConfirmations, PendingConfirmation{Action: call.Name, Prompt: outcome.Result.ConfirmationPrompt, Args: args})
		}
		responses = append(responses, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: outcome.Result.ModelPayload(),
		}})
	}
	contents = append(contents, core.Content{Role: core.RoleTool, Parts: responses})
	span.SetAttributes(attribute.Int("tool_calls", len(calls)))

	second, err := o.generate(ctx, llm, budget, model.Request{Instructions: prompt, Contents: contents})
	if err != nil {
		return o.fallback(span, res, budget, err)
	}
	return o.finish(span, res, budget, second.Content.Text())
}

func callParts(text string, calls []core.FunctionCall) []core.Part {
	parts := make([]core.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return parts
}

// dispatch executes one tool call. Arguments that are not a JSON object are
// reported back as a validation failure.
func (o *Orchestrator) dispatch(ctx context.Context, call core.FunctionCall, ec *core.ExecutionContext) ToolOutcome {
	o.opts.Logger.Debug("orchestrator.tool.dispatched", "action", call.Name, "call_id", call.ID)

	var result core.ExecutionResult
	args, err := decodeArgs(call.Arguments)
	if err != nil {
		result = *core.Failed(fmt.Sprintf("invalid arguments for %s: %v", call.Name, err))
	} else {
		result = o.ExecuteFunction(ctx, call.Name, args, ec)
	}

	state := ToolSucceeded
	if !result.Success && !result.NeedsExternalAction() {
		state = ToolFailed
	}
	return ToolOutcome{Call: call, Result: result, State: state}
}

func decodeArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

type modelCallLogger interface {
	LogModelCall(model string, tokens int, dur time.Duration, success bool, err error)
}

func (o *Orchestrator) generate(ctx context.Context, llm model.Model, budget *callBudget, req model.Request) (model.Response, error) {
	if err := budget.spend(); err != nil {
		return model.Response{}, err
	}
	start := o.opts.Clock()
	resp, err := model.Collect(ctx, llm, req)
	if l, ok := o.opts.Logger.(modelCallLogger); ok {
		tokens := 0
		if resp.Usage != nil {
			tokens = resp.Usage.TotalTokens
		}
		l.LogModelCall(llm.Info().Name, tokens, o.opts.Clock().Sub(start), err == nil, err)
	}
	return resp, err
}

func (o *Orchestrator) finish(span trace.Span, res TurnResult, budget *callBudget, text string) TurnResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.fallback(span, res, budget, ErrEmptyReply)
	}
	res.Reply = text
	res.ModelCalls = budget.used
	res.enter(StateResponseReady)
	return res
}

func (o *Orchestrator) fallback(span trace.Span, res TurnResult, budget *callBudget, err error) TurnResult {
	o.opts.Logger.Warn("orchestrator.turn.fallback", "error", err, "state", string(res.State()))
	span.RecordError(err)
	span.SetStatus(codes.Error, "fallback")
	res.Reply = o.opts.FallbackMessage
	res.Fallback = true
	res.Err = err
	res.ModelCalls = budget.used
	res.enter(StateResponseReady)
	return res
}

// Package orchestrator coordinates the action catalog and the enrichment
// pipeline: it assembles system prompts, gates actions by channel,
// integration, authorization and risk, and drives the two-pass tool-calling
// turn against a model.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/logging"
	"github.com/hupe1980/actionmesh/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultFallbackMessage is returned to the user when a turn cannot produce
// a reply.
const DefaultFallbackMessage = "Sorry, I ran into a problem handling that. A team member will follow up shortly."

// Options configures an Orchestrator.
type Options struct {
	// CompanyName is rendered into the base prompt.
	CompanyName string
	// BasePrompt is a text/template rendered with {Company}.
	BasePrompt string
	// ForbiddenCategories are never offered nor executed.
	ForbiddenCategories []string
	// Integrations are the tenant's active integrations.
	Integrations []string
	// ToolTimeout bounds a single action execution.
	ToolTimeout time.Duration
	// MaxModelCalls bounds model invocations per turn.
	MaxModelCalls   int
	FallbackMessage string
	Logger          logging.Logger
	Tracer          trace.Tracer
	Clock           func() time.Time
}

// Orchestrator is safe for concurrent use once the catalog is sealed.
type Orchestrator struct {
	catalog  *catalog.Catalog
	pipeline *enrichment.Pipeline
	opts     Options
}

// New creates an Orchestrator. pipeline may be nil, in which case contexts
// are used as supplied.
func New(cat *catalog.Catalog, pipeline *enrichment.Pipeline, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		BasePrompt:          defaultBasePrompt,
		ForbiddenCategories: []string{"payments"},
		ToolTimeout:         15 * time.Second,
		MaxModelCalls:       2,
		FallbackMessage:     DefaultFallbackMessage,
		Clock:               time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/actionmesh/orchestrator")
	}
	return &Orchestrator{catalog: cat, pipeline: pipeline, opts: opts}
}

// Catalog returns the underlying catalog.
func (o *Orchestrator) Catalog() *catalog.Catalog { return o.catalog }

// FallbackMessage returns the configured fallback reply.
func (o *Orchestrator) FallbackMessage() string { return o.opts.FallbackMessage }

// Enrich runs the enrichment pipeline on ec, if one is configured.
func (o *Orchestrator) Enrich(ctx context.Context, ec *core.ExecutionContext) *core.EnrichmentBundle {
	if o.pipeline == nil {
		if ec.Bundle == nil {
			ec.Bundle = &core.EnrichmentBundle{}
		}
		return ec.Bundle
	}
	return o.pipeline.Enrich(ctx, ec)
}

// Offered returns the actions the model may call in ec: enabled for the
// tenant's integrations, allowed on the channel and not forbidden.
func (o *Orchestrator) Offered(ec *core.ExecutionContext) []catalog.Action {
	var out []catalog.Action
	for _, a := range o.catalog.ListEnabled(o.opts.Integrations) {
		if a.AllowedOn(ec.Channel) && !o.forbidden(a.Category) {
			out = append(out, a)
		}
	}
	return out
}

// Tools returns the callable schemas of Offered.
func (o *Orchestrator) Tools(ec *core.ExecutionContext) []model.ToolDefinition {
	return catalog.Schemas(o.Offered(ec))
}

func (o *Orchestrator) forbidden(category string) bool {
	return slices.Contains(o.opts.ForbiddenCategories, category)
}

// ExecuteFunction validates, gates and executes a single action. It never
// returns an error: every failure is reported as a structured result the
// model can read.
func (o *Orchestrator) ExecuteFunction(ctx context.Context, name string, args map[string]any, ec *core.ExecutionContext) core.ExecutionResult {
	ctx, span := o.opts.Tracer.Start(ctx, "orchestrator.execute_function",
		trace.WithAttributes(
			attribute.String("action", name),
			attribute.String("tenant_id", ec.TenantID),
			attribute.String("channel", string(ec.Channel)),
		))
	defer span.End()

	res, err := o.execute(ctx, name, args, ec)
	if err != nil {
		code := catalog.CodeOf(err)
		if code == "" {
			code = catalog.CodeExecution
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
	}
	span.SetAttributes(
		attribute.Bool("success", res.Success),
		attribute.Bool("awaiting_confirmation", res.AwaitingConfirmation),
		attribute.Bool("awaiting_approval", res.AwaitingApproval),
	)
	return *res
}

func (o *Orchestrator) execute(ctx context.Context, name string, args map[string]any, ec *core.ExecutionContext) (*core.ExecutionResult, error) {
	a, ok := o.catalog.Get(name)
	if !ok {
		return reject(catalog.NewActionError(name, "unknown action "+name, catalog.CodeNotFound))
	}
	if !a.AllowedOn(ec.Channel) {
		return reject(catalog.NewActionError(name, fmt.Sprintf("%s is not available on the %s channel", name, ec.Channel), catalog.CodeForbidden))
	}
	if !a.IntegrationsSatisfied(o.opts.Integrations) {
		return reject(catalog.NewActionError(name, fmt.Sprintf("%s requires an integration that is not connected", name), catalog.CodeUnavailable))
	}
	if o.forbidden(a.Category) {
		return reject(catalog.NewActionError(name, fmt.Sprintf("you are not authorized to perform %s actions", a.Category), catalog.CodeForbidden))
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := o.catalog.Validate(name, args); err != nil {
		return reject(err)
	}
	if a.RequiresConfirmation() && !ec.ConsumeConfirmation(name, args) {
		o.opts.Logger.Info("orchestrator.action.confirmation_required", "action", name, "risk", a.Risk.String(), "user_id", ec.UserID)
		return core.NeedsConfirmation(a.Prompt(args)), nil
	}

	o.opts.Logger.Info("orchestrator.action.start",
		"action", name,
		"category", a.Category,
		"risk", a.Risk.String(),
		"tenant_id", ec.TenantID,
		"user_id", ec.UserID,
		"channel", string(ec.Channel),
	)

	start := o.opts.Clock()
	res, err := o.invoke(ctx, a, ec, args)
	dur := o.opts.Clock().Sub(start)

	switch {
	case err != nil:
		res = core.Failed(userMessage(err))
	case res == nil:
		err = catalog.NewActionError(name, "no result", catalog.CodeExecution)
		res = core.Failed("the action returned no result")
	case a.RequiresApproval():
		res = asDraft(res, ec)
	}
	o.logOutcome(a, dur, res, err)
	return res, err
}

func reject(err error) (*core.ExecutionResult, error) {
	return core.Failed(userMessage(err)), err
}

func userMessage(err error) string {
	var ae *catalog.ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "the action failed"
}

// invoke runs the executor with a timeout and converts panics to errors.
// Executor errors are returned as is; only ActionError messages reach the
// model.
func (o *Orchestrator) invoke(ctx context.Context, a catalog.Action, ec *core.ExecutionContext, args map[string]any) (*core.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.ToolTimeout)
	defer cancel()

	started := o.opts.Clock()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.opts.Logger.Error("orchestrator.action.panic", "action", a.Name, "panic", fmt.Sprint(r))
				done <- outcome{err: catalog.NewActionError(a.Name, "the action failed unexpectedly", catalog.CodeExecution)}
			}
		}()
		res, err := a.Execute(ctx, ec, args)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) {
			return nil, timedOut(a.Name)
		}
		return out.res, out.err
	case <-ctx.Done():
		go o.awaitLate(a.Name, started, done)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, timedOut(a.Name)
		}
		return nil, catalog.NewActionError(a.Name, "the action was cancelled", catalog.CodeExecution)
	}
}

type outcome struct {
	res *core.ExecutionResult
	err error
}

// awaitLate logs an executor that returns after invoke stopped waiting for
// it. Its result is discarded.
func (o *Orchestrator) awaitLate(name string, started time.Time, done <-chan outcome) {
	out := <-done
	o.opts.Logger.Warn("orchestrator.action.late_completion",
		"action", name,
		"elapsed", o.opts.Clock().Sub(started),
		"success", out.err == nil && out.res != nil && out.res.Success,
		"error", out.err)
}

func timedOut(name string) error {
	return catalog.NewActionError(name, "the action timed out", catalog.CodeTimeout)
}

// asDraft forces approval-gated results into the AwaitingApproval + Draft
// shape. Failures pass through unchanged.
func asDraft(res *core.ExecutionResult, ec *core.ExecutionContext) *core.ExecutionResult {
	if !res.Success && res.Draft == nil {
		return res
	}
	d := res.Draft
	if d == nil {
		d = &core.Draft{Channel: ec.Channel, Body: res.Message}
	}
	if d.ID == "" {
		d.ID = core.NewID()
	}
	msg := res.Message
	if msg == "" {
		msg = "Draft created and awaiting approval."
	}
	return core.NeedsApproval(d, msg)
}

type actionCallLogger interface {
	LogActionCall(action, category, risk string, dur time.Duration, success bool, err error)
}

func (o *Orchestrator) logOutcome(a catalog.Action, dur time.Duration, res *core.ExecutionResult, err error) {
	success := res.Success || res.NeedsExternalAction()
	if l, ok := o.opts.Logger.(actionCallLogger); ok {
		l.LogActionCall(a.Name, a.Category, a.Risk.String(), dur, success, err)
		return
	}
	if !success {
		reason := res.Error
		if err != nil {
			reason = err.Error()
		}
		o.opts.Logger.Warn("orchestrator.action.failed", "action", a.Name, "duration", dur, "error", reason)
		return
	}
	o.opts.Logger.Info("orchestrator.action.done", "action", a.Name, "duration", dur)
}

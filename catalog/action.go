package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/internal/util"
)

// Executor performs an action. Args have already been validated against the
// action's parameter schema. A returned error is folded into a failed
// ExecutionResult by the orchestrator.
//
// Executors must return promptly once ctx is done. The orchestrator stops
// waiting at its tool timeout but cannot stop the executor; an executor that
// ignores ctx keeps running in the background and its late result is only
// logged.
type Executor func(ctx context.Context, ec *core.ExecutionContext, args map[string]any) (*core.ExecutionResult, error)

// Action is a typed, risk-classified capability the model may call.
//
// Actions are registered at startup and immutable afterwards. Parameters is a
// JSON Schema object, usually derived from a typed params struct via Typed.
type Action struct {
	Name        string
	Description string
	Category    string
	Risk        core.RiskLevel
	Policy      core.Policy
	Parameters  map[string]any

	// RequiredIntegrations lists tenant integrations (e.g. "sms", "calendar")
	// that must be active for the action to be offered.
	RequiredIntegrations []string
	// EnabledByDefault offers the action when it needs no integration.
	EnabledByDefault bool
	// Channels restricts the action to the listed channels. Empty means all.
	Channels []core.Channel

	// ConfirmationPrompt renders the question shown when the action waits for
	// confirmation. Optional.
	ConfirmationPrompt func(args map[string]any) string

	Execute Executor
}

// RequiresConfirmation reports whether the executor may only run after an
// explicit per-call confirmation.
func (a Action) RequiresConfirmation() bool {
	return a.Policy == core.PolicyRequiresConfirmation || a.Risk == core.RiskHigh
}

// RequiresApproval reports whether results must be returned as drafts.
func (a Action) RequiresApproval() bool {
	return a.Policy == core.PolicyRequiresApproval
}

// AllowedOn reports whether the action may run on the given channel.
func (a Action) AllowedOn(ch core.Channel) bool {
	return len(a.Channels) == 0 || slices.Contains(a.Channels, ch)
}

// IntegrationsSatisfied reports whether every required integration is active.
func (a Action) IntegrationsSatisfied(active []string) bool {
	for _, req := range a.RequiredIntegrations {
		if !slices.Contains(active, req) {
			return false
		}
	}
	return true
}

// Prompt returns the confirmation question for args.
func (a Action) Prompt(args map[string]any) string {
	if a.ConfirmationPrompt != nil {
		if p := a.ConfirmationPrompt(args); p != "" {
			return p
		}
	}
	return fmt.Sprintf("Please confirm: %s?", a.Description)
}

// Typed derives the parameter schema of a from the params struct P and binds
// the raw arguments into P before calling fn.
//
// Example:
//
//	type GetContactParams struct {
//	  ContactID string `json:"contact_id" description:"Contact identifier"`
//	}
//
//	cat.MustRegister(catalog.Typed(catalog.Action{
//	  Name:     "get_contact",
//	  Category: "contacts",
//	  Risk:     core.RiskLow,
//	}, func(ctx context.Context, ec *core.ExecutionContext, p GetContactParams) (*core.ExecutionResult, error) {
//	  ...
//	}))
func Typed[P any](a Action, fn func(ctx context.Context, ec *core.ExecutionContext, p P) (*core.ExecutionResult, error)) Action {
	var zero P
	a.Parameters = util.CreateSchema(zero)
	a.Execute = func(ctx context.Context, ec *core.ExecutionContext, args map[string]any) (*core.ExecutionResult, error) {
		p, err := Bind[P](args)
		if err != nil {
			return nil, NewActionError(a.Name, err.Error(), CodeValidation)
		}
		return fn(ctx, ec, p)
	}
	return a
}

// Bind decodes validated args into the params struct P.
func Bind[P any](args map[string]any) (P, error) {
	var p P
	if err := util.Decode(args, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Package catalog holds the registry of actions the assistant may invoke.
//
// A Catalog is populated at startup, optionally sealed, and then read
// concurrently by every turn. Each action carries a JSON Schema compiled at
// registration time; arguments produced by the model are validated against it
// before an executor ever sees them.
package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type entry struct {
	action Action
	schema *jsonschema.Schema
}

// Catalog is a registry of actions keyed by unique name.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]entry
	sealed  atomic.Bool
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]entry)}
}

// Register adds a or replaces the action registered under the same name.
func (c *Catalog) Register(a Action) error {
	if c.sealed.Load() {
		return ErrSealed
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAction)
	}
	if a.Execute == nil {
		return fmt.Errorf("%w: %s has no executor", ErrInvalidAction, a.Name)
	}
	if a.Parameters == nil {
		a.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	schema, err := compile(a.Name, a.Parameters)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed.Load() {
		return ErrSealed
	}
	c.entries[a.Name] = entry{action: a, schema: schema}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(actions ...Action) {
	for _, a := range actions {
		if err := c.Register(a); err != nil {
			panic(err)
		}
	}
}

// Seal freezes the catalog. Later registrations fail with ErrSealed and reads
// no longer take the lock.
func (c *Catalog) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed.Store(true)
}

// Sealed reports whether Seal was called.
func (c *Catalog) Sealed() bool { return c.sealed.Load() }

func (c *Catalog) read() (map[string]entry, func()) {
	if c.sealed.Load() {
		return c.entries, func() {}
	}
	c.mu.RLock()
	return c.entries, c.mu.RUnlock
}

// Get looks up an action by name.
func (c *Catalog) Get(name string) (Action, bool) {
	entries, done := c.read()
	defer done()
	e, ok := entries[name]
	return e.action, ok
}

// Len returns the number of registered actions.
func (c *Catalog) Len() int {
	entries, done := c.read()
	defer done()
	return len(entries)
}

// All returns every action sorted by name.
func (c *Catalog) All() []Action {
	return c.filter(func(Action) bool { return true })
}

// ListByCategory returns the actions of a category sorted by name.
func (c *Catalog) ListByCategory(category string) []Action {
	return c.filter(func(a Action) bool { return a.Category == category })
}

// ListByRisk returns the actions whose risk does not exceed maxRisk.
func (c *Catalog) ListByRisk(maxRisk core.RiskLevel) []Action {
	return c.filter(func(a Action) bool { return a.Risk.AtMost(maxRisk) })
}

// ListEnabled returns the actions available for a tenant with the given active
// integrations: those whose required integrations are all present, plus those
// needing none that are enabled by default.
func (c *Catalog) ListEnabled(integrations []string) []Action {
	return c.filter(func(a Action) bool {
		if len(a.RequiredIntegrations) == 0 {
			return a.EnabledByDefault
		}
		return a.IntegrationsSatisfied(integrations)
	})
}

func (c *Catalog) filter(keep func(Action) bool) []Action {
	entries, done := c.read()
	out := make([]Action, 0, len(entries))
	for _, e := range entries {
		if keep(e.action) {
			out = append(out, e.action)
		}
	}
	done()
	slices.SortFunc(out, func(a, b Action) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ToCallableSchemas returns the tool definitions of every action, sorted by name.
func (c *Catalog) ToCallableSchemas() []model.ToolDefinition {
	return Schemas(c.All())
}

// Schemas converts actions to model tool definitions, preserving order.
func Schemas(actions []Action) []model.ToolDefinition {
	out := make([]model.ToolDefinition, len(actions))
	for i, a := range actions {
		out[i] = model.NewToolDefinition(a.Name, a.Description, a.Parameters)
	}
	return out
}

// Validate checks args against the parameter schema of the named action.
func (c *Catalog) Validate(name string, args map[string]any) error {
	entries, done := c.read()
	e, ok := entries[name]
	done()
	if !ok {
		return NewActionError(name, "unknown action", CodeNotFound)
	}

	doc, err := normalize(args)
	if err != nil {
		return NewActionError(name, err.Error(), CodeValidation)
	}
	if err := e.schema.Validate(doc); err != nil {
		return NewActionError(name, fmt.Sprintf("parameter validation failed: %v", err), CodeValidation)
	}
	return nil
}

func compile(name string, params map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s schema: %v", ErrInvalidAction, name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	url := "actionmesh://actions/" + name + ".json"
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("%w: %s schema: %v", ErrInvalidAction, name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s schema: %v", ErrInvalidAction, name, err)
	}
	return schema, nil
}

// normalize round-trips args through JSON so that Go-typed values validate the
// same way model-produced JSON does.
func normalize(args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

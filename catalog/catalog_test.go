package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/actionmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func noop(_ context.Context, _ *core.ExecutionContext, _ map[string]any) (*core.ExecutionResult, error) {
	return core.Succeeded(nil, "ok"), nil
}

type contactParams struct {
	ContactID string `json:"contact_id" description:"Contact identifier"`
	Limit     int    `json:"limit,omitempty"`
}

func TestRegister_GetAfterRegister(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(Action{Name: "get_contact", Category: "contacts", Execute: noop}))

	a, ok := c.Get("get_contact")
	require.True(t, ok)
	assert.Equal(t, "contacts", a.Category)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestRegister_LastWins(t *testing.T) {
	c := New()
	c.MustRegister(
		Action{Name: "x", Description: "first", Execute: noop},
		Action{Name: "x", Description: "second", Execute: noop},
	)
	a, _ := c.Get("x")
	assert.Equal(t, "second", a.Description)
	assert.Equal(t, 1, c.Len())
}

func TestRegister_PresenceChecks(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Register(Action{Execute: noop}), ErrInvalidAction)
	assert.ErrorIs(t, c.Register(Action{Name: "x"}), ErrInvalidAction)
	assert.ErrorIs(t, c.Register(Action{Name: "bad", Execute: noop, Parameters: map[string]any{"type": 42}}), ErrInvalidAction)
	assert.Panics(t, func() { c.MustRegister(Action{Name: "y"}) })
}

func TestSeal(t *testing.T) {
	c := New()
	c.MustRegister(Action{Name: "a", Execute: noop})
	c.Seal()
	assert.True(t, c.Sealed())
	assert.ErrorIs(t, c.Register(Action{Name: "b", Execute: noop}), ErrSealed)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := c.Get("a")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestListings(t *testing.T) {
	c := New()
	c.MustRegister(
		Action{Name: "search_contacts", Category: "contacts", Risk: core.RiskLow, EnabledByDefault: true, Execute: noop},
		Action{Name: "delete_contact", Category: "contacts", Risk: core.RiskHigh, EnabledByDefault: true, Execute: noop},
		Action{Name: "send_sms", Category: "messaging", Risk: core.RiskHigh, RequiredIntegrations: []string{"sms"}, Execute: noop},
		Action{Name: "hidden", Category: "misc", Risk: core.RiskMedium, Execute: noop},
	)

	names := func(as []Action) []string {
		out := make([]string, len(as))
		for i, a := range as {
			out[i] = a.Name
		}
		return out
	}

	assert.Equal(t, []string{"delete_contact", "search_contacts"}, names(c.ListByCategory("contacts")))
	assert.Equal(t, []string{"hidden", "search_contacts"}, names(c.ListByRisk(core.RiskMedium)))
	assert.Equal(t, []string{"delete_contact", "search_contacts"}, names(c.ListEnabled(nil)))
	assert.Equal(t, []string{"delete_contact", "search_contacts", "send_sms"}, names(c.ListEnabled([]string{"sms"})))

	schemas := c.ToCallableSchemas()
	require.Len(t, schemas, 4)
	assert.Equal(t, "delete_contact", schemas[0].Function.Name)
	assert.Equal(t, "send_sms", schemas[3].Function.Name)
}

func TestValidate(t *testing.T) {
	c := New()
	c.MustRegister(Typed(Action{Name: "get_contact", Execute: noop}, func(_ context.Context, _ *core.ExecutionContext, p contactParams) (*core.ExecutionResult, error) {
		return core.Succeeded(p.ContactID, ""), nil
	}))

	assert.NoError(t, c.Validate("get_contact", map[string]any{"contact_id": "c1", "limit": 3}))

	err := c.Validate("get_contact", map[string]any{"limit": 3})
	assert.Equal(t, CodeValidation, CodeOf(err))

	err = c.Validate("get_contact", map[string]any{"contact_id": "c1", "extra": true})
	assert.Equal(t, CodeValidation, CodeOf(err))

	err = c.Validate("nope", nil)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestTyped_BindsParams(t *testing.T) {
	a := Typed(Action{Name: "get_contact"}, func(_ context.Context, _ *core.ExecutionContext, p contactParams) (*core.ExecutionResult, error) {
		return core.Succeeded(fmt.Sprintf("%s/%d", p.ContactID, p.Limit), ""), nil
	})

	res, err := a.Execute(context.Background(), nil, map[string]any{"contact_id": "c9", "limit": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "c9/2", res.Data)

	_, err = a.Execute(context.Background(), nil, map[string]any{"limit": "two"})
	var ae *ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, CodeValidation, ae.Code)
}

func TestAction_Predicates(t *testing.T) {
	a := Action{Name: "transfer_call", Risk: core.RiskMedium, Channels: []core.Channel{core.ChannelVoiceInbound}}
	assert.False(t, a.RequiresConfirmation())
	assert.True(t, a.AllowedOn(core.ChannelVoiceInbound))
	assert.False(t, a.AllowedOn(core.ChannelSMS))

	assert.True(t, Action{Risk: core.RiskHigh}.RequiresConfirmation())
	assert.True(t, Action{Policy: core.PolicyRequiresConfirmation}.RequiresConfirmation())
	assert.True(t, Action{Policy: core.PolicyRequiresApproval}.RequiresApproval())

	assert.Equal(t, "Please confirm: Delete a contact?", Action{Description: "Delete a contact"}.Prompt(nil))
	assert.Equal(t, "Delete c1?", Action{ConfirmationPrompt: func(args map[string]any) string {
		return fmt.Sprintf("Delete %v?", args["id"])
	}}.Prompt(map[string]any{"id": "c1"}))
}

func TestActionError(t *testing.T) {
	err := NewActionError("get_contact", "not found", CodeNotFound)
	assert.Equal(t, "action error [NOT_FOUND] in get_contact: not found", err.Error())
	assert.Equal(t, "action error in x: boom", (&ActionError{Action: "x", Message: "boom"}).Error())
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestProperty01_LastRegistrationWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		names := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 1, 20).Draw(t, "names")
		last := map[string]int{}
		for i, n := range names {
			c.MustRegister(Action{Name: n, Description: fmt.Sprint(i), Execute: noop})
			last[n] = i
		}
		if c.Len() != len(last) {
			t.Fatalf("len %d, want %d", c.Len(), len(last))
		}
		for n, i := range last {
			a, ok := c.Get(n)
			if !ok || a.Description != fmt.Sprint(i) {
				t.Fatalf("%s: got %q, want %d", n, a.Description, i)
			}
		}
	})
}

func TestProperty02_ListEnabledIntegrationSatisfied(t *testing.T) {
	integrations := []string{"sms", "email", "calendar", "voice"}
	rapid.Check(t, func(t *rapid.T) {
		c := New()
		n := rapid.IntRange(1, 12).Draw(t, "n")
		for i := 0; i < n; i++ {
			c.MustRegister(Action{
				Name:                 fmt.Sprintf("action_%d", i),
				RequiredIntegrations: rapid.SliceOfNDistinct(rapid.SampledFrom(integrations), 0, 2, rapid.ID[string]).Draw(t, "req"),
				EnabledByDefault:     rapid.Bool().Draw(t, "default"),
				Execute:              noop,
			})
		}
		active := rapid.SliceOfNDistinct(rapid.SampledFrom(integrations), 0, 4, rapid.ID[string]).Draw(t, "active")

		for _, a := range c.ListEnabled(active) {
			if _, ok := c.Get(a.Name); !ok {
				t.Fatalf("%s not in catalog", a.Name)
			}
			if !a.IntegrationsSatisfied(active) {
				t.Fatalf("%s requires %v, active %v", a.Name, a.RequiredIntegrations, active)
			}
		}
	})
}

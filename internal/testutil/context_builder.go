package testutil

import (
	"github.com/hupe1980/actionmesh/core"
)

// ContextBuilder helps construct execution contexts with fluent chaining.
// Example:
//
//	ec := NewContextBuilder("t1", core.ChannelSMS).Phone("+15551234567").Build()
type ContextBuilder struct {
	ec *core.ExecutionContext
}

// NewContextBuilder creates a builder for a context of the given tenant and
// channel. The user defaults to "user-1".
func NewContextBuilder(tenantID string, channel core.Channel) *ContextBuilder {
	return &ContextBuilder{ec: core.NewExecutionContext(tenantID, "user-1", channel)}
}

// User sets the acting user (chainable).
func (b *ContextBuilder) User(id string) *ContextBuilder {
	b.ec.UserID = id
	return b
}

// Contact sets the focal contact id (chainable).
func (b *ContextBuilder) Contact(id string) *ContextBuilder {
	b.ec.ContactID = id
	return b
}

// Project sets the focal project id (chainable).
func (b *ContextBuilder) Project(id string) *ContextBuilder {
	b.ec.ProjectID = id
	return b
}

// Phone sets the counterpart phone number (chainable).
func (b *ContextBuilder) Phone(phone string) *ContextBuilder {
	b.ec.Phone = phone
	return b
}

// Call sets the active call id (chainable).
func (b *ContextBuilder) Call(id string) *ContextBuilder {
	b.ec.CallID = id
	return b
}

// Page sets the chat page (chainable).
func (b *ContextBuilder) Page(page string) *ContextBuilder {
	b.ec.Page = page
	return b
}

// Confirmed records an explicit confirmation for action (chainable).
func (b *ContextBuilder) Confirmed(action string) *ContextBuilder {
	b.ec.Confirm(action, b.ec.UserID)
	return b
}

// Build returns the constructed context.
func (b *ContextBuilder) Build() *core.ExecutionContext {
	return b.ec
}

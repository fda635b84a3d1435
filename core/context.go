package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// EnrichmentBundle is the multi-source state attached to a context before
// prompting. Every slice is bounded and ordered.
type EnrichmentBundle struct {
	Activities []Activity      `json:"activities,omitempty"` // newest-first
	Upcoming   []Task          `json:"upcoming,omitempty"`   // soonest-first, undated last
	Messages   []Message       `json:"messages,omitempty"`   // newest-first, sms only
	Errors     []PlatformError `json:"errors,omitempty"`     // chat only
}

// IsEmpty reports whether no slice carries data.
func (b *EnrichmentBundle) IsEmpty() bool {
	return b == nil || (len(b.Activities) == 0 && len(b.Upcoming) == 0 && len(b.Messages) == 0 && len(b.Errors) == 0)
}

// Confirmation records that a human explicitly confirmed one call of an
// action. It is consumed by the first matching execution.
type Confirmation struct {
	Action string
	// ArgsDigest binds the confirmation to the confirmed arguments. Empty
	// accepts any arguments for the single call.
	ArgsDigest  string
	ConfirmedBy string
	ConfirmedAt time.Time
	Used        bool
}

// ArgsDigest returns a stable digest of args. Keys are sorted and numbers are
// compared by their JSON form, so typed and decoded arguments agree.
func ArgsDigest(args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	raw, _ = json.Marshal(doc)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ExecutionContext is created per turn, enriched once and discarded at turn
// end. It is bound to exactly one tenant.
type ExecutionContext struct {
	TenantID  string
	UserID    string
	Channel   Channel
	ContactID string
	ProjectID string
	CallID    string
	SessionID string
	// Phone is the remote party's number on sms / voice channels.
	Phone string
	// Language is a BCP-47 tag; live detection outside the core overrides it.
	Language string
	// Page is the chat surface the user is looking at, if any.
	Page string

	Contact *Contact
	Project *Project
	Bundle  *EnrichmentBundle

	// ClientErrors is the already capped and TTL filtered error buffer
	// supplied by a chat surface.
	ClientErrors []PlatformError

	Confirmation *Confirmation
}

// NewExecutionContext builds a context for a tenant, acting user and channel.
func NewExecutionContext(tenantID, userID string, channel Channel) *ExecutionContext {
	return &ExecutionContext{TenantID: tenantID, UserID: userID, Channel: channel}
}

// HasFocalEntity reports whether a contact or project is resolved.
func (ec *ExecutionContext) HasFocalEntity() bool {
	return ec.Contact != nil || ec.Project != nil
}

// Ref returns the EntityRef of the resolved focal entities.
func (ec *ExecutionContext) Ref() EntityRef {
	var ref EntityRef
	if ec.Contact != nil {
		ref.ContactID = ec.Contact.ID
	}
	if ec.Project != nil {
		ref.ProjectID = ec.Project.ID
	}
	return ref
}

// Confirm confirms exactly one call of action, whatever its arguments.
func (ec *ExecutionContext) Confirm(action, by string) {
	ec.Confirmation = &Confirmation{Action: action, ConfirmedBy: by, ConfirmedAt: time.Now()}
}

// ConfirmCall confirms exactly one call of action with args.
func (ec *ExecutionContext) ConfirmCall(action string, args map[string]any, by string) {
	ec.Confirmation = &Confirmation{Action: action, ArgsDigest: ArgsDigest(args), ConfirmedBy: by, ConfirmedAt: time.Now()}
}

// IsConfirmed reports whether an unused confirmation covers action with args.
func (ec *ExecutionContext) IsConfirmed(action string, args map[string]any) bool {
	c := ec.Confirmation
	if c == nil || c.Used || c.Action != action {
		return false
	}
	return c.ArgsDigest == "" || c.ArgsDigest == ArgsDigest(args)
}

// ConsumeConfirmation marks the confirmation used when it covers action with
// args and reports whether it did.
func (ec *ExecutionContext) ConsumeConfirmation(action string, args map[string]any) bool {
	if !ec.IsConfirmed(action, args) {
		return false
	}
	ec.Confirmation.Used = true
	return true
}

package actions

import (
	"context"
	"fmt"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// DraftSMSParams are the arguments of draft_sms.
type DraftSMSParams struct {
	Body      string `json:"body" description:"Message text"`
	To        string `json:"to,omitempty" description:"Recipient phone; defaults to the contact's phone"`
	ContactID string `json:"contact_id,omitempty"`
}

// DraftEmailParams are the arguments of draft_email.
type DraftEmailParams struct {
	Subject   string `json:"subject" description:"Email subject"`
	Body      string `json:"body" description:"Email body"`
	To        string `json:"to,omitempty" description:"Recipient address; defaults to the contact's email"`
	ContactID string `json:"contact_id,omitempty"`
}

// SendSMSParams are the arguments of send_sms.
type SendSMSParams struct {
	Body      string `json:"body" description:"Message text"`
	To        string `json:"to,omitempty" description:"Recipient phone; defaults to the contact's phone"`
	ContactID string `json:"contact_id,omitempty"`
}

func (h handlers) messagingActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:                 "draft_sms",
			Description:          "Draft a text message for human review before sending",
			Category:             CategoryMessaging,
			Risk:                 core.RiskMedium,
			Policy:               core.PolicyRequiresApproval,
			RequiredIntegrations: []string{IntegrationSMS},
		}, h.draftSMS),
		catalog.Typed(catalog.Action{
			Name:                 "draft_email",
			Description:          "Draft an email for human review before sending",
			Category:             CategoryMessaging,
			Risk:                 core.RiskMedium,
			Policy:               core.PolicyRequiresApproval,
			RequiredIntegrations: []string{IntegrationEmail},
		}, h.draftEmail),
		catalog.Typed(catalog.Action{
			Name:                 "send_sms",
			Description:          "Send a text message immediately",
			Category:             CategoryMessaging,
			Risk:                 core.RiskHigh,
			Policy:               core.PolicyRequiresConfirmation,
			RequiredIntegrations: []string{IntegrationSMS},
			ConfirmationPrompt: func(args map[string]any) string {
				return fmt.Sprintf("Send this text now: %q?", args["body"])
			},
		}, h.sendSMS),
	}
}

// recipient resolves an explicit address or falls back to the contact.
func (h handlers) recipient(ctx context.Context, ec *core.ExecutionContext, explicit, contactID string, pick func(*core.Contact) string) (string, string, error) {
	id := firstNonEmpty(contactID, ec.ContactID)
	if explicit != "" {
		return explicit, id, nil
	}
	if ec.Contact != nil && (id == "" || id == ec.Contact.ID) {
		return pick(ec.Contact), ec.Contact.ID, nil
	}
	if id == "" {
		return "", "", nil
	}
	c, err := h.Store.GetContact(ctx, ec.TenantID, id)
	if err != nil {
		return "", id, err
	}
	return pick(c), id, nil
}

func phoneOf(c *core.Contact) string { return c.Phone }
func emailOf(c *core.Contact) string { return c.Email }

func (h handlers) draftSMS(ctx context.Context, ec *core.ExecutionContext, p DraftSMSParams) (*core.ExecutionResult, error) {
	to, contactID, err := h.recipient(ctx, ec, p.To, p.ContactID, phoneOf)
	if err != nil {
		return lookupFailure("contact", err)
	}
	if to == "" {
		return core.Failed("no recipient phone number"), nil
	}
	d := &core.Draft{
		ID:        core.NewID(),
		Channel:   core.ChannelSMS,
		Recipient: to,
		Body:      p.Body,
		Metadata:  map[string]any{"contact_id": contactID, "created_by": ec.UserID},
	}
	return core.NeedsApproval(d, "Text message drafted for review"), nil
}

func (h handlers) draftEmail(ctx context.Context, ec *core.ExecutionContext, p DraftEmailParams) (*core.ExecutionResult, error) {
	to, contactID, err := h.recipient(ctx, ec, p.To, p.ContactID, emailOf)
	if err != nil {
		return lookupFailure("contact", err)
	}
	if to == "" {
		return core.Failed("no recipient email address"), nil
	}
	d := &core.Draft{
		ID:        core.NewID(),
		Channel:   core.ChannelEmail,
		Recipient: to,
		Subject:   p.Subject,
		Body:      p.Body,
		Metadata:  map[string]any{"contact_id": contactID, "created_by": ec.UserID},
	}
	return core.NeedsApproval(d, "Email drafted for review"), nil
}

func (h handlers) sendSMS(ctx context.Context, ec *core.ExecutionContext, p SendSMSParams) (*core.ExecutionResult, error) {
	if h.Messenger == nil {
		return nil, catalog.NewActionError("send_sms", "sms transport not configured", catalog.CodeUnavailable)
	}
	to, contactID, err := h.recipient(ctx, ec, p.To, p.ContactID, phoneOf)
	if err != nil {
		return lookupFailure("contact", err)
	}
	if to == "" {
		return core.Failed("no recipient phone number"), nil
	}

	id, err := h.Messenger.SendSMS(ctx, ec.TenantID, to, p.Body)
	if err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}

	msg := &core.Message{
		ID:        id,
		TenantID:  ec.TenantID,
		ContactID: contactID,
		Channel:   core.ChannelSMS,
		Direction: core.DirectionOutbound,
		To:        to,
		Body:      p.Body,
		Status:    "sent",
		CreatedAt: h.now(),
	}
	if err := h.Store.CreateMessage(ctx, msg); err != nil {
		h.Logger.Warn("actions.sms.persist_failed", "error", err.Error())
	}
	if contactID != "" {
		h.record(ctx, &core.Activity{
			TenantID:  ec.TenantID,
			ContactID: contactID,
			ProjectID: ec.ProjectID,
			Type:      "sms",
			Subject:   "Text message sent",
			Notes:     p.Body,
			CreatedBy: ec.UserID,
		})
	}
	return core.Succeeded(msg, "Text message sent"), nil
}

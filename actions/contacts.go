package actions

import (
	"context"
	"fmt"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// SearchContactsParams are the arguments of search_contacts.
type SearchContactsParams struct {
	Query string `json:"query" description:"Name, phone number or email to search for"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of results"`
}

// ContactRef selects a contact; the focal contact is used when empty.
type ContactRef struct {
	ContactID string `json:"contact_id,omitempty" description:"Contact identifier; defaults to the current contact"`
}

// CreateContactParams are the arguments of create_contact.
type CreateContactParams struct {
	FirstName string `json:"first_name" description:"First name"`
	LastName  string `json:"last_name,omitempty" description:"Last name"`
	Phone     string `json:"phone,omitempty" description:"Phone number"`
	Email     string `json:"email,omitempty" description:"Email address"`
	Address   string `json:"address,omitempty" description:"Street address"`
	Language  string `json:"language,omitempty" description:"Preferred language code, e.g. en or es"`
	Notes     string `json:"notes,omitempty" description:"Free-form notes"`
}

// UpdateContactParams are the arguments of update_contact. Empty fields are
// left unchanged.
type UpdateContactParams struct {
	ContactID string `json:"contact_id,omitempty" description:"Contact identifier; defaults to the current contact"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Language  string `json:"language,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DeleteContactParams are the arguments of delete_contact.
type DeleteContactParams struct {
	ContactID string `json:"contact_id" description:"Contact identifier"`
}

func (h handlers) contactActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:             "search_contacts",
			Description:      "Search contacts by name, phone number or email",
			Category:         CategoryContacts,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.searchContacts),
		catalog.Typed(catalog.Action{
			Name:             "get_contact",
			Description:      "Get the details of a contact",
			Category:         CategoryContacts,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.getContact),
		catalog.Typed(catalog.Action{
			Name:             "create_contact",
			Description:      "Create a new contact",
			Category:         CategoryContacts,
			Risk:             core.RiskMedium,
			EnabledByDefault: true,
		}, h.createContact),
		catalog.Typed(catalog.Action{
			Name:             "update_contact",
			Description:      "Update fields of an existing contact",
			Category:         CategoryContacts,
			Risk:             core.RiskMedium,
			EnabledByDefault: true,
		}, h.updateContact),
		catalog.Typed(catalog.Action{
			Name:             "delete_contact",
			Description:      "Permanently delete a contact",
			Category:         CategoryContacts,
			Risk:             core.RiskHigh,
			Policy:           core.PolicyRequiresConfirmation,
			EnabledByDefault: true,
			ConfirmationPrompt: func(args map[string]any) string {
				return fmt.Sprintf("Delete contact %v permanently?", args["contact_id"])
			},
		}, h.deleteContact),
	}
}

func (h handlers) searchContacts(ctx context.Context, ec *core.ExecutionContext, p SearchContactsParams) (*core.ExecutionResult, error) {
	contacts, err := h.Store.SearchContacts(ctx, ec.TenantID, p.Query, p.Limit)
	if err != nil {
		return nil, err
	}
	return core.Succeeded(contacts, fmt.Sprintf("Found %d contacts", len(contacts))), nil
}

func (h handlers) getContact(ctx context.Context, ec *core.ExecutionContext, p ContactRef) (*core.ExecutionResult, error) {
	id := firstNonEmpty(p.ContactID, ec.ContactID)
	if id == "" {
		return core.Failed("no contact specified"), nil
	}
	c, err := h.Store.GetContact(ctx, ec.TenantID, id)
	if err != nil {
		return lookupFailure("contact", err)
	}
	return core.Succeeded(c, ""), nil
}

func (h handlers) createContact(ctx context.Context, ec *core.ExecutionContext, p CreateContactParams) (*core.ExecutionResult, error) {
	c := &core.Contact{
		TenantID:  ec.TenantID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		Address:   p.Address,
		Language:  p.Language,
		Notes:     p.Notes,
	}
	if err := h.Store.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	return core.Succeeded(c, fmt.Sprintf("Created contact %s", c.FullName())), nil
}

func (h handlers) updateContact(ctx context.Context, ec *core.ExecutionContext, p UpdateContactParams) (*core.ExecutionResult, error) {
	id := firstNonEmpty(p.ContactID, ec.ContactID)
	if id == "" {
		return core.Failed("no contact specified"), nil
	}
	c, err := h.Store.GetContact(ctx, ec.TenantID, id)
	if err != nil {
		return lookupFailure("contact", err)
	}
	c.FirstName = firstNonEmpty(p.FirstName, c.FirstName)
	c.LastName = firstNonEmpty(p.LastName, c.LastName)
	c.Phone = firstNonEmpty(p.Phone, c.Phone)
	c.Email = firstNonEmpty(p.Email, c.Email)
	c.Address = firstNonEmpty(p.Address, c.Address)
	c.Language = firstNonEmpty(p.Language, c.Language)
	c.Notes = firstNonEmpty(p.Notes, c.Notes)
	if err := h.Store.UpdateContact(ctx, c); err != nil {
		return lookupFailure("contact", err)
	}
	return core.Succeeded(c, "Contact updated"), nil
}

func (h handlers) deleteContact(ctx context.Context, ec *core.ExecutionContext, p DeleteContactParams) (*core.ExecutionResult, error) {
	if err := h.Store.DeleteContact(ctx, ec.TenantID, p.ContactID); err != nil {
		return lookupFailure("contact", err)
	}
	h.Logger.Info("actions.contact.deleted", "tenant", ec.TenantID, "contact", p.ContactID, "user", ec.UserID)
	return core.Succeeded(map[string]any{"contact_id": p.ContactID}, "Contact deleted"), nil
}

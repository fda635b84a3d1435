package actions

import (
	"context"
	"fmt"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// LogActivityParams are the arguments of log_activity.
type LogActivityParams struct {
	Type      string `json:"type" enum:"call,note,sms,email,meeting,site_visit" description:"Kind of activity"`
	Subject   string `json:"subject,omitempty" description:"One-line summary"`
	Notes     string `json:"notes,omitempty" description:"Details"`
	Outcome   string `json:"outcome,omitempty" description:"Result of the interaction"`
	ContactID string `json:"contact_id,omitempty" description:"Defaults to the current contact"`
	ProjectID string `json:"project_id,omitempty" description:"Defaults to the current project"`
}

// GetRecentActivityParams are the arguments of get_recent_activity.
type GetRecentActivityParams struct {
	ContactID string `json:"contact_id,omitempty" description:"Defaults to the current contact"`
	ProjectID string `json:"project_id,omitempty" description:"Defaults to the current project"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of entries"`
}

func (h handlers) activityActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:             "log_activity",
			Description:      "Record a call, note, message or meeting in the history",
			Category:         CategoryActivities,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.logActivity),
		catalog.Typed(catalog.Action{
			Name:             "get_recent_activity",
			Description:      "List the most recent history entries, newest first",
			Category:         CategoryActivities,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.getRecentActivity),
	}
}

func (h handlers) logActivity(ctx context.Context, ec *core.ExecutionContext, p LogActivityParams) (*core.ExecutionResult, error) {
	a := &core.Activity{
		TenantID:  ec.TenantID,
		ContactID: firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID: firstNonEmpty(p.ProjectID, ec.ProjectID),
		Type:      p.Type,
		Subject:   p.Subject,
		Notes:     p.Notes,
		Outcome:   p.Outcome,
		CreatedBy: ec.UserID,
		CreatedAt: h.now(),
	}
	if a.ContactID == "" && a.ProjectID == "" {
		return core.Failed("no contact or project specified"), nil
	}
	if err := h.Store.CreateActivity(ctx, a); err != nil {
		return nil, err
	}
	return core.Succeeded(a, fmt.Sprintf("Logged %s", a.Type)), nil
}

func (h handlers) getRecentActivity(ctx context.Context, ec *core.ExecutionContext, p GetRecentActivityParams) (*core.ExecutionResult, error) {
	ref := core.EntityRef{
		ContactID: firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID: firstNonEmpty(p.ProjectID, ec.ProjectID),
	}
	if ref.IsZero() {
		return core.Failed("no contact or project specified"), nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	list, err := h.Store.ListActivities(ctx, ec.TenantID, ref, limit)
	if err != nil {
		return nil, err
	}
	return core.Succeeded(list, fmt.Sprintf("%d recent activities", len(list))), nil
}

// record stores a side-effect activity. Failures are logged, not returned.
func (h handlers) record(ctx context.Context, a *core.Activity) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = h.now()
	}
	if err := h.Store.CreateActivity(ctx, a); err != nil {
		h.Logger.Warn("actions.activity.record_failed", "type", a.Type, "error", err.Error())
	}
}

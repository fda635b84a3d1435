package actions

import (
	"context"
	"fmt"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// SearchProjectsParams are the arguments of search_projects.
type SearchProjectsParams struct {
	Query string `json:"query" description:"Project name, address or stage"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of results"`
}

// ProjectRef selects a project; the focal project is used when empty.
type ProjectRef struct {
	ProjectID string `json:"project_id,omitempty" description:"Project identifier; defaults to the current project"`
}

// CreateProjectParams are the arguments of create_project.
type CreateProjectParams struct {
	Name        string  `json:"name" description:"Project name"`
	ContactID   string  `json:"contact_id,omitempty" description:"Owning contact; defaults to the current contact"`
	Stage       string  `json:"stage,omitempty" enum:"lead,inspection,estimate,quoted,negotiation,won,in_progress,completed,lost"`
	Value       float64 `json:"value,omitempty" description:"Estimated value"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
}

// UpdateProjectParams are the arguments of update_project. Empty fields are
// left unchanged.
type UpdateProjectParams struct {
	ProjectID   string   `json:"project_id" description:"Project identifier"`
	Name        string   `json:"name,omitempty"`
	Status      string   `json:"status,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Address     string   `json:"address,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UpdateProjectStageParams are the arguments of update_project_stage.
type UpdateProjectStageParams struct {
	ProjectID string `json:"project_id" description:"Project identifier"`
	Stage     string `json:"stage" enum:"lead,inspection,estimate,quoted,negotiation,won,in_progress,completed,lost"`
}

func (h handlers) projectActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:             "search_projects",
			Description:      "Search projects by name, address or stage",
			Category:         CategoryProjects,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.searchProjects),
		catalog.Typed(catalog.Action{
			Name:             "get_project",
			Description:      "Get the details of a project",
			Category:         CategoryProjects,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.getProject),
		catalog.Typed(catalog.Action{
			Name:             "create_project",
			Description:      "Create a new project for a contact",
			Category:         CategoryProjects,
			Risk:             core.RiskMedium,
			EnabledByDefault: true,
		}, h.createProject),
		catalog.Typed(catalog.Action{
			Name:             "update_project",
			Description:      "Update fields of an existing project",
			Category:         CategoryProjects,
			Risk:             core.RiskMedium,
			EnabledByDefault: true,
		}, h.updateProject),
		catalog.Typed(catalog.Action{
			Name:             "update_project_stage",
			Description:      "Move a project to another pipeline stage",
			Category:         CategoryProjects,
			Risk:             core.RiskMedium,
			Policy:           core.PolicyRequiresConfirmation,
			EnabledByDefault: true,
			ConfirmationPrompt: func(args map[string]any) string {
				return fmt.Sprintf("Move project %v to stage %v?", args["project_id"], args["stage"])
			},
		}, h.updateProjectStage),
	}
}

func (h handlers) searchProjects(ctx context.Context, ec *core.ExecutionContext, p SearchProjectsParams) (*core.ExecutionResult, error) {
	projects, err := h.Store.SearchProjects(ctx, ec.TenantID, p.Query, p.Limit)
	if err != nil {
		return nil, err
	}
	return core.Succeeded(projects, fmt.Sprintf("Found %d projects", len(projects))), nil
}

func (h handlers) getProject(ctx context.Context, ec *core.ExecutionContext, p ProjectRef) (*core.ExecutionResult, error) {
	id := firstNonEmpty(p.ProjectID, ec.ProjectID)
	if id == "" {
		return core.Failed("no project specified"), nil
	}
	proj, err := h.Store.GetProject(ctx, ec.TenantID, id)
	if err != nil {
		return lookupFailure("project", err)
	}
	return core.Succeeded(proj, ""), nil
}

func (h handlers) createProject(ctx context.Context, ec *core.ExecutionContext, p CreateProjectParams) (*core.ExecutionResult, error) {
	proj := &core.Project{
		TenantID:    ec.TenantID,
		ContactID:   firstNonEmpty(p.ContactID, ec.ContactID),
		Name:        p.Name,
		Stage:       firstNonEmpty(p.Stage, "lead"),
		Status:      "active",
		Value:       p.Value,
		Address:     p.Address,
		Description: p.Description,
	}
	if err := h.Store.CreateProject(ctx, proj); err != nil {
		return nil, err
	}
	return core.Succeeded(proj, fmt.Sprintf("Created project %s", proj.Name)), nil
}

func (h handlers) updateProject(ctx context.Context, ec *core.ExecutionContext, p UpdateProjectParams) (*core.ExecutionResult, error) {
	proj, err := h.Store.GetProject(ctx, ec.TenantID, p.ProjectID)
	if err != nil {
		return lookupFailure("project", err)
	}
	proj.Name = firstNonEmpty(p.Name, proj.Name)
	proj.Status = firstNonEmpty(p.Status, proj.Status)
	proj.Address = firstNonEmpty(p.Address, proj.Address)
	proj.Description = firstNonEmpty(p.Description, proj.Description)
	if p.Value != nil {
		proj.Value = *p.Value
	}
	if err := h.Store.UpdateProject(ctx, proj); err != nil {
		return lookupFailure("project", err)
	}
	return core.Succeeded(proj, "Project updated"), nil
}

func (h handlers) updateProjectStage(ctx context.Context, ec *core.ExecutionContext, p UpdateProjectStageParams) (*core.ExecutionResult, error) {
	proj, err := h.Store.GetProject(ctx, ec.TenantID, p.ProjectID)
	if err != nil {
		return lookupFailure("project", err)
	}
	from := proj.Stage
	proj.Stage = p.Stage
	if err := h.Store.UpdateProject(ctx, proj); err != nil {
		return lookupFailure("project", err)
	}
	h.record(ctx, &core.Activity{
		TenantID:  ec.TenantID,
		ContactID: proj.ContactID,
		ProjectID: proj.ID,
		Type:      "stage_change",
		Subject:   fmt.Sprintf("Stage changed from %s to %s", from, p.Stage),
		CreatedBy: ec.UserID,
	})
	return core.Succeeded(proj, fmt.Sprintf("Project moved to %s", p.Stage)), nil
}

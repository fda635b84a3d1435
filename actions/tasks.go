package actions

import (
	"context"
	"fmt"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// CreateTaskParams are the arguments of create_task.
type CreateTaskParams struct {
	Title       string `json:"title" description:"Short task title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"low,medium,high"`
	DueAt       string `json:"due_at,omitempty" format:"date-time" description:"Due date in RFC 3339"`
	AssignedTo  string `json:"assigned_to,omitempty" description:"User to assign the task to"`
	ContactID   string `json:"contact_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
}

// CompleteTaskParams are the arguments of complete_task.
type CompleteTaskParams struct {
	TaskID string `json:"task_id" description:"Task identifier"`
}

// ListPendingTasksParams are the arguments of list_pending_tasks.
type ListPendingTasksParams struct {
	ContactID string `json:"contact_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (h handlers) taskActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:             "create_task",
			Description:      "Create a follow-up task",
			Category:         CategoryTasks,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.createTask),
		catalog.Typed(catalog.Action{
			Name:             "complete_task",
			Description:      "Mark a task as completed",
			Category:         CategoryTasks,
			Risk:             core.RiskMedium,
			EnabledByDefault: true,
		}, h.completeTask),
		catalog.Typed(catalog.Action{
			Name:             "list_pending_tasks",
			Description:      "List pending tasks and callbacks, soonest first",
			Category:         CategoryTasks,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.listPendingTasks),
	}
}

func (h handlers) createTask(ctx context.Context, ec *core.ExecutionContext, p CreateTaskParams) (*core.ExecutionResult, error) {
	t := &core.Task{
		TenantID:    ec.TenantID,
		ContactID:   firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID:   firstNonEmpty(p.ProjectID, ec.ProjectID),
		Kind:        core.TaskKindTask,
		Title:       p.Title,
		Description: p.Description,
		Priority:    firstNonEmpty(p.Priority, "medium"),
		AssignedTo:  firstNonEmpty(p.AssignedTo, ec.UserID),
		CreatedAt:   h.now(),
	}
	if p.DueAt != "" {
		due, err := parseTime(p.DueAt)
		if err != nil {
			return core.Failed(fmt.Sprintf("invalid due_at %q", p.DueAt)), nil
		}
		t.DueAt = &due
	}
	if err := h.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return core.Succeeded(t, fmt.Sprintf("Created task %q", t.Title)), nil
}

func (h handlers) completeTask(ctx context.Context, ec *core.ExecutionContext, p CompleteTaskParams) (*core.ExecutionResult, error) {
	t, err := h.Store.CompleteTask(ctx, ec.TenantID, p.TaskID)
	if err != nil {
		return lookupFailure("task", err)
	}
	return core.Succeeded(t, "Task completed"), nil
}

func (h handlers) listPendingTasks(ctx context.Context, ec *core.ExecutionContext, p ListPendingTasksParams) (*core.ExecutionResult, error) {
	ref := core.EntityRef{
		ContactID: firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID: firstNonEmpty(p.ProjectID, ec.ProjectID),
	}
	tasks, err := h.Store.ListTasks(ctx, ec.TenantID, ref, nil, p.Limit)
	if err != nil {
		return nil, err
	}
	return core.Succeeded(tasks, fmt.Sprintf("%d pending tasks", len(tasks))), nil
}

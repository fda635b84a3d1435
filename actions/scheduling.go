package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// ScheduleCallbackParams are the arguments of schedule_callback.
type ScheduleCallbackParams struct {
	DueAt     string `json:"due_at" format:"date-time" description:"When to call back, RFC 3339"`
	Reason    string `json:"reason,omitempty" description:"Why the callback is needed"`
	ContactID string `json:"contact_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// ScheduleAppointmentParams are the arguments of schedule_appointment.
type ScheduleAppointmentParams struct {
	Title           string `json:"title" description:"Appointment title, e.g. Roof inspection"`
	StartAt         string `json:"start_at" format:"date-time" description:"Start time, RFC 3339"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Location        string `json:"location,omitempty"`
	ContactID       string `json:"contact_id,omitempty"`
	ProjectID       string `json:"project_id,omitempty"`
}

func (h handlers) schedulingActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:             "schedule_callback",
			Description:      "Schedule a callback to the contact",
			Category:         CategoryScheduling,
			Risk:             core.RiskLow,
			EnabledByDefault: true,
		}, h.scheduleCallback),
		catalog.Typed(catalog.Action{
			Name:                 "schedule_appointment",
			Description:          "Book an appointment on the calendar",
			Category:             CategoryScheduling,
			Risk:                 core.RiskMedium,
			RequiredIntegrations: []string{IntegrationCalendar},
		}, h.scheduleAppointment),
	}
}

func (h handlers) scheduleCallback(ctx context.Context, ec *core.ExecutionContext, p ScheduleCallbackParams) (*core.ExecutionResult, error) {
	due, err := parseTime(p.DueAt)
	if err != nil {
		return core.Failed(fmt.Sprintf("invalid due_at %q", p.DueAt)), nil
	}
	t := &core.Task{
		TenantID:    ec.TenantID,
		ContactID:   firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID:   firstNonEmpty(p.ProjectID, ec.ProjectID),
		Kind:        core.TaskKindCallback,
		Title:       "Call back",
		Description: p.Reason,
		Priority:    "high",
		DueAt:       &due,
		AssignedTo:  ec.UserID,
		CreatedAt:   h.now(),
	}
	if t.ContactID == "" {
		return core.Failed("no contact specified"), nil
	}
	if err := h.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return core.Succeeded(t, fmt.Sprintf("Callback scheduled for %s", due.Format(time.RFC1123))), nil
}

func (h handlers) scheduleAppointment(ctx context.Context, ec *core.ExecutionContext, p ScheduleAppointmentParams) (*core.ExecutionResult, error) {
	start, err := parseTime(p.StartAt)
	if err != nil {
		return core.Failed(fmt.Sprintf("invalid start_at %q", p.StartAt)), nil
	}
	if start.Before(h.now()) {
		return core.Failed("appointment must be in the future"), nil
	}
	duration := p.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	t := &core.Task{
		TenantID:    ec.TenantID,
		ContactID:   firstNonEmpty(p.ContactID, ec.ContactID),
		ProjectID:   firstNonEmpty(p.ProjectID, ec.ProjectID),
		Kind:        core.TaskKindAppointment,
		Title:       p.Title,
		Description: strings.TrimSpace(fmt.Sprintf("%d min %s", duration, p.Location)),
		Priority:    "medium",
		DueAt:       &start,
		AssignedTo:  ec.UserID,
		CreatedAt:   h.now(),
	}
	if err := h.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return core.Succeeded(t, fmt.Sprintf("Appointment booked for %s", start.Format(time.RFC1123))), nil
}

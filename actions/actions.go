// Package actions provides the built-in CRM, messaging, scheduling and voice
// actions and registers them into a catalog.
package actions

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/logging"
)

// Categories of the built-in actions.
const (
	CategoryContacts   = "contacts"
	CategoryProjects   = "projects"
	CategoryActivities = "activities"
	CategoryTasks      = "tasks"
	CategoryScheduling = "scheduling"
	CategoryMessaging  = "messaging"
	CategoryVoice      = "voice"
)

// Integrations referenced by the built-in actions.
const (
	IntegrationSMS      = "sms"
	IntegrationEmail    = "email"
	IntegrationCalendar = "calendar"
	IntegrationVoice    = "voice"
)

// Messenger is the outbound SMS transport.
type Messenger interface {
	SendSMS(ctx context.Context, tenantID, to, body string) (string, error)
}

// CallControl manipulates live phone calls.
type CallControl interface {
	Transfer(ctx context.Context, callID, target string) error
	Hangup(ctx context.Context, callID string) error
}

// Deps are the collaborators used by the built-in actions.
type Deps struct {
	Store     core.Store
	Messenger Messenger   // optional
	Calls     CallControl // optional
	Clock     func() time.Time
	Logger    logging.Logger
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

type handlers struct {
	Deps
}

// Register adds every built-in action to cat.
func Register(cat *catalog.Catalog, deps Deps) error {
	if deps.Store == nil {
		return errors.New("actions: store is required")
	}
	deps.Logger = logging.OrNoOp(deps.Logger)
	h := handlers{deps}

	all := [][]catalog.Action{
		h.contactActions(),
		h.projectActions(),
		h.activityActions(),
		h.taskActions(),
		h.schedulingActions(),
		h.messagingActions(),
		h.voiceActions(),
	}
	for _, group := range all {
		for _, a := range group {
			if err := cat.Register(a); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookupFailure folds a store error into an action result. Missing records
// become a structured failure; anything else is returned as an error.
func lookupFailure(what string, err error) (*core.ExecutionResult, error) {
	if errors.Is(err, core.ErrNotFound) {
		return core.Failed(what + " not found"), nil
	}
	return nil, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized time format")
}

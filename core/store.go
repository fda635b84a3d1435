package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when a record does not
// exist within the requested tenant.
var ErrNotFound = errors.New("not found")

// EntityRef selects records attached to a contact and/or project. Records
// matching either id are returned.
type EntityRef struct {
	ContactID string
	ProjectID string
}

// IsZero reports whether neither id is set.
func (r EntityRef) IsZero() bool { return r.ContactID == "" && r.ProjectID == "" }

// Store is the transactional data-access collaborator. Every call is scoped
// to a tenant; implementations must never return records of another tenant.
// List methods honour limit (<= 0 means implementation default) and return
// records ordered as documented.
type Store interface {
	GetContact(ctx context.Context, tenantID, id string) (*Contact, error)
	// FindContactByPhone returns the first contact whose phone equals any of
	// the supplied variants.
	FindContactByPhone(ctx context.Context, tenantID string, phones []string) (*Contact, error)
	SearchContacts(ctx context.Context, tenantID, query string, limit int) ([]Contact, error)
	CreateContact(ctx context.Context, c *Contact) error
	UpdateContact(ctx context.Context, c *Contact) error
	DeleteContact(ctx context.Context, tenantID, id string) error

	GetProject(ctx context.Context, tenantID, id string) (*Project, error)
	// FindProjectByContact returns the most recently updated project of a contact.
	FindProjectByContact(ctx context.Context, tenantID, contactID string) (*Project, error)
	SearchProjects(ctx context.Context, tenantID, query string, limit int) ([]Project, error)
	CreateProject(ctx context.Context, p *Project) error
	UpdateProject(ctx context.Context, p *Project) error

	// ListActivities returns activities newest-first.
	ListActivities(ctx context.Context, tenantID string, ref EntityRef, limit int) ([]Activity, error)
	CreateActivity(ctx context.Context, a *Activity) error

	// ListTasks returns pending tasks of the given kinds (all kinds when empty).
	ListTasks(ctx context.Context, tenantID string, ref EntityRef, kinds []string, limit int) ([]Task, error)
	CreateTask(ctx context.Context, t *Task) error
	CompleteTask(ctx context.Context, tenantID, id string) (*Task, error)

	// ListMessages returns thread entries newest-first whose from or to
	// number equals any of the supplied variants.
	ListMessages(ctx context.Context, tenantID string, phones []string, limit int) ([]Message, error)
	CreateMessage(ctx context.Context, m *Message) error

	GetActiveCall(ctx context.Context, tenantID, callID string) (*CallSession, error)
}

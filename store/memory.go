package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/actionmesh/core"
)

const defaultLimit = 50

// InMemoryStore is a volatile core.Store. It is safe for concurrent access.
// Records are copied on the way in and out so callers cannot mutate internal
// state.
type InMemoryStore struct {
	mu         sync.RWMutex
	contacts   map[string]core.Contact
	projects   map[string]core.Project
	activities []core.Activity
	tasks      map[string]core.Task
	messages   []core.Message
	calls      map[string]core.CallSession

	now func() time.Time
}

var _ core.Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		contacts: make(map[string]core.Contact),
		projects: make(map[string]core.Project),
		tasks:    make(map[string]core.Task),
		calls:    make(map[string]core.CallSession),
		now:      time.Now,
	}
}

func limitOr(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// GetContact implements core.Store.
func (s *InMemoryStore) GetContact(_ context.Context, tenantID, id string) (*core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok || c.TenantID != tenantID {
		return nil, fmt.Errorf("contact %s: %w", id, core.ErrNotFound)
	}
	return &c, nil
}

// FindContactByPhone implements core.Store.
func (s *InMemoryStore) FindContactByPhone(_ context.Context, tenantID string, phones []string) (*core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *core.Contact
	for _, c := range s.contacts {
		if c.TenantID != tenantID || c.Phone == "" || !slices.Contains(phones, c.Phone) {
			continue
		}
		if found == nil || c.CreatedAt.Before(found.CreatedAt) {
			cp := c
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("contact by phone: %w", core.ErrNotFound)
	}
	return found, nil
}

// SearchContacts implements core.Store. Matching is a case-insensitive
// substring search over name, phone and email.
func (s *InMemoryStore) SearchContacts(_ context.Context, tenantID, query string, limit int) ([]core.Contact, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	var out []core.Contact
	for _, c := range s.contacts {
		if c.TenantID != tenantID {
			continue
		}
		if q == "" || contains(c.FullName(), q) || contains(c.Phone, q) || contains(c.Email, q) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.Contact) int { return strings.Compare(a.FullName(), b.FullName()) })
	return truncate(out, limitOr(limit)), nil
}

// CreateContact implements core.Store.
func (s *InMemoryStore) CreateContact(_ context.Context, c *core.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = core.NewID()
	}
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.contacts[c.ID] = *c
	return nil
}

// UpdateContact implements core.Store.
func (s *InMemoryStore) UpdateContact(_ context.Context, c *core.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.contacts[c.ID]
	if !ok || old.TenantID != c.TenantID {
		return fmt.Errorf("contact %s: %w", c.ID, core.ErrNotFound)
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = s.now()
	s.contacts[c.ID] = *c
	return nil
}

// DeleteContact implements core.Store.
func (s *InMemoryStore) DeleteContact(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.TenantID != tenantID {
		return fmt.Errorf("contact %s: %w", id, core.ErrNotFound)
	}
	delete(s.contacts, id)
	return nil
}

// GetProject implements core.Store.
func (s *InMemoryStore) GetProject(_ context.Context, tenantID, id string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	return &p, nil
}

// FindProjectByContact implements core.Store.
func (s *InMemoryStore) FindProjectByContact(_ context.Context, tenantID, contactID string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *core.Project
	for _, p := range s.projects {
		if p.TenantID != tenantID || p.ContactID != contactID {
			continue
		}
		if found == nil || p.UpdatedAt.After(found.UpdatedAt) {
			cp := p
			found = &cp
		}
	}
	if found == nil {
		return nil, fmt.Errorf("project of contact %s: %w", contactID, core.ErrNotFound)
	}
	return found, nil
}

// SearchProjects implements core.Store.
func (s *InMemoryStore) SearchProjects(_ context.Context, tenantID, query string, limit int) ([]core.Project, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	var out []core.Project
	for _, p := range s.projects {
		if p.TenantID != tenantID {
			continue
		}
		if q == "" || contains(p.Name, q) || contains(p.Address, q) || contains(p.Stage, q) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.Project) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return truncate(out, limitOr(limit)), nil
}

// CreateProject implements core.Store.
func (s *InMemoryStore) CreateProject(_ context.Context, p *core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = core.NewID()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.projects[p.ID] = *p
	return nil
}

// UpdateProject implements core.Store.
func (s *InMemoryStore) UpdateProject(_ context.Context, p *core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.projects[p.ID]
	if !ok || old.TenantID != p.TenantID {
		return fmt.Errorf("project %s: %w", p.ID, core.ErrNotFound)
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = s.now()
	s.projects[p.ID] = *p
	return nil
}

type refMatcher core.EntityRef

func (r refMatcher) matches(contactID, projectID string) bool {
	return (r.ContactID != "" && r.ContactID == contactID) || (r.ProjectID != "" && r.ProjectID == projectID)
}

// ListActivities implements core.Store.
func (s *InMemoryStore) ListActivities(_ context.Context, tenantID string, ref core.EntityRef, limit int) ([]core.Activity, error) {
	m := refMatcher(ref)
	s.mu.RLock()
	var out []core.Activity
	for _, a := range s.activities {
		if a.TenantID == tenantID && m.matches(a.ContactID, a.ProjectID) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b core.Activity) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return truncate(out, limitOr(limit)), nil
}

// CreateActivity implements core.Store.
func (s *InMemoryStore) CreateActivity(_ context.Context, a *core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.activities = append(s.activities, *a)
	return nil
}

// ListTasks implements core.Store. Results are ordered by due date ascending
// with undated tasks last.
func (s *InMemoryStore) ListTasks(_ context.Context, tenantID string, ref core.EntityRef, kinds []string, limit int) ([]core.Task, error) {
	m := refMatcher(ref)
	s.mu.RLock()
	var out []core.Task
	for _, t := range s.tasks {
		if t.TenantID != tenantID || t.Status != core.TaskStatusPending {
			continue
		}
		if !ref.IsZero() && !m.matches(t.ContactID, t.ProjectID) {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, t.Kind) {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()
	SortByDue(out)
	return truncate(out, limitOr(limit)), nil
}

// CreateTask implements core.Store.
func (s *InMemoryStore) CreateTask(_ context.Context, t *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = core.NewID()
	}
	if t.Status == "" {
		t.Status = core.TaskStatusPending
	}
	if t.Kind == "" {
		t.Kind = core.TaskKindTask
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tasks[t.ID] = *t
	return nil
}

// CompleteTask implements core.Store.
func (s *InMemoryStore) CompleteTask(_ context.Context, tenantID, id string) (*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.TenantID != tenantID {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	now := s.now()
	t.Status = core.TaskStatusCompleted
	t.CompletedAt = &now
	s.tasks[id] = t
	return &t, nil
}

// ListMessages implements core.Store.
func (s *InMemoryStore) ListMessages(_ context.Context, tenantID string, phones []string, limit int) ([]core.Message, error) {
	s.mu.RLock()
	var out []core.Message
	for _, m := range s.messages {
		if m.TenantID == tenantID && (slices.Contains(phones, m.From) || slices.Contains(phones, m.To)) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b core.Message) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return truncate(out, limitOr(limit)), nil
}

// CreateMessage implements core.Store.
func (s *InMemoryStore) CreateMessage(_ context.Context, m *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = core.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages = append(s.messages, *m)
	return nil
}

// GetActiveCall implements core.Store.
func (s *InMemoryStore) GetActiveCall(_ context.Context, tenantID, callID string) (*core.CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[callID]
	if !ok || c.TenantID != tenantID {
		return nil, fmt.Errorf("call %s: %w", callID, core.ErrNotFound)
	}
	return &c, nil
}

// PutCall records a call session. Calls are owned by the telephony surface;
// this exists for seeding and tests.
func (s *InMemoryStore) PutCall(_ context.Context, c core.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = s.now()
	}
	s.calls[c.ID] = c
	return nil
}

// SortByDue orders tasks by due date ascending, undated last.
func SortByDue(tasks []core.Task) {
	slices.SortStableFunc(tasks, func(a, b core.Task) int {
		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return 0
		case a.DueAt == nil:
			return 1
		case b.DueAt == nil:
			return -1
		default:
			return a.DueAt.Compare(*b.DueAt)
		}
	})
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

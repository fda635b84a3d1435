package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/actionmesh/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// DialectSQLite uses "?" placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses "$n" placeholders.
	DialectPostgres
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLStore is a core.Store backed by database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ core.Store = (*SQLStore)(nil)

// Open opens a database for the given driver ("sqlite" or "postgres") and
// migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var dialect Dialect
	switch driver {
	case "sqlite":
		dialect = DialectSQLite
	case "postgres":
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// In-memory sqlite databases are per connection.
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and migrates the schema.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		value DOUBLE PRECISION NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL DEFAULT '',
		project_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL DEFAULT '',
		project_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT 'task',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		due_at TEXT,
		assigned_to TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL DEFAULT '',
		channel TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL DEFAULT '',
		from_number TEXT NOT NULL DEFAULT '',
		to_number TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS call_sessions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		contact_id TEXT NOT NULL DEFAULT '',
		project_id TEXT NOT NULL DEFAULT '',
		from_number TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tenant_phone ON contacts (tenant_id, phone)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_tenant_created ON activities (tenant_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_tenant_created ON messages (tenant_id, created_at)`,
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites "?" placeholders for the store's dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

const contactColumns = `id, tenant_id, first_name, last_name, phone, email, address, language, notes, created_at, updated_at`

func scanContact(row scanner) (*core.Contact, error) {
	var (
		c                  core.Contact
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Phone, &c.Email, &c.Address, &c.Language, &c.Notes, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return &c, nil
}

// GetContact implements core.Store.
func (s *SQLStore) GetContact(ctx context.Context, tenantID, id string) (*core.Contact, error) {
	c, err := scanContact(s.queryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE tenant_id = ? AND id = ?`, tenantID, id))
	if err != nil {
		return nil, notFound(err, "contact", id)
	}
	return c, nil
}

// FindContactByPhone implements core.Store.
func (s *SQLStore) FindContactByPhone(ctx context.Context, tenantID string, phones []string) (*core.Contact, error) {
	if len(phones) == 0 {
		return nil, fmt.Errorf("contact by phone: %w", core.ErrNotFound)
	}
	args := append([]any{tenantID}, toAny(phones)...)
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE tenant_id = ? AND phone IN (` + placeholders(len(phones)) + `) ORDER BY created_at ASC LIMIT 1`
	c, err := scanContact(s.queryRow(ctx, q, args...))
	if err != nil {
		return nil, notFound(err, "contact by phone", phones[0])
	}
	return c, nil
}

// SearchContacts implements core.Store.
func (s *SQLStore) SearchContacts(ctx context.Context, tenantID, query string, limit int) ([]core.Contact, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.query(ctx, `SELECT `+contactColumns+` FROM contacts
		WHERE tenant_id = ? AND (LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(email) LIKE ?)
		ORDER BY first_name, last_name LIMIT ?`, tenantID, like, like, like, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CreateContact implements core.Store.
func (s *SQLStore) CreateContact(ctx context.Context, c *core.Contact) error {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.exec(ctx, `INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.Language, c.Notes, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// UpdateContact implements core.Store.
func (s *SQLStore) UpdateContact(ctx context.Context, c *core.Contact) error {
	c.UpdatedAt = s.now()
	res, err := s.exec(ctx, `UPDATE contacts SET first_name = ?, last_name = ?, phone = ?, email = ?, address = ?, language = ?, notes = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.Language, c.Notes, formatTime(c.UpdatedAt), c.TenantID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireAffected(res, "contact", c.ID)
}

// DeleteContact implements core.Store.
func (s *SQLStore) DeleteContact(ctx context.Context, tenantID, id string) error {
	res, err := s.exec(ctx, `DELETE FROM contacts WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireAffected(res, "contact", id)
}

const projectColumns = `id, tenant_id, contact_id, name, stage, status, value, address, description, created_at, updated_at`

func scanProject(row scanner) (*core.Project, error) {
	var (
		p                core.Project
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.TenantID, &p.ContactID, &p.Name, &p.Stage, &p.Status, &p.Value, &p.Address, &p.Description, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return &p, nil
}

// GetProject implements core.Store.
func (s *SQLStore) GetProject(ctx context.Context, tenantID, id string) (*core.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE tenant_id = ? AND id = ?`, tenantID, id))
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return p, nil
}

// FindProjectByContact implements core.Store.
func (s *SQLStore) FindProjectByContact(ctx context.Context, tenantID, contactID string) (*core.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects
		WHERE tenant_id = ? AND contact_id = ? ORDER BY updated_at DESC LIMIT 1`, tenantID, contactID))
	if err != nil {
		return nil, notFound(err, "project of contact", contactID)
	}
	return p, nil
}

// SearchProjects implements core.Store.
func (s *SQLStore) SearchProjects(ctx context.Context, tenantID, query string, limit int) ([]core.Project, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.query(ctx, `SELECT `+projectColumns+` FROM projects
		WHERE tenant_id = ? AND (LOWER(name) LIKE ? OR LOWER(address) LIKE ? OR LOWER(stage) LIKE ?)
		ORDER BY updated_at DESC LIMIT ?`, tenantID, like, like, like, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateProject implements core.Store.
func (s *SQLStore) CreateProject(ctx context.Context, p *core.Project) error {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.exec(ctx, `INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.ContactID, p.Name, p.Stage, p.Status, p.Value, p.Address, p.Description, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// UpdateProject implements core.Store.
func (s *SQLStore) UpdateProject(ctx context.Context, p *core.Project) error {
	p.UpdatedAt = s.now()
	res, err := s.exec(ctx, `UPDATE projects SET contact_id = ?, name = ?, stage = ?, status = ?, value = ?, address = ?, description = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		p.ContactID, p.Name, p.Stage, p.Status, p.Value, p.Address, p.Description, formatTime(p.UpdatedAt), p.TenantID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireAffected(res, "project", p.ID)
}

// refClause matches records attached to either id of ref.
func refClause(ref core.EntityRef) (string, []any) {
	return `((contact_id <> '' AND contact_id = ?) OR (project_id <> '' AND project_id = ?))`, []any{ref.ContactID, ref.ProjectID}
}

// ListActivities implements core.Store.
func (s *SQLStore) ListActivities(ctx context.Context, tenantID string, ref core.EntityRef, limit int) ([]core.Activity, error) {
	clause, refArgs := refClause(ref)
	args := append(append([]any{tenantID}, refArgs...), limitOr(limit))
	rows, err := s.query(ctx, `SELECT id, tenant_id, contact_id, project_id, type, subject, notes, outcome, created_by, created_at
		FROM activities WHERE tenant_id = ? AND `+clause+` ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Activity
	for rows.Next() {
		var (
			a       core.Activity
			created string
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ContactID, &a.ProjectID, &a.Type, &a.Subject, &a.Notes, &a.Outcome, &a.CreatedBy, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateActivity implements core.Store.
func (s *SQLStore) CreateActivity(ctx context.Context, a *core.Activity) error {
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	_, err := s.exec(ctx, `INSERT INTO activities (id, tenant_id, contact_id, project_id, type, subject, notes, outcome, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TenantID, a.ContactID, a.ProjectID, a.Type, a.Subject, a.Notes, a.Outcome, a.CreatedBy, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

const taskColumns = `id, tenant_id, contact_id, project_id, kind, title, description, priority, status, due_at, assigned_to, created_at, completed_at`

func scanTask(row scanner) (*core.Task, error) {
	var (
		t              core.Task
		due, completed sql.NullString
		created        string
	)
	if err := row.Scan(&t.ID, &t.TenantID, &t.ContactID, &t.ProjectID, &t.Kind, &t.Title, &t.Description, &t.Priority, &t.Status, &due, &t.AssignedTo, &created, &completed); err != nil {
		return nil, err
	}
	t.DueAt, t.CompletedAt = parseNullTime(due), parseNullTime(completed)
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// ListTasks implements core.Store.
func (s *SQLStore) ListTasks(ctx context.Context, tenantID string, ref core.EntityRef, kinds []string, limit int) ([]core.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = ? AND status = ?`
	args := []any{tenantID, core.TaskStatusPending}
	if !ref.IsZero() {
		clause, refArgs := refClause(ref)
		q += ` AND ` + clause
		args = append(args, refArgs...)
	}
	if len(kinds) > 0 {
		q += ` AND kind IN (` + placeholders(len(kinds)) + `)`
		args = append(args, toAny(kinds)...)
	}
	q += ` ORDER BY CASE WHEN due_at IS NULL THEN 1 ELSE 0 END, due_at ASC LIMIT ?`
	args = append(args, limitOr(limit))

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateTask implements core.Store.
func (s *SQLStore) CreateTask(ctx context.Context, t *core.Task) error {
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
	_, err := s.exec(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.ContactID, t.ProjectID, t.Kind, t.Title, t.Description, t.Priority, t.Status,
		formatNullTime(t.DueAt), t.AssignedTo, formatTime(t.CreatedAt), formatNullTime(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// CompleteTask implements core.Store.
func (s *SQLStore) CompleteTask(ctx context.Context, tenantID, id string) (*core.Task, error) {
	now := s.now()
	res, err := s.exec(ctx, `UPDATE tasks SET status = ?, completed_at = ? WHERE tenant_id = ? AND id = ?`,
		core.TaskStatusCompleted, formatTime(now), tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	if err := requireAffected(res, "task", id); err != nil {
		return nil, err
	}
	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tenant_id = ? AND id = ?`, tenantID, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return t, nil
}

// ListMessages implements core.Store.
func (s *SQLStore) ListMessages(ctx context.Context, tenantID string, phones []string, limit int) ([]core.Message, error) {
	if len(phones) == 0 {
		return nil, nil
	}
	in := placeholders(len(phones))
	args := append([]any{tenantID}, toAny(phones)...)
	args = append(args, toAny(phones)...)
	args = append(args, limitOr(limit))
	rows, err := s.query(ctx, `SELECT id, tenant_id, contact_id, channel, direction, from_number, to_number, body, status, created_at
		FROM messages WHERE tenant_id = ? AND (from_number IN (`+in+`) OR to_number IN (`+in+`))
		ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Message
	for rows.Next() {
		var (
			m       core.Message
			channel string
			created string
		)
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ContactID, &channel, &m.Direction, &m.From, &m.To, &m.Body, &m.Status, &created); err != nil {
			return nil, err
		}
		m.Channel = core.Channel(channel)
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateMessage implements core.Store.
func (s *SQLStore) CreateMessage(ctx context.Context, m *core.Message) error {
	if m.ID == "" {
		m.ID = core.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	_, err := s.exec(ctx, `INSERT INTO messages (id, tenant_id, contact_id, channel, direction, from_number, to_number, body, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.ContactID, string(m.Channel), m.Direction, m.From, m.To, m.Body, m.Status, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetActiveCall implements core.Store.
func (s *SQLStore) GetActiveCall(ctx context.Context, tenantID, callID string) (*core.CallSession, error) {
	var (
		c       core.CallSession
		started string
	)
	err := s.queryRow(ctx, `SELECT id, tenant_id, contact_id, project_id, from_number, status, started_at
		FROM call_sessions WHERE tenant_id = ? AND id = ?`, tenantID, callID).
		Scan(&c.ID, &c.TenantID, &c.ContactID, &c.ProjectID, &c.FromNumber, &c.Status, &started)
	if err != nil {
		return nil, notFound(err, "call", callID)
	}
	c.StartedAt = parseTime(started)
	return &c, nil
}

// PutCall inserts or replaces a call session.
func (s *SQLStore) PutCall(ctx context.Context, c core.CallSession) error {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = s.now()
	}
	_, err := s.exec(ctx, `INSERT INTO call_sessions (id, tenant_id, contact_id, project_id, from_number, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET contact_id = excluded.contact_id, project_id = excluded.project_id, status = excluded.status`,
		c.ID, c.TenantID, c.ContactID, c.ProjectID, c.FromNumber, c.Status, formatTime(c.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert call: %w", err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

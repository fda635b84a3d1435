package core

import (
	"strings"
	"time"
)

// Contact is a person tracked by the CRM.
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Language  string    `json:"language,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Project is a job / opportunity attached to a contact.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ContactID   string    `json:"contact_id,omitempty"`
	Name        string    `json:"name"`
	Stage       string    `json:"stage,omitempty"`
	Status      string    `json:"status,omitempty"`
	Value       float64   `json:"value,omitempty"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Activity is an immutable history entry (call, note, sms, email, meeting).
type Activity struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ContactID string    `json:"contact_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Task kinds.
const (
	TaskKindTask        = "task"
	TaskKindCallback    = "callback"
	TaskKindAppointment = "appointment"
)

// Task statuses.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task is a to-do, scheduled callback or appointment. DueAt is optional.
type Task struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ContactID   string     `json:"contact_id,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is one entry of an SMS / email thread.
type Message struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ContactID string    `json:"contact_id,omitempty"`
	Channel   Channel   `json:"channel"`
	Direction string    `json:"direction"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CallSession is an active or finished phone call.
type CallSession struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ContactID  string    `json:"contact_id,omitempty"`
	ProjectID  string    `json:"project_id,omitempty"`
	FromNumber string    `json:"from_number,omitempty"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
}

// PlatformError is a client-side error observed in a chat session.
type PlatformError struct {
	Message    string    `json:"message"`
	Source     string    `json:"source,omitempty"`
	Path       string    `json:"path,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/store"
)

// Tenant is the tenant used by Seed.
const Tenant = "tenant-1"

// Fixture holds the records created by Seed.
type Fixture struct {
	Contact core.Contact
	Project core.Project
	Now     time.Time
}

// Seed populates an in-memory store with one contact ("Ann Lee",
// +15551234567), one project, three activities, two pending tasks and an SMS
// thread, all relative to now.
func Seed(t testing.TB, now time.Time) (*store.InMemoryStore, Fixture) {
	t.Helper()
	ctx := context.Background()
	s := store.NewInMemoryStore()

	c := core.Contact{ID: "c-1", TenantID: Tenant, FirstName: "Ann", LastName: "Lee", Phone: "+15551234567", Email: "ann@example.com", Language: "es"}
	must(t, s.CreateContact(ctx, &c))
	p := core.Project{ID: "p-1", TenantID: Tenant, ContactID: c.ID, Name: "Roof replacement", Stage: "estimate", Value: 14500}
	must(t, s.CreateProject(ctx, &p))

	for i := 0; i < 3; i++ {
		must(t, s.CreateActivity(ctx, &core.Activity{
			TenantID:  Tenant,
			ContactID: c.ID,
			ProjectID: p.ID,
			Type:      "call",
			Subject:   fmt.Sprintf("Call %d", i+1),
			CreatedAt: now.Add(time.Duration(i-3) * time.Hour),
		}))
	}

	due := now.Add(24 * time.Hour)
	must(t, s.CreateTask(ctx, &core.Task{TenantID: Tenant, ContactID: c.ID, Title: "Send estimate"}))
	must(t, s.CreateTask(ctx, &core.Task{TenantID: Tenant, ProjectID: p.ID, Kind: core.TaskKindCallback, Title: "Call back", DueAt: &due}))

	must(t, s.CreateMessage(ctx, &core.Message{TenantID: Tenant, Channel: core.ChannelSMS, Direction: core.DirectionInbound, From: "5551234567", To: "+15550000000", Body: "Is the estimate ready?", CreatedAt: now.Add(-time.Hour)}))
	must(t, s.CreateMessage(ctx, &core.Message{TenantID: Tenant, Channel: core.ChannelSMS, Direction: core.DirectionOutbound, From: "+15550000000", To: "+15551234567", Body: "Tomorrow!", CreatedAt: now.Add(-30 * time.Minute)}))

	return s, Fixture{Contact: c, Project: p, Now: now}
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// FixedClock returns a clock function always reporting at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// SentSMS records one call to FakeMessenger.SendSMS.
type SentSMS struct {
	TenantID, To, Body string
}

// FakeMessenger records outbound texts.
type FakeMessenger struct {
	mu   sync.Mutex
	Sent []SentSMS
	Err  error
}

// SendSMS implements actions.Messenger.
func (m *FakeMessenger) SendSMS(_ context.Context, tenantID, to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, SentSMS{TenantID: tenantID, To: to, Body: body})
	return fmt.Sprintf("sms-%d", len(m.Sent)), nil
}

// FakeCalls records call control operations.
type FakeCalls struct {
	mu          sync.Mutex
	Transferred map[string]string
	HungUp      []string
}

// Transfer implements actions.CallControl.
func (f *FakeCalls) Transfer(_ context.Context, callID, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Transferred == nil {
		f.Transferred = map[string]string{}
	}
	f.Transferred[callID] = target
	return nil
}

// Hangup implements actions.CallControl.
func (f *FakeCalls) Hangup(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HungUp = append(f.HungUp, callID)
	return nil
}

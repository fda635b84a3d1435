// Package enrichment assembles the multi-source state attached to an
// execution context before the model is prompted: focal contact and project,
// recent history, upcoming work, the SMS thread and client-side errors.
//
// Enrichment never fails a turn. Every lookup that errors or panics is logged
// and contributes nothing.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/logging"
	"github.com/hupe1980/actionmesh/store"
	"golang.org/x/sync/errgroup"
)

// Options configures the pipeline limits and collaborators.
type Options struct {
	ActivityLimit int
	UpcomingLimit int
	MessageLimit  int
	// CountryCode is used to build E.164 phone variants.
	CountryCode string
	// Errors supplies client errors for chat sessions that did not carry
	// their own buffer. Optional.
	Errors ErrorBuffer
	Logger logging.Logger
}

// Pipeline enriches execution contexts from a store.
type Pipeline struct {
	store core.Store
	opts  Options
}

// New creates a pipeline.
func New(s core.Store, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		ActivityLimit: 10,
		UpcomingLimit: 5,
		MessageLimit:  10,
		CountryCode:   "1",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Pipeline{store: s, opts: opts}
}

// Enrich resolves the focal entities of ec, gathers the bundle, stores it on
// ec.Bundle and returns it. The returned bundle is never nil.
func (p *Pipeline) Enrich(ctx context.Context, ec *core.ExecutionContext) (bundle *core.EnrichmentBundle) {
	bundle = &core.EnrichmentBundle{}
	defer func() {
		if r := recover(); r != nil {
			p.opts.Logger.Error("enrichment.panic", "tenant", ec.TenantID, "panic", fmt.Sprint(r))
		}
		ec.Bundle = bundle
	}()

	if ec.Channel == core.ChannelVoiceInbound && ec.CallID != "" {
		p.resolveCall(ctx, ec)
	}
	p.resolveFocal(ctx, ec)
	if !ec.HasFocalEntity() && ec.Phone != "" && (ec.Channel == core.ChannelSMS || ec.Channel.IsVoice()) {
		p.resolveByPhone(ctx, ec)
	}
	if ec.Language == "" && ec.Contact != nil && ec.Contact.Language != "" {
		ec.Language = ec.Contact.Language
	}

	if ec.HasFocalEntity() {
		p.gather(ctx, ec, bundle)
	}
	if ec.Channel == core.ChannelChat {
		bundle.Errors = p.clientErrors(ctx, ec)
	}
	return bundle
}

func (p *Pipeline) resolveCall(ctx context.Context, ec *core.ExecutionContext) {
	call, err := p.store.GetActiveCall(ctx, ec.TenantID, ec.CallID)
	if err != nil {
		p.logLookup("call", err)
		return
	}
	if ec.ContactID == "" {
		ec.ContactID = call.ContactID
	}
	if ec.ProjectID == "" {
		ec.ProjectID = call.ProjectID
	}
	if ec.Phone == "" {
		ec.Phone = call.FromNumber
	}
}

func (p *Pipeline) resolveFocal(ctx context.Context, ec *core.ExecutionContext) {
	if ec.Contact == nil && ec.ContactID != "" {
		c, err := p.store.GetContact(ctx, ec.TenantID, ec.ContactID)
		if err != nil {
			p.logLookup("contact", err)
		} else {
			ec.Contact = c
		}
	}
	if ec.Project == nil && ec.ProjectID != "" {
		proj, err := p.store.GetProject(ctx, ec.TenantID, ec.ProjectID)
		if err != nil {
			p.logLookup("project", err)
		} else {
			ec.Project = proj
		}
	}
	p.resolveCounterpart(ctx, ec)
}

// resolveCounterpart fills the project of a known contact and the contact of
// a known project.
func (p *Pipeline) resolveCounterpart(ctx context.Context, ec *core.ExecutionContext) {
	switch {
	case ec.Contact != nil && ec.Project == nil:
		proj, err := p.store.FindProjectByContact(ctx, ec.TenantID, ec.Contact.ID)
		if err != nil {
			p.logLookup("project of contact", err)
			break
		}
		ec.Project = proj
	case ec.Project != nil && ec.Contact == nil && ec.Project.ContactID != "":
		c, err := p.store.GetContact(ctx, ec.TenantID, ec.Project.ContactID)
		if err != nil {
			p.logLookup("contact of project", err)
			break
		}
		ec.Contact = c
	}
	if ec.Contact != nil {
		ec.ContactID = ec.Contact.ID
	}
	if ec.Project != nil {
		ec.ProjectID = ec.Project.ID
	}
}

func (p *Pipeline) resolveByPhone(ctx context.Context, ec *core.ExecutionContext) {
	c, err := p.store.FindContactByPhone(ctx, ec.TenantID, PhoneVariants(ec.Phone, p.opts.CountryCode))
	if err != nil {
		p.logLookup("contact by phone", err)
		return
	}
	ec.Contact = c
	p.resolveCounterpart(ctx, ec)
}

func (p *Pipeline) gather(ctx context.Context, ec *core.ExecutionContext, bundle *core.EnrichmentBundle) {
	ref := ec.Ref()
	var tasks, callbacks []core.Task

	g, gctx := errgroup.WithContext(ctx)
	g.Go(p.fetch("activities", func() error {
		list, err := p.store.ListActivities(gctx, ec.TenantID, ref, p.opts.ActivityLimit)
		bundle.Activities = list
		return err
	}))
	g.Go(p.fetch("tasks", func() error {
		list, err := p.store.ListTasks(gctx, ec.TenantID, ref, []string{core.TaskKindTask, core.TaskKindAppointment}, p.opts.UpcomingLimit)
		tasks = list
		return err
	}))
	g.Go(p.fetch("callbacks", func() error {
		list, err := p.store.ListTasks(gctx, ec.TenantID, ref, []string{core.TaskKindCallback}, p.opts.UpcomingLimit)
		callbacks = list
		return err
	}))
	if ec.Channel == core.ChannelSMS {
		phone := ec.Phone
		if phone == "" && ec.Contact != nil {
			phone = ec.Contact.Phone
		}
		if phone != "" {
			g.Go(p.fetch("messages", func() error {
				list, err := p.store.ListMessages(gctx, ec.TenantID, PhoneVariants(phone, p.opts.CountryCode), p.opts.MessageLimit)
				bundle.Messages = list
				return err
			}))
		}
	}
	_ = g.Wait()

	upcoming := slices.Concat(tasks, callbacks)
	store.SortByDue(upcoming)
	if len(upcoming) > p.opts.UpcomingLimit {
		upcoming = upcoming[:p.opts.UpcomingLimit]
	}
	bundle.Upcoming = upcoming
}

// fetch wraps a sub-fetch so that errors and panics are logged and swallowed.
// Each sub-fetch writes only its own destination.
func (p *Pipeline) fetch(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				p.opts.Logger.Error("enrichment.fetch.panic", "source", name, "panic", fmt.Sprint(r))
			}
		}()
		if err := fn(); err != nil {
			p.opts.Logger.Warn("enrichment.fetch.failed", "source", name, "error", err.Error())
		}
		return nil
	}
}

func (p *Pipeline) clientErrors(ctx context.Context, ec *core.ExecutionContext) []core.PlatformError {
	if ec.ClientErrors != nil {
		return slices.Clone(ec.ClientErrors)
	}
	if p.opts.Errors == nil || ec.SessionID == "" {
		return nil
	}
	list, err := p.opts.Errors.Recent(ctx, ec.SessionID)
	if err != nil {
		p.opts.Logger.Warn("enrichment.errors.failed", "session", ec.SessionID, "error", err.Error())
		return nil
	}
	return list
}

func (p *Pipeline) logLookup(what string, err error) {
	if errors.Is(err, core.ErrNotFound) {
		p.opts.Logger.Debug("enrichment.lookup.not_found", "entity", what)
		return
	}
	p.opts.Logger.Warn("enrichment.lookup.failed", "entity", what, "error", err.Error())
}

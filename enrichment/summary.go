package enrichment

import (
	"fmt"
	"strings"

	"github.com/hupe1980/actionmesh/core"
)

const timeFormat = "Mon Jan 2 15:04"

// Summary renders the enrichment of ec as prompt text. Sections appear in a
// fixed order: contact, project, activity history, upcoming tasks, message
// thread, channel notes, errors. Empty sections are omitted.
func Summary(ec *core.ExecutionContext) string {
	var sections []string
	add := func(title string, lines []string) {
		if len(lines) > 0 {
			sections = append(sections, "## "+title+"\n"+strings.Join(lines, "\n"))
		}
	}

	add("Contact", contactLines(ec.Contact))
	add("Project", projectLines(ec.Project))

	b := ec.Bundle
	if b == nil {
		b = &core.EnrichmentBundle{}
	}

	var history []string
	for _, a := range b.Activities {
		line := fmt.Sprintf("- %s %s", a.CreatedAt.Format("2006-01-02"), a.Type)
		if a.Subject != "" {
			line += ": " + a.Subject
		}
		if a.Outcome != "" {
			line += " (" + a.Outcome + ")"
		}
		history = append(history, line)
	}
	add("Recent activity", history)

	var upcoming []string
	for _, t := range b.Upcoming {
		due := "no due date"
		if t.DueAt != nil {
			due = "due " + t.DueAt.Format(timeFormat)
		}
		upcoming = append(upcoming, fmt.Sprintf("- [%s] %s (%s)", t.Kind, t.Title, due))
	}
	add("Upcoming", upcoming)

	var thread []string
	for i := len(b.Messages) - 1; i >= 0; i-- {
		m := b.Messages[i]
		who := "them"
		if m.Direction == core.DirectionOutbound {
			who = "us"
		}
		thread = append(thread, fmt.Sprintf("- %s %s: %s", m.CreatedAt.Format(timeFormat), who, m.Body))
	}
	add("Message thread", thread)

	add("Channel notes", channelNotes(ec))

	var errs []string
	for _, e := range b.Errors {
		line := "- " + e.Message
		if e.Path != "" {
			line += " at " + e.Path
		}
		errs = append(errs, line)
	}
	add("Recent errors seen by the user", errs)

	return strings.Join(sections, "\n\n")
}

func contactLines(c *core.Contact) []string {
	if c == nil {
		return nil
	}
	lines := []string{"Name: " + c.FullName(), "ID: " + c.ID}
	if c.Phone != "" {
		lines = append(lines, "Phone: "+c.Phone)
	}
	if c.Email != "" {
		lines = append(lines, "Email: "+c.Email)
	}
	if c.Address != "" {
		lines = append(lines, "Address: "+c.Address)
	}
	if c.Notes != "" {
		lines = append(lines, "Notes: "+c.Notes)
	}
	return lines
}

func projectLines(p *core.Project) []string {
	if p == nil {
		return nil
	}
	lines := []string{"Name: " + p.Name, "ID: " + p.ID}
	if p.Stage != "" {
		lines = append(lines, "Stage: "+p.Stage)
	}
	if p.Status != "" {
		lines = append(lines, "Status: "+p.Status)
	}
	if p.Value > 0 {
		lines = append(lines, fmt.Sprintf("Value: %.2f", p.Value))
	}
	if p.Address != "" {
		lines = append(lines, "Address: "+p.Address)
	}
	return lines
}

func channelNotes(ec *core.ExecutionContext) []string {
	var notes []string
	switch ec.Channel {
	case core.ChannelChat:
		if ec.Page != "" {
			notes = append(notes, "The user is currently viewing: "+ec.Page)
		}
	case core.ChannelSMS, core.ChannelVoiceInbound:
		if ec.Contact == nil {
			who := "sender"
			if ec.Channel == core.ChannelVoiceInbound {
				who = "caller"
			}
			note := fmt.Sprintf("The %s is unknown and not in the CRM", who)
			if ec.Phone != "" {
				note += " (" + ec.Phone + ")"
			}
			notes = append(notes, note+".")
		}
	}
	return notes
}

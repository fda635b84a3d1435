package orchestrator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/internal/util"
)

const defaultBasePrompt = `You are the assistant for {{default "our company" .Company}}, a home services business.
You help the team and its customers with contacts, projects, tasks, appointments and messages.
Use the available tools to look up or change records instead of guessing, and never invent record ids.
When a tool reports that something was not found or failed, apologise briefly and ask for the missing detail.
When a tool asks for confirmation, repeat the confirmation question to the user and wait for their answer.
Outbound messages are drafted for approval; never claim that a drafted message has been sent.`

var channelAddenda = map[core.Channel]string{
	core.ChannelVoiceInbound: `## Channel: inbound phone call
Greet the caller warmly and find out why they are calling. Identify existing customers, take a message or
schedule a callback when nobody is available, and transfer the call when the caller asks for a person.
Keep every answer short enough to be spoken aloud. Do not read ids or URLs.`,
	core.ChannelVoiceOutbound: `## Channel: outbound phone call
You placed this call for a specific task. State who you are and why you are calling, complete the task,
and end the call politely. Keep every answer short enough to be spoken aloud.`,
	core.ChannelSMS: `## Channel: SMS
Replies are text messages. Be brief and friendly.`,
	core.ChannelEmail: `## Channel: email
Write complete, polite emails with a greeting and a sign-off.`,
}

// SystemPrompt assembles the system prompt for ec: base role, channel
// addendum, enrichment summary, authorization addendum and language line.
// Empty sections are omitted.
func (o *Orchestrator) SystemPrompt(ec *core.ExecutionContext) string {
	sections := []string{o.basePrompt(), o.channelAddendum(ec), enrichment.Summary(ec), o.authorization(ec), languageLine(ec)}
	return strings.Join(slices.DeleteFunc(sections, func(s string) bool { return strings.TrimSpace(s) == "" }), "\n\n")
}

func (o *Orchestrator) basePrompt() string {
	out, err := util.RenderTemplate(o.opts.BasePrompt, map[string]any{"Company": o.opts.CompanyName})
	if err != nil {
		o.opts.Logger.Warn("orchestrator.prompt.template_failed", "error", err)
		return o.opts.BasePrompt
	}
	return strings.TrimSpace(out)
}

func (o *Orchestrator) channelAddendum(ec *core.ExecutionContext) string {
	if ec.Channel == core.ChannelChat {
		text := "## Channel: chat\nYou are embedded in the team's web application."
		if ec.Page != "" {
			text += fmt.Sprintf(" The user is currently on the %q page; prefer answers about what they are looking at.", ec.Page)
		}
		return text
	}
	return channelAddenda[ec.Channel]
}

func (o *Orchestrator) authorization(ec *core.ExecutionContext) string {
	var allowed []string
	for _, a := range o.Offered(ec) {
		if !slices.Contains(allowed, a.Category) {
			allowed = append(allowed, a.Category)
		}
	}
	slices.Sort(allowed)

	var b strings.Builder
	b.WriteString("## Authorization\n")
	if len(allowed) > 0 {
		fmt.Fprintf(&b, "You may use actions in these categories: %s.\n", strings.Join(allowed, ", "))
	} else {
		b.WriteString("You have no actions available in this conversation.\n")
	}
	if len(o.opts.ForbiddenCategories) > 0 {
		fmt.Fprintf(&b, "You must never perform or promise %s actions; tell the user a team member will handle it.\n",
			strings.Join(o.opts.ForbiddenCategories, " or "))
	}
	b.WriteString("High-risk actions need an explicit confirmation from the user before they run.")
	return b.String()
}

func languageLine(ec *core.ExecutionContext) string {
	if ec.Language == "" {
		return ""
	}
	return fmt.Sprintf("Respond in the language with tag %q unless the user writes in another language.", ec.Language)
}

// Package sms adapts inbound text messages to the orchestrator: it triages
// intent, runs the two-pass tool-calling turn, formats the reply for SMS,
// spawns follow-up tasks for commitments and records the thread.
package sms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/actionmesh/commitment"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/intent"
	"github.com/hupe1980/actionmesh/logging"
	"github.com/hupe1980/actionmesh/model"
	"github.com/hupe1980/actionmesh/orchestrator"
)

// Message statuses written for the SMS thread.
const (
	StatusReceived      = "received"
	StatusAuto          = "auto"
	StatusPendingReview = "pending_review"
)

// DefaultFallbackReply is pre-approved and always safe to send.
const DefaultFallbackReply = "Thanks for your message! A member of our team will get back to you shortly."

// InboundMessage is one text received from a customer.
type InboundMessage struct {
	TenantID   string
	From       string
	To         string
	Body       string
	ReceivedAt time.Time
}

// Reply is the handler's verdict for one inbound message.
type Reply struct {
	Body                 string                             `json:"body"`
	Intent               intent.Result                      `json:"intent"`
	AutoSendable         bool                               `json:"auto_sendable"`
	NeedsReview          bool                               `json:"needs_review"`
	Fallback             bool                               `json:"fallback"`
	Commitment           commitment.Commitment              `json:"commitment"`
	FollowUpTaskID       string                             `json:"follow_up_task_id,omitempty"`
	Drafts               []core.Draft                       `json:"drafts,omitempty"`
	PendingConfirmations []orchestrator.PendingConfirmation `json:"pending_confirmations,omitempty"`
}

// Options configures a Handler.
type Options struct {
	// MaxLength caps the reply in runes.
	MaxLength     int
	FallbackReply string
	// UserID is the acting user recorded on the execution context.
	UserID string
	// Store persists the thread and follow-up tasks. Optional.
	Store      core.Store
	Classifier intent.Classifier
	Detector   *commitment.Detector
	Logger     logging.Logger
	Clock      func() time.Time
}

// Handler processes inbound SMS. It is safe for concurrent use.
type Handler struct {
	orch *orchestrator.Orchestrator
	llm  model.Model
	opts Options
}

// NewHandler creates a Handler. Without a configured classifier the
// deterministic RegexClassifier is used.
func NewHandler(orch *orchestrator.Orchestrator, llm model.Model, optFns ...func(o *Options)) *Handler {
	opts := Options{
		MaxLength:     320,
		FallbackReply: DefaultFallbackReply,
		UserID:        "sms-assistant",
		Clock:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.NewRegexClassifier()
	}
	if opts.Detector == nil {
		opts.Detector = commitment.NewDetector(func(o *commitment.Options) { o.Clock = opts.Clock })
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Handler{orch: orch, llm: llm, opts: opts}
}

// HandleInbound processes msg and returns the reply to send or queue. It never
// fails: any panic or unrecoverable error yields the fallback reply.
func (h *Handler) HandleInbound(ctx context.Context, msg InboundMessage) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			h.opts.Logger.Error("sms.panic", "tenant", msg.TenantID, "panic", fmt.Sprint(r))
			reply = h.fallback(reply.Intent)
		}
	}()

	verdict, err := h.opts.Classifier.Classify(ctx, msg.Body)
	if err != nil {
		h.opts.Logger.Warn("sms.intent.failed", "tenant", msg.TenantID, "error", err)
	}
	reply.Intent = verdict

	ec := core.NewExecutionContext(msg.TenantID, h.opts.UserID, core.ChannelSMS)
	ec.Phone = msg.From
	h.orch.Enrich(ctx, ec)
	h.record(ctx, ec, msg, core.DirectionInbound, msg.From, msg.To, msg.Body, StatusReceived, msg.ReceivedAt)

	prompt := strings.Join([]string{
		h.orch.SystemPrompt(ec),
		smsRules(h.opts.MaxLength),
		intentContext(verdict),
	}, "\n\n")

	turn := h.orch.RunTurn(ctx, h.llm, orchestrator.TurnRequest{Context: ec, SystemPrompt: prompt, UserText: msg.Body})
	if turn.Fallback {
		h.opts.Logger.Warn("sms.turn.fallback", "tenant", msg.TenantID, "error", turn.Err)
		reply = h.fallback(verdict)
		h.record(ctx, ec, msg, core.DirectionOutbound, msg.To, msg.From, reply.Body, StatusAuto, h.opts.Clock())
		return reply
	}

	reply.Body = Format(turn.Reply, h.opts.MaxLength)
	reply.AutoSendable = verdict.AutoSendable && verdict.Category.AutoSendable()
	reply.NeedsReview = !reply.AutoSendable
	reply.Drafts = turn.Drafts
	reply.PendingConfirmations = turn.PendingConfirmations

	reply.Commitment = h.opts.Detector.Detect(reply.Body)
	if reply.Commitment.HasCommitment {
		reply.FollowUpTaskID = h.spawnFollowUp(ctx, ec, reply.Commitment)
	}

	status := StatusPendingReview
	if reply.AutoSendable {
		status = StatusAuto
	}
	h.record(ctx, ec, msg, core.DirectionOutbound, msg.To, msg.From, reply.Body, status, h.opts.Clock())

	h.opts.Logger.Info("sms.reply",
		"tenant", msg.TenantID,
		"intent", string(verdict.Category),
		"auto_sendable", reply.AutoSendable,
		"commitment", string(reply.Commitment.Type),
		"tools", len(turn.Tools),
	)
	return reply
}

func (h *Handler) fallback(verdict intent.Result) Reply {
	return Reply{
		Body:         h.opts.FallbackReply,
		Intent:       verdict,
		AutoSendable: true,
		Fallback:     true,
		Commitment:   commitment.Commitment{DueDate: h.opts.Clock()},
	}
}

// spawnFollowUp creates a pending task for a commitment when the sender is a
// known contact. It returns the task id or "".
func (h *Handler) spawnFollowUp(ctx context.Context, ec *core.ExecutionContext, c commitment.Commitment) string {
	if h.opts.Store == nil || ec.Contact == nil {
		return ""
	}
	kind := core.TaskKindTask
	if c.Type == commitment.TypeCallback {
		kind = core.TaskKindCallback
	}
	due := c.DueDate
	task := &core.Task{
		ID:          core.NewID(),
		TenantID:    ec.TenantID,
		ContactID:   ec.Contact.ID,
		Kind:        kind,
		Title:       fmt.Sprintf("Follow up (%s) with %s", c.Type, ec.Contact.FullName()),
		Description: c.Excerpt,
		Priority:    string(c.Urgency),
		Status:      core.TaskStatusPending,
		DueAt:       &due,
		CreatedAt:   h.opts.Clock(),
	}
	if ec.Project != nil {
		task.ProjectID = ec.Project.ID
	}
	if err := h.opts.Store.CreateTask(ctx, task); err != nil {
		h.opts.Logger.Error("sms.followup.failed", "tenant", ec.TenantID, "error", err)
		return ""
	}
	h.opts.Logger.Info("sms.followup.created", "tenant", ec.TenantID, "task", task.ID, "type", string(c.Type), "due", due)
	return task.ID
}

func (h *Handler) record(ctx context.Context, ec *core.ExecutionContext, msg InboundMessage, direction, from, to, body, status string, at time.Time) {
	if h.opts.Store == nil {
		return
	}
	if at.IsZero() {
		at = h.opts.Clock()
	}
	m := &core.Message{
		ID:        core.NewID(),
		TenantID:  msg.TenantID,
		Channel:   core.ChannelSMS,
		Direction: direction,
		From:      from,
		To:        to,
		Body:      body,
		Status:    status,
		CreatedAt: at,
	}
	if ec.Contact != nil {
		m.ContactID = ec.Contact.ID
	}
	if err := h.opts.Store.CreateMessage(ctx, m); err != nil {
		h.opts.Logger.Error("sms.message.persist_failed", "tenant", msg.TenantID, "direction", direction, "error", err)
	}
}

func smsRules(maxLen int) string {
	return fmt.Sprintf(`## SMS rules
- Reply in plain text under %d characters. No markdown, lists or emojis.
- Ask before committing to anything. Only promise a callback, visit or date when a tool confirmed it.
- Never quote prices, discounts or payment terms that a team member has not confirmed.
- If you cannot help, say that a team member will follow up.`, maxLen)
}

func intentContext(r intent.Result) string {
	text := fmt.Sprintf("## Inbound message\nClassified intent: %s (confidence %.2f).", r.Category, r.Confidence)
	if !r.Category.AutoSendable() {
		text += " A team member reviews this reply before it is sent. Acknowledge the message and do not make decisions on the team's behalf."
	}
	return text
}

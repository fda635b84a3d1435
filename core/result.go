package core

import "encoding/json"

// Draft is an outbound communication awaiting human approval. Sending is
// performed by an external surface once approved.
type Draft struct {
	ID        string         `json:"id"`
	Channel   Channel        `json:"channel"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ExecutionResult is the structured outcome of one action invocation.
// AwaitingConfirmation and AwaitingApproval are not failures: they signal
// that an external party must act before anything is sent or changed.
type ExecutionResult struct {
	Success              bool   `json:"success"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
	Message              string `json:"message,omitempty"`
	AwaitingConfirmation bool   `json:"awaiting_confirmation,omitempty"`
	ConfirmationPrompt   string `json:"confirmation_prompt,omitempty"`
	AwaitingApproval     bool   `json:"awaiting_approval,omitempty"`
	Draft                *Draft `json:"draft,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(data any, message string) *ExecutionResult {
	return &ExecutionResult{Success: true, Data: data, Message: message}
}

// Failed builds a failed result.
func Failed(err string) *ExecutionResult {
	return &ExecutionResult{Success: false, Error: err}
}

// NeedsConfirmation builds the confirmation-pending result.
func NeedsConfirmation(prompt string) *ExecutionResult {
	return &ExecutionResult{Success: false, AwaitingConfirmation: true, ConfirmationPrompt: prompt}
}

// NeedsApproval builds the HITL draft result.
func NeedsApproval(d *Draft, message string) *ExecutionResult {
	return &ExecutionResult{Success: true, AwaitingApproval: true, Draft: d, Message: message}
}

// NeedsExternalAction reports whether a human must act on this result.
func (r *ExecutionResult) NeedsExternalAction() bool {
	return r.AwaitingConfirmation || r.AwaitingApproval
}

// ModelPayload serializes the result for folding back into a conversation.
func (r *ExecutionResult) ModelPayload() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"result not serializable"}`
	}
	return string(b)
}

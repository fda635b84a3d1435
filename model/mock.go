package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/actionmesh/core"
)

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted replies are consumed in order; once exhausted the model echoes the
// last user text. Every request is recorded for assertions.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []scripted
	requests []Request
}

type scripted struct {
	content core.Content
	err     error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// ReplyText queues a plain text reply.
func (m *MockModel) ReplyText(text string) *MockModel {
	return m.reply(scripted{content: core.NewTextContent(core.RoleAssistant, text)})
}

// ReplyToolCalls queues a reply requesting the given function calls.
func (m *MockModel) ReplyToolCalls(calls ...core.FunctionCall) *MockModel {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return m.reply(scripted{content: core.Content{Role: core.RoleAssistant, Parts: parts}})
}

// ReplyError queues a failing generation.
func (m *MockModel) ReplyError(err error) *MockModel {
	return m.reply(scripted{err: err})
}

func (m *MockModel) reply(s scripted) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, s)
	return m
}

// Requests returns a copy of all requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var next *scripted
	if len(m.script) > 0 {
		next = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if next != nil {
			if next.err != nil {
				errCh <- next.err
				return
			}
			respCh <- Response{Content: next.content, FinishReason: finishReason(next.content)}
			return
		}
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		last := req.Contents[len(req.Contents)-1]
		respCh <- Response{
			Content:      core.NewTextContent(core.RoleAssistant, fmt.Sprintf("Mock response to: %s", last.Text())),
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

func finishReason(c core.Content) string {
	if len(c.FunctionCalls()) > 0 {
		return "tool_calls"
	}
	return "stop"
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

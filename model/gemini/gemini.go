// Package gemini provides a model.Model implementation backed by the Google
// Gen AI SDK (Gemini API or Vertex AI).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/model"
	"google.golang.org/genai"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
	Backend         genai.Backend
}

// Model wraps genai.Models behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:           "gemini-2.5-flash",
		Temperature:     0.3,
		MaxOutputTokens: 1024,
		Backend:         genai.BackendGeminiAPI,
	}
}

// NewModel creates a new Gemini model. The API key falls back to the
// environment lookup performed by the SDK when empty.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: opts.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model with a single final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		res, err := m.client.Models.GenerateContent(ctx, m.opts.Model, buildContents(req.Contents), m.buildConfig(req))
		if err != nil {
			errCh <- fmt.Errorf("gemini generate content: %w", err)
			return
		}
		if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
			errCh <- fmt.Errorf("no candidates returned")
			return
		}

		resp := model.Response{
			ID:           res.ResponseID,
			Content:      fromGenai(res.Candidates[0].Content),
			FinishReason: finishReason(res.Candidates[0]),
		}
		if u := res.UsageMetadata; u != nil {
			resp.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}
		out <- resp
	}()

	return out, errCh
}

func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	temp := m.opts.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}
	if system := systemText(req); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Function.Name,
				Description:          t.Function.Description,
				ParametersJsonSchema: t.Function.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func systemText(req model.Request) string {
	text := req.Instructions
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		if t := c.Text(); t != "" {
			if text != "" {
				text += "\n\n"
			}
			text += t
		}
	}
	return text
}

// buildContents maps normalized contents to genai contents. Assistant turns
// become the "model" role; tool responses are sent back as user parts.
func buildContents(contents []core.Content) []*genai.Content {
	var out []*genai.Content
	for _, c := range contents {
		var role genai.Role
		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}

		var parts []*genai.Part
		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, &genai.Part{Text: part.Text})
				}
			case core.FunctionCallPart:
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: decodeObject(part.FunctionCall.Arguments),
				}})
			case core.FunctionResponsePart:
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       part.FunctionResponse.ID,
					Name:     part.FunctionResponse.Name,
					Response: decodeObject(part.FunctionResponse.Response),
				}})
			}
		}
		if len(parts) > 0 {
			out = append(out, &genai.Content{Role: string(role), Parts: parts})
		}
	}
	return out
}

func fromGenai(c *genai.Content) core.Content {
	var parts []core.Part
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		if p.Text != "" && !p.Thought {
			parts = append(parts, core.TextPart{Text: p.Text})
		}
		if fc := p.FunctionCall; fc != nil {
			args, _ := json.Marshal(fc.Args)
			id := fc.ID
			if id == "" {
				id = core.NewID()
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        id,
				Name:      fc.Name,
				Arguments: string(args),
			}})
		}
	}
	return core.Content{Role: core.RoleAssistant, Parts: parts}
}

func finishReason(c *genai.Candidate) string {
	if c.Content != nil {
		for _, p := range c.Content.Parts {
			if p != nil && p.FunctionCall != nil {
				return "tool_calls"
			}
		}
	}
	if c.FinishReason == "" {
		return "stop"
	}
	return string(c.FinishReason)
}

// decodeObject parses a JSON object, wrapping non-object payloads under
// "result" since the API expects a map.
func decodeObject(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj
	}
	return map[string]any{"result": raw}
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}

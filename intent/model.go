package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/model"
)

const classifierInstructions = `You classify inbound SMS messages sent by customers of a home services company.
Answer with a single JSON object and nothing else:
{"category": "<one of: greeting, confirmation, thanks, question, status, pricing, reschedule, cancel, complaint, conversation>", "confidence": <number between 0 and 1>}
Use "complaint" for any dissatisfaction, "cancel" for any wish to stop or cancel work, "pricing" for anything about cost or payment.`

// ModelOptions configures a ModelClassifier.
type ModelOptions struct {
	// MinConfidence is the confidence below which a verdict is never
	// auto-sendable.
	MinConfidence float64
}

// ModelClassifier asks a (cheap) language model for a JSON verdict.
type ModelClassifier struct {
	model model.Model
	opts  ModelOptions
}

// NewModelClassifier creates a ModelClassifier.
func NewModelClassifier(m model.Model, optFns ...func(o *ModelOptions)) *ModelClassifier {
	opts := ModelOptions{MinConfidence: 0.7}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelClassifier{model: m, opts: opts}
}

type verdict struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Classify implements Classifier. Transport failures, malformed output and
// unknown categories are returned as errors so a fallback can take over.
func (c *ModelClassifier) Classify(ctx context.Context, text string) (Result, error) {
	resp, err := model.Collect(ctx, c.model, model.Request{
		Instructions: classifierInstructions,
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, text)},
	})
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	v, err := parseVerdict(resp.Content.Text())
	if err != nil {
		return Result{}, err
	}
	return Result{
		Category:     v.Category,
		AutoSendable: v.Category.AutoSendable() && v.Confidence >= c.opts.MinConfidence,
		Confidence:   v.Confidence,
		Source:       "model",
	}, nil
}

// parseVerdict extracts the first JSON object from raw, tolerating code fences
// and surrounding prose.
func parseVerdict(raw string) (verdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return verdict{}, fmt.Errorf("classifier returned no JSON object: %q", raw)
	}
	var v verdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return verdict{}, fmt.Errorf("decode classifier verdict: %w", err)
	}
	v.Category = Category(strings.ToLower(strings.TrimSpace(string(v.Category))))
	if !v.Category.Valid() {
		return verdict{}, fmt.Errorf("unknown intent category %q", v.Category)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		return verdict{}, fmt.Errorf("confidence out of range: %v", v.Confidence)
	}
	return v, nil
}

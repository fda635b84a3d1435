package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/actionmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegexClassifier(t *testing.T) {
	tests := []struct {
		text string
		want Category
		auto bool
	}{
		{"Hi", Greeting, true},
		{"hello there!", Greeting, true},
		{"Good morning :)", Greeting, true},
		{"Yes", Confirmation, true},
		{"Sounds good, thanks", Confirmation, true},
		{"Thank you so much!", Thanks, true},
		{"I want to cancel", Cancel, false},
		{"This is unacceptable", Complaint, false},
		{"Can we reschedule to Friday?", Reschedule, false},
		{"How much will the gutters cost?", Pricing, false},
		{"Any update on the permit?", Status, false},
		{"Where do I park?", Question, false},
		{"The dog will be in the backyard", Conversation, false},
		{"Hi, I want to cancel", Cancel, false},
		{"how much is the cancel fee", Pricing, false},
		{"What does it cost to reschedule?", Pricing, false},
		{"Cancel and reschedule for next week", Cancel, false},
		{"I'm upset about the bill, cancel everything", Complaint, false},
	}
	c := NewRegexClassifier()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Category)
			assert.Equal(t, tt.auto, r.AutoSendable)
			assert.Equal(t, "regex", r.Source)
		})
	}
}

func TestModelClassifier(t *testing.T) {
	t.Run("confident greeting", func(t *testing.T) {
		m := model.NewMockModel("cls").ReplyText("```json\n{\"category\":\"greeting\",\"confidence\":0.95}\n```")
		r, err := NewModelClassifier(m).Classify(context.Background(), "hey")
		require.NoError(t, err)
		assert.Equal(t, Greeting, r.Category)
		assert.True(t, r.AutoSendable)
		assert.Equal(t, "model", r.Source)
	})

	t.Run("low confidence is not auto", func(t *testing.T) {
		m := model.NewMockModel("cls").ReplyText(`{"category":"thanks","confidence":0.4}`)
		r, err := NewModelClassifier(m).Classify(context.Background(), "ty?")
		require.NoError(t, err)
		assert.False(t, r.AutoSendable)
	})

	t.Run("sensitive is never auto", func(t *testing.T) {
		m := model.NewMockModel("cls").ReplyText(`{"category":"cancel","confidence":0.99}`)
		r, err := NewModelClassifier(m).Classify(context.Background(), "stop")
		require.NoError(t, err)
		assert.Equal(t, Cancel, r.Category)
		assert.False(t, r.AutoSendable)
	})

	for name, reply := range map[string]string{
		"prose":            "I think it's a greeting",
		"unknown category": `{"category":"spam","confidence":0.9}`,
		"bad confidence":   `{"category":"greeting","confidence":7}`,
	} {
		t.Run(name, func(t *testing.T) {
			m := model.NewMockModel("cls").ReplyText(reply)
			_, err := NewModelClassifier(m).Classify(context.Background(), "hi")
			assert.Error(t, err)
		})
	}
}

type failing struct{}

func (failing) Classify(context.Context, string) (Result, error) {
	return Result{}, errors.New("unavailable")
}

type forged struct{}

func (forged) Classify(context.Context, string) (Result, error) {
	return Result{Category: Complaint, AutoSendable: true, Source: "forged"}, nil
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to regex", func(t *testing.T) {
		m := model.NewMockModel("cls").ReplyError(errors.New("timeout"))
		r, err := Chain(NewModelClassifier(m), NewRegexClassifier()).Classify(ctx, "I want to cancel")
		require.NoError(t, err)
		assert.Equal(t, Cancel, r.Category)
		assert.Equal(t, "regex", r.Source)
	})

	t.Run("first success wins", func(t *testing.T) {
		m := model.NewMockModel("cls").ReplyText(`{"category":"status","confidence":0.8}`)
		r, err := Chain(NewModelClassifier(m), NewRegexClassifier()).Classify(ctx, "Hi")
		require.NoError(t, err)
		assert.Equal(t, Status, r.Category)
	})

	t.Run("auto clamped to category", func(t *testing.T) {
		r, err := Chain(forged{}).Classify(ctx, "x")
		require.NoError(t, err)
		assert.False(t, r.AutoSendable)
	})

	t.Run("all fail", func(t *testing.T) {
		r, err := Chain(failing{}, failing{}).Classify(ctx, "x")
		require.Error(t, err)
		assert.Equal(t, Conversation, r.Category)
		assert.False(t, r.AutoSendable)
	})
}

// MockClassifier for testing classifier chains
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (Result, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(Result), args.Error(1)
}

func TestChain_StopsAtFirstSuccess(t *testing.T) {
	ctx := context.Background()

	first := &MockClassifier{}
	first.On("Classify", ctx, "thanks!").Return(Result{Category: Thanks, AutoSendable: true, Confidence: 0.9, Source: "first"}, nil)
	second := &MockClassifier{}

	r, err := Chain(first, second).Classify(ctx, "thanks!")
	require.NoError(t, err)
	assert.Equal(t, Thanks, r.Category)
	assert.True(t, r.AutoSendable)

	first.AssertExpectations(t)
	second.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
}

func TestChain_SkipsFailedStrategy(t *testing.T) {
	ctx := context.Background()

	first := &MockClassifier{}
	first.On("Classify", ctx, "when is my install?").Return(Result{}, errors.New("unavailable"))
	second := &MockClassifier{}
	second.On("Classify", ctx, "when is my install?").Return(Result{Category: Status, Confidence: 0.6, Source: "second"}, nil)

	r, err := Chain(first, second).Classify(ctx, "when is my install?")
	require.NoError(t, err)
	assert.Equal(t, "second", r.Source)

	first.AssertNumberOfCalls(t, "Classify", 1)
	second.AssertExpectations(t)
}

func TestProperty01_AutoSendableOnlyForSafeCategories(t *testing.T) {
	c := NewRegexClassifier()
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		r, _ := c.Classify(context.Background(), text)
		if r.AutoSendable && !r.Category.AutoSendable() {
			t.Fatalf("%q: %s marked auto-sendable", text, r.Category)
		}
		if !r.Category.Valid() {
			t.Fatalf("%q: invalid category %q", text, r.Category)
		}
	})
}

func TestProperty02_SensitiveWordsNeverAuto(t *testing.T) {
	c := NewRegexClassifier()
	rapid.Check(t, func(t *rapid.T) {
		lead := rapid.SampledFrom([]string{"Hi", "Thanks", "Yes", "ok", ""}).Draw(t, "lead")
		word := rapid.SampledFrom([]string{"cancel", "refund", "reschedule", "how much", "unacceptable"}).Draw(t, "word")
		text := strings.TrimSpace(lead + " " + word)
		r, _ := c.Classify(context.Background(), text)
		if r.AutoSendable {
			t.Fatalf("%q classified auto-sendable as %s", text, r.Category)
		}
	})
}

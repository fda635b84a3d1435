// Package intent classifies inbound customer messages so channel adapters can
// decide whether a generated reply may be sent without human review.
package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/actionmesh/logging"
)

// Category is the coarse intent of an inbound message.
type Category string

// Supported categories.
const (
	Greeting     Category = "greeting"
	Confirmation Category = "confirmation"
	Thanks       Category = "thanks"
	Question     Category = "question"
	Status       Category = "status"
	Pricing      Category = "pricing"
	Reschedule   Category = "reschedule"
	Cancel       Category = "cancel"
	Complaint    Category = "complaint"
	Conversation Category = "conversation"
)

// Categories lists every valid category.
var Categories = []Category{
	Greeting, Confirmation, Thanks, Question, Status,
	Pricing, Reschedule, Cancel, Complaint, Conversation,
}

// AutoSendable reports whether replies to this category may ever be sent
// without review.
func (c Category) AutoSendable() bool {
	switch c {
	case Greeting, Confirmation, Thanks:
		return true
	default:
		return false
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Result is a classification verdict.
type Result struct {
	Category     Category `json:"category"`
	AutoSendable bool     `json:"auto_sendable"`
	Confidence   float64  `json:"confidence"`
	Source       string   `json:"source"`
}

// Classifier is a classification strategy.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ChainClassifier tries classifiers in order and returns the first success.
type ChainClassifier struct {
	classifiers []Classifier
	logger      logging.Logger
}

// Chain combines classifiers into a fallback sequence.
func Chain(classifiers ...Classifier) *ChainClassifier {
	return &ChainClassifier{classifiers: classifiers, logger: logging.NoOpLogger{}}
}

// WithLogger sets the logger used to report fallbacks.
func (c *ChainClassifier) WithLogger(l logging.Logger) *ChainClassifier {
	c.logger = logging.OrNoOp(l)
	return c
}

// Classify implements Classifier. When every strategy fails it returns a
// non-sendable conversation verdict together with the joined errors.
func (c *ChainClassifier) Classify(ctx context.Context, text string) (Result, error) {
	var errs []error
	for i, cl := range c.classifiers {
		r, err := cl.Classify(ctx, text)
		if err == nil {
			r.AutoSendable = r.AutoSendable && r.Category.AutoSendable()
			return r, nil
		}
		c.logger.Warn("intent.classifier.failed", "index", i, "error", err)
		errs = append(errs, err)
	}
	res := Result{Category: Conversation, Source: "default"}
	if len(errs) == 0 {
		return res, nil
	}
	return res, fmt.Errorf("all classifiers failed: %w", errors.Join(errs...))
}

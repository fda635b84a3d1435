package intent

import (
	"context"
	"regexp"
	"strings"
)

type pattern struct {
	category   Category
	confidence float64
	re         *regexp.Regexp
}

// Sensitive topics always require review, so they are checked first, in
// order: complaint, pricing, cancel, reschedule.
var sensitive = []pattern{
	{Complaint, 0.8, regexp.MustCompile(`(?i)\b(?:terrible|awful|unacceptable|angry|upset|disappointed|frustrat\w*|worst|ridiculous|complain\w*|rude|lawyer|refund|never again|damaged?)\b`)},
	{Pricing, 0.75, regexp.MustCompile(`(?i)(?:\b(?:price|pricing|cost|costs|how much|quote|estimate|invoice|bill|payment|pay|charge|discount|deposit)\b|\$\s?\d)`)},
	{Cancel, 0.85, regexp.MustCompile(`(?i)\b(?:cancel\w*|call (?:it|this|everything) off|stop (?:the|all) work|terminate|don't want (?:it|this|the \w+) anymore)\b`)},
	{Reschedule, 0.8, regexp.MustCompile(`(?i)\b(?:reschedul\w*|postpone|push (?:it|this) back|move (?:the|my|our) (?:appointment|visit|inspection|meeting)|(?:different|another|other) (?:day|date|time)|change the (?:date|time))\b`)},
}

// Whole-message short replies that are safe to answer automatically.
var short = []pattern{
	{Greeting, 0.9, regexp.MustCompile(`(?i)^(?:hi|hello|hey|hiya|howdy|good (?:morning|afternoon|evening))(?: there)?[\s!.,:)]*$`)},
	{Confirmation, 0.9, regexp.MustCompile(`(?i)^(?:yes|yeah|yep|yup|ok|okay|k|sure|sounds good|perfect|great|confirmed|that works|works for me|will do|see you then)(?:[,!.]? (?:thanks|thank you))?[\s!.,:)]*$`)},
	{Thanks, 0.9, regexp.MustCompile(`(?i)^(?:thanks|thank you|thx|ty|much appreciated|appreciate it)(?: so much| very much)?(?: again)?[\s!.,:)]*$`)},
}

var (
	statusRe   = regexp.MustCompile(`(?i)\b(?:status|update|any news|progress|eta|when (?:will|are|is|do|does)|how(?:'s| is) (?:it|the \w+) going)\b`)
	questionRe = regexp.MustCompile(`(?i)^(?:who|what|when|where|why|how|can|could|do|does|is|are|will|would)\b`)
)

// RegexClassifier is the deterministic fallback strategy. It never fails.
type RegexClassifier struct{}

// NewRegexClassifier creates a RegexClassifier.
func NewRegexClassifier() *RegexClassifier { return &RegexClassifier{} }

// Classify implements Classifier.
func (RegexClassifier) Classify(_ context.Context, text string) (Result, error) {
	return classify(text), nil
}

func classify(text string) Result {
	text = strings.TrimSpace(strings.ReplaceAll(text, "’", "'"))

	for _, p := range sensitive {
		if p.re.MatchString(text) {
			return Result{Category: p.category, Confidence: p.confidence, Source: "regex"}
		}
	}
	for _, p := range short {
		if p.re.MatchString(text) {
			return Result{Category: p.category, AutoSendable: true, Confidence: p.confidence, Source: "regex"}
		}
	}
	switch {
	case statusRe.MatchString(text):
		return Result{Category: Status, Confidence: 0.6, Source: "regex"}
	case strings.HasSuffix(text, "?") || questionRe.MatchString(text):
		return Result{Category: Question, Confidence: 0.5, Source: "regex"}
	}
	return Result{Category: Conversation, Confidence: 0.3, Source: "regex"}
}

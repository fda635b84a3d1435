// Package commitment detects promises the assistant made in its own replies
// ("I'll have someone call you back") so a follow-up task can be created.
//
// Detection is deliberately conservative: offers and questions ("Would you
// like someone to call you?") never count, and every pattern requires an
// explicit first-person commitment marker.
package commitment

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Type classifies a commitment.
type Type string

// Commitment types in detection priority order.
const (
	TypeCallback    Type = "callback"
	TypeQuote       Type = "quote"
	TypeSchedule    Type = "schedule"
	TypeFollowUp    Type = "followup"
	TypeInformation Type = "information"
)

// Urgency determines how many business days the follow-up may take.
type Urgency string

// Urgency levels.
const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// BusinessDays returns the business-day offset of u: high 0, medium 1, low 2.
func (u Urgency) BusinessDays() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	default:
		return 2
	}
}

// Commitment is the result of Detect. When HasCommitment is false the other
// fields are zero except DueDate, which carries the detection time.
type Commitment struct {
	HasCommitment  bool      `json:"has_commitment"`
	Type           Type      `json:"type,omitempty"`
	Urgency        Urgency   `json:"urgency,omitempty"`
	DueDate        time.Time `json:"due_date"`
	MatchedPattern string    `json:"matched_pattern,omitempty"`
	Excerpt        string    `json:"excerpt,omitempty"`
}

const (
	future   = `i'll|i will|i'm going to|i am going to|i'm gonna|we'll|we will|we're going to|we are going to`
	arranged = `(?:i'm|i am|i've|i have|we're|we are|we've|we have) (?:arranging|arranged|having|had|scheduling|scheduled)`
)

// markerOf builds a first-person commitment marker followed by a short gap
// within the same sentence. The gap is capture group 1.
func markerOf(alternatives string) string {
	return `\b(?:` + alternatives + `)\b([^.!?\n]{0,60}?)`
}

var (
	marker         = markerOf(future)
	callbackMarker = markerOf(future + "|" + arranged)
)

// negation in the gap turns a marker into an instruction not to act
// ("I'll let the crew know not to call you").
var negation = regexp.MustCompile(`(?i)\b(?:not to|don't|do not|won't|will not|never)\b`)

type rule struct {
	kind    Type
	urgency Urgency
	re      *regexp.Regexp
}

var rules = []rule{
	{TypeCallback, UrgencyHigh, regexp.MustCompile(`(?i)` + callbackMarker +
		`\b(?:call (?:you )?back|callback|call-back|call you|give you a (?:call|ring)|phone you|reach out by phone)\b`)},
	{TypeQuote, UrgencyMedium, regexp.MustCompile(`(?i)` + marker +
		`\b(?:quote|estimate|pricing|proposal|bid)s?\b`)},
	{TypeSchedule, UrgencyMedium, regexp.MustCompile(`(?i)(?:` + marker +
		`\b(?:schedule|book|set up (?:a|an|the|your) (?:appointment|inspection|visit|meeting)|put you on the calendar|pencil you in)\b` +
		`|\b(?:i'm|i am|we're|we are) (?:scheduling|booking|setting up)\b|\b(?:i've|i have|we've|we have) (?:scheduled|booked)\b)`)},
	{TypeFollowUp, UrgencyLow, regexp.MustCompile(`(?i)` + marker +
		`\b(?:follow up|follow-up|get back to you|circle back|touch base|check in|keep you (?:posted|updated|informed))\b`)},
	{TypeInformation, UrgencyLow, regexp.MustCompile(`(?i)` + marker +
		`\b(?:send you|email you|text you|look into|find out|look up|get you (?:the|that|more) (?:info|information|details))\b`)},
}

// find returns the first match of r whose gap carries no negation.
func (r rule) find(text string) []int {
	for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
		if loc[2] >= 0 && negation.MatchString(text[loc[2]:loc[3]]) {
			continue
		}
		return loc[:2]
	}
	return nil
}

var offer = regexp.MustCompile(`(?i)\b(?:would you like|do you want|would you prefer|shall i|should i|want me to|if you'd like|if you would like|if you want)\b`)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// Options configures the detector.
type Options struct {
	// CutoffHour is the local hour from which same-day follow-up is no
	// longer possible.
	CutoffHour int
	// DueHour is the local hour of the computed due date.
	DueHour int
	// Location is the business time zone.
	Location *time.Location
	// MinLength is the shortest text (in runes) considered.
	MinLength int
	// ExcerptLength is the approximate excerpt size in runes.
	ExcerptLength int
	Clock         func() time.Time
}

// Detector finds commitments in assistant replies. It is safe for concurrent use.
type Detector struct {
	opts Options
}

// NewDetector creates a detector.
func NewDetector(optFns ...func(o *Options)) *Detector {
	opts := Options{
		CutoffHour:    17,
		DueHour:       17,
		Location:      time.UTC,
		MinLength:     10,
		ExcerptLength: 150,
		Clock:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Detector{opts: opts}
}

// Detect inspects text. It never fails; text without a commitment yields
// HasCommitment false with DueDate set to now.
func (d *Detector) Detect(text string) Commitment {
	now := d.opts.Clock()
	none := Commitment{DueDate: now}

	text = strings.TrimSpace(apostrophes.Replace(text))
	if utf8.RuneCountInString(text) < d.opts.MinLength {
		return none
	}
	if strings.HasSuffix(text, "?") || offer.MatchString(text) {
		return none
	}

	for _, r := range rules {
		loc := r.find(text)
		if loc == nil {
			continue
		}
		return Commitment{
			HasCommitment:  true,
			Type:           r.kind,
			Urgency:        r.urgency,
			DueDate:        d.DueDate(now, r.urgency),
			MatchedPattern: text[loc[0]:loc[1]],
			Excerpt:        excerpt(text, loc[0], loc[1], d.opts.ExcerptLength),
		}
	}
	return none
}

// DueDate computes the due time for urgency u relative to now. Weekends and
// times at or after the cutoff hour roll to the next business day before the
// urgency offset is applied. The result lands on DueHour in the configured
// location.
func (d *Detector) DueDate(now time.Time, u Urgency) time.Time {
	local := now.In(d.opts.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, d.opts.Location)
	if isWeekend(day) || local.Hour() >= d.opts.CutoffHour {
		day = nextBusinessDay(day)
	}
	for i := 0; i < u.BusinessDays(); i++ {
		day = nextBusinessDay(day)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), d.opts.DueHour, 0, 0, 0, d.opts.Location)
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func nextBusinessDay(day time.Time) time.Time {
	day = day.AddDate(0, 0, 1)
	for isWeekend(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// excerpt returns about size runes of text centred on the byte range
// [start, end), marking truncation with "...".
func excerpt(text string, start, end, size int) string {
	runes := []rune(text)
	if len(runes) <= size {
		return text
	}
	rs := utf8.RuneCountInString(text[:start])
	re := rs + utf8.RuneCountInString(text[start:end])

	from := (rs+re)/2 - size/2
	if from < 0 {
		from = 0
	}
	to := from + size
	if to > len(runes) {
		to = len(runes)
		from = to - size
	}

	out := strings.TrimSpace(string(runes[from:to]))
	if from > 0 {
		out = "..." + out
	}
	if to < len(runes) {
		out += "..."
	}
	return out
}

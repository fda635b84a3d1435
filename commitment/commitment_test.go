package commitment

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 2024-06-03 is a Monday.
var monday = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func detectorAt(now time.Time) *Detector {
	return NewDetector(func(o *Options) { o.Clock = func() time.Time { return now } })
}

func TestDetect_Types(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    Type
		urgency Urgency
	}{
		{"callback", "Great, I'll arrange for someone to call you back.", TypeCallback, UrgencyHigh},
		{"callback wins over quote", "I will call you back with the estimate.", TypeCallback, UrgencyHigh},
		{"callback arranging", "I'm arranging for someone to call you back this afternoon.", TypeCallback, UrgencyHigh},
		{"callback arranged noun", "I've arranged a callback for you this afternoon.", TypeCallback, UrgencyHigh},
		{"callback having", "I'm having our estimator call you back today.", TypeCallback, UrgencyHigh},
		{"callback past negation", "I'll tell them not to call you before 9, but I will call you back at noon.", TypeCallback, UrgencyHigh},
		{"quote", "Thanks! I’ll send you a quote tomorrow.", TypeQuote, UrgencyMedium},
		{"schedule marker", "I'm scheduling your inspection for Thursday.", TypeSchedule, UrgencyMedium},
		{"schedule", "We'll book the crew for next week.", TypeSchedule, UrgencyMedium},
		{"followup", "We'll follow up once the permit is approved.", TypeFollowUp, UrgencyLow},
		{"information", "I'm going to look into that for you.", TypeInformation, UrgencyLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := detectorAt(monday).Detect(tt.text)
			require.True(t, c.HasCommitment)
			assert.Equal(t, tt.kind, c.Type)
			assert.Equal(t, tt.urgency, c.Urgency)
			assert.NotEmpty(t, c.MatchedPattern)
			assert.NotEmpty(t, c.Excerpt)
		})
	}
}

func TestDetect_None(t *testing.T) {
	for _, text := range []string{
		"Would you like someone to call you?",
		"If you'd like, I'll send you a quote.",
		"Want me to schedule a visit for you",
		"I'll call you back. Anything else I can help with?",
		"Someone will call you back soon.",
		"I'll let the crew know not to call you before 9.",
		"We'll make sure they never call you on weekends.",
		"I'll let the office know you don't want a quote.",
		"ok",
		"",
	} {
		c := detectorAt(monday).Detect(text)
		assert.False(t, c.HasCommitment, text)
		assert.Equal(t, monday, c.DueDate, text)
		assert.Empty(t, c.Type)
	}
}

func TestDueDate(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name    string
		now     time.Time
		urgency Urgency
		want    time.Time
	}{
		{"high before cutoff", monday, UrgencyHigh, time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC)},
		{"high after cutoff", monday.Add(8 * time.Hour), UrgencyHigh, time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)},
		{"medium", monday, UrgencyMedium, time.Date(2024, 6, 4, 17, 0, 0, 0, time.UTC)},
		{"low", monday, UrgencyLow, time.Date(2024, 6, 5, 17, 0, 0, 0, time.UTC)},
		{"friday evening", time.Date(2024, 6, 7, 18, 0, 0, 0, time.UTC), UrgencyHigh, time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC)},
		{"saturday medium", time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC), UrgencyMedium, time.Date(2024, 6, 11, 17, 0, 0, 0, time.UTC)},
		{"thursday low", time.Date(2024, 6, 6, 9, 0, 0, 0, time.UTC), UrgencyLow, time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.DueDate(tt.now, tt.urgency))
		})
	}
}

func TestDueDate_Location(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	d := NewDetector(func(o *Options) {
		o.Location = loc
		o.CutoffHour = 16
	})
	// 21:30 UTC is 15:30 local, still before the cutoff.
	now := time.Date(2024, 6, 3, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 3, 17, 0, 0, 0, loc), d.DueDate(now, UrgencyHigh))
}

func TestDetect_Excerpt(t *testing.T) {
	text := strings.Repeat("We appreciate your patience with the project. ", 5) +
		"I'll call you back tomorrow morning." +
		strings.Repeat(" The crew finished the tear-off and the decking looks good", 5)
	c := detectorAt(monday).Detect(text)
	require.True(t, c.HasCommitment)
	assert.True(t, strings.HasPrefix(c.Excerpt, "..."))
	assert.True(t, strings.HasSuffix(c.Excerpt, "..."))
	assert.Contains(t, c.Excerpt, "call you back")

	short := detectorAt(monday).Detect("I'll call you back.")
	assert.Equal(t, "I'll call you back.", short.Excerpt)
}

func TestProperty01_DueDateIsBusinessDayAtDueHour(t *testing.T) {
	d := NewDetector()
	rapid.Check(t, func(t *rapid.T) {
		now := time.Unix(rapid.Int64Range(1_600_000_000, 1_900_000_000).Draw(t, "unix"), 0).UTC()
		u := rapid.SampledFrom([]Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow}).Draw(t, "urgency")

		due := d.DueDate(now, u)
		if isWeekend(due) {
			t.Fatalf("due %v falls on a weekend", due)
		}
		if due.Hour() != 17 || due.Minute() != 0 {
			t.Fatalf("due %v not at due hour", due)
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if due.Before(today) {
			t.Fatalf("due %v before %v", due, today)
		}
		if due.Sub(today) > 7*24*time.Hour {
			t.Fatalf("due %v too far from %v", due, today)
		}
	})
}

func TestProperty02_OffersNeverCommit(t *testing.T) {
	d := detectorAt(monday)
	rapid.Check(t, func(t *rapid.T) {
		lead := rapid.SampledFrom([]string{"Would you like", "Do you want", "Shall I", "Want me to", "If you'd like,"}).Draw(t, "lead")
		body := rapid.SampledFrom([]string{
			"I'll call you back",
			"we'll send you a quote",
			"I will schedule the inspection",
			"we will follow up next week",
		}).Draw(t, "body")
		if c := d.Detect(lead + " " + body + "."); c.HasCommitment {
			t.Fatalf("offer %q detected as %s", lead+" "+body, c.Type)
		}
	})
}

func TestProperty03_ExcerptBounded(t *testing.T) {
	d := detectorAt(monday)
	rapid.Check(t, func(t *rapid.T) {
		pre := rapid.StringMatching(`[a-z ]{0,300}`).Draw(t, "pre")
		post := rapid.StringMatching(`[a-z ]{0,300}`).Draw(t, "post")
		c := d.Detect(pre + ". I'll call you back. " + post)
		if !c.HasCommitment {
			t.Fatalf("commitment not detected")
		}
		if n := utf8.RuneCountInString(c.Excerpt); n > 156 {
			t.Fatalf("excerpt too long: %d", n)
		}
	})
}

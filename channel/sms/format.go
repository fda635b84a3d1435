package sms

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var markup = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`), "$1"},
	{regexp.MustCompile("`+([^`]*)`+"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`), "$1 $2"},
	{regexp.MustCompile(`(?m)^\s*(?:#{1,6}\s+|[-*•]\s+|\d+\.\s+)`), ""},
}

// Format strips emphasis markup, collapses the text to a single line and caps
// it at maxLen runes. Truncated text ends with "...".
func Format(text string, maxLen int) string {
	for _, m := range markup {
		text = m.re.ReplaceAllString(text, m.repl)
	}
	text = strings.Join(strings.Fields(text), " ")
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string([]rune(text)[:maxLen])
	}

	cut := string([]rune(text)[:maxLen-3])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

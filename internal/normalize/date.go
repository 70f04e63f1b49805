package normalize

import (
	"strings"
	"time"
)

const canonicalDate = "2006-01-02"

// Layouts tried in order. Portal dates come in every shape imaginable;
// feed timestamps add the RFC variants.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04 PM",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006 3:04 PM",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
}

// Date re-renders free-text dates as YYYY-MM-DD. On total failure it
// returns the input unchanged so a date the source did provide is never
// emptied; downstream can still display the original text.
func Date(text string) string {
	s := CleanText(text)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDate)
		}
	}
	return text
}

// CleanText collapses whitespace and strips non-breaking spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

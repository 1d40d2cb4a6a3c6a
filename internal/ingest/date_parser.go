package ingest

import (
	"strings"
	"time"
)

// statusKeywords mark strings that describe a grant's state rather than a
// calendar date ("Open for applications", "TBA"). Such strings are rejected
// outright, even when they contain date-like substrings.
var statusKeywords = []string{
	"open",
	"closed",
	"applications",
	"tba",
	"n/a",
}

// closingDateFormats is tried in order; first successful parse wins.
var closingDateFormats = []string{
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
}

// ParseClosingDate parses a free-text closing date into a UTC date.
// Returns (zero, false) when the text is empty, a status phrase, or matches
// no known format.
func ParseClosingDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	textLower := strings.ToLower(text)
	for _, kw := range statusKeywords {
		if strings.Contains(textLower, kw) {
			return time.Time{}, false
		}
	}

	for _, format := range closingDateFormats {
		if t, err := time.Parse(format, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

// DetermineStatus derives a grant status from its closing date: closed when
// past, open when closing within 30 days or unknown, upcoming otherwise.
func DetermineStatus(closingDate *time.Time, now time.Time) string {
	if closingDate == nil {
		return "open"
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if closingDate.Before(today) {
		return "closed"
	}
	if !closingDate.After(today.AddDate(0, 0, 30)) {
		return "open"
	}
	return "upcoming"
}

package conference

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"Jan 2, 2006",
	"Jan 02, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate attempts to parse a WikiCFP date text into a time.Time.
// Returns time.Time{} (zero value) if parsing fails.
//
// Ranges such as "Jun 10, 2024 - Jun 12, 2024" yield the start date, and an
// extended deadline such as "Mar 1, 2024 (Feb 15, 2024)" yields the date
// outside the parentheses.
func ParseDate(text string) time.Time {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "("); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if i := strings.Index(text, " - "); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}

	// Could not parse, return zero time
	return time.Time{}
}

// Deadline returns the parsed submission deadline, or the zero time.
func (r *Record) Deadline() time.Time {
	return ParseDate(r.SubmissionDeadline)
}

// Start returns the parsed start of the event date range, or the zero time.
func (r *Record) Start() time.Time {
	return ParseDate(r.When)
}

// IsDeadlinePassed reports whether the submission deadline is before now.
// Returns false if the deadline cannot be parsed.
func (r *Record) IsDeadlinePassed(now time.Time) bool {
	deadline := r.Deadline()
	if deadline.IsZero() {
		return false
	}
	return deadline.Before(now)
}

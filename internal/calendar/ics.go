// Package calendar exports conference submission deadlines as iCalendar data.
package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

// DefaultCalendarName names the exported calendar when none is given.
const DefaultCalendarName = "WikiCFP Deadlines"

// GenerateICS generates an iCalendar document with one all-day event per
// record whose submission deadline can be parsed. Records without a usable
// deadline are skipped. now stamps every entry.
func GenerateICS(records []conference.Record, calendarName string, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//cfp-search//WikiCFP Deadlines//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	if calendarName == "" {
		calendarName = DefaultCalendarName
	}
	ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(calendarName)))

	for i := range records {
		writeDeadline(&ics, &records[i], now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

// CountEvents returns how many records GenerateICS would export.
func CountEvents(records []conference.Record) int {
	n := 0
	for i := range records {
		if !records[i].Deadline().IsZero() {
			n++
		}
	}
	return n
}

func writeDeadline(ics *strings.Builder, rec *conference.Record, now time.Time) {
	deadline := rec.Deadline()
	if deadline.IsZero() {
		return
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s\r\n", eventUID(rec)))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))

	// All-day entry on the deadline
	ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", formatICSDate(deadline)))
	ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", formatICSDate(deadline.AddDate(0, 0, 1))))

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS("Submission deadline: "+rec.Name)))
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description(rec))))

	if rec.Where != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(rec.Where)))
	}

	if link := eventURL(rec); link != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", link))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func description(rec *conference.Record) string {
	lines := []string{rec.Title}
	if rec.When != "" {
		lines = append(lines, "When: "+rec.When)
	}
	if rec.NotificationDue != "" {
		lines = append(lines, "Notification due: "+rec.NotificationDue)
	}
	if rec.WikiCFPLink != "" {
		lines = append(lines, "WikiCFP: "+rec.WikiCFPLink)
	}
	return strings.Join(lines, "\n")
}

// eventURL prefers the conference's own site over the WikiCFP page.
func eventURL(rec *conference.Record) string {
	if rec.ExternalLink != "" {
		return rec.ExternalLink
	}
	return rec.WikiCFPLink
}

// eventUID derives a stable identifier so re-exports update existing
// entries. WikiCFP event ids are used when the link carries one.
func eventUID(rec *conference.Record) string {
	if u, err := url.Parse(rec.WikiCFPLink); err == nil && rec.WikiCFPLink != "" {
		if id := u.Query().Get("eventid"); id != "" {
			return fmt.Sprintf("wikicfp-%s@wikicfp.com", id)
		}
	}
	key := rec.Name + "|" + rec.SubmissionDeadline
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@cfp-search"
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

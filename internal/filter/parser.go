package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

var (
	monthLayouts    = []string{"January", "Jan"}
	monthDayLayouts = []string{"January 2", "Jan 2"}
)

// calendarDay is a parsed range bound. year is 0 when the text names none.
type calendarDay struct {
	year  int
	month time.Month
	day   int
}

// in returns the day in year, or in its own year when it names one.
func (d calendarDay) in(year int) (time.Time, error) {
	if d.year != 0 {
		year = d.year
	}
	t := time.Date(year, d.month, d.day, 0, 0, 0, 0, time.UTC)
	if t.Month() != d.month {
		return time.Time{}, fmt.Errorf("invalid day: %s %d, %d", d.month, d.day, year)
	}
	return t, nil
}

// ParseDateRange parses a deadline range into inclusive start and end times.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15"
//   - "March 1 - April 15"
//   - "March" (entire month)
//   - "Mar 10" (a single day)
//   - any date conference.ParseDate understands, alone or as either bound,
//     e.g. "Mar 1, 2025 - Apr 15, 2025"
//
// Bounds without a year are placed in now's year, the end rolling into the
// following year when its month comes before the start month. A range that
// would end before the current month is moved one year ahead.
//
// Times are in UTC. Start time is at 00:00:00, end time is at 23:59:59.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if month, ok := parseMonth(input); ok {
		year := now.Year()
		if month < now.Month() {
			year++
		}
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		// Day 0 of the next month is the last day of this one
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
		return &from, &to, nil
	}

	startText, endText, isRange := splitRange(input)
	if isRange && (startText == "" || endText == "") {
		return nil, nil, fmt.Errorf("date range %q is missing a bound", input)
	}

	start, err := parseDay(startText)
	if err != nil {
		return nil, nil, err
	}
	end := start
	if isRange {
		if end, err = parseEndDay(endText, start); err != nil {
			return nil, nil, err
		}
	}

	from, to, err := resolve(start, end, now)
	if err != nil {
		return nil, nil, err
	}
	if from.After(to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}

	to = to.Add(24*time.Hour - time.Second)
	return &from, &to, nil
}

// splitRange separates the two bounds of a range. isRange is false for a
// single date.
func splitRange(input string) (startText, endText string, isRange bool) {
	if before, after, found := strings.Cut(input, " - "); found {
		return strings.TrimSpace(before), strings.TrimSpace(after), true
	}
	// ISO dates contain hyphens of their own
	if !conference.ParseDate(input).IsZero() {
		return input, "", false
	}
	if i := strings.LastIndex(input, "-"); i >= 0 {
		return strings.TrimSpace(input[:i]), strings.TrimSpace(input[i+1:]), true
	}
	return input, "", false
}

// resolve places both bounds in concrete years.
func resolve(start, end calendarDay, now time.Time) (time.Time, time.Time, error) {
	place := func(year int) (time.Time, time.Time, error) {
		from, err := start.in(year)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		endYear := from.Year()
		if end.month < from.Month() {
			endYear++
		}
		to, err := end.in(endYear)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return from, to, nil
	}

	from, to, err := place(now.Year())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if start.year == 0 && end.year == 0 && to.Before(monthStart) {
		return place(now.Year() + 1)
	}
	return from, to, nil
}

// parseDay reads a bound naming at least a month and a day.
func parseDay(text string) (calendarDay, error) {
	if t := conference.ParseDate(text); !t.IsZero() {
		return calendarDay{year: t.Year(), month: t.Month(), day: t.Day()}, nil
	}
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return calendarDay{month: t.Month(), day: t.Day()}, nil
		}
	}
	return calendarDay{}, fmt.Errorf("invalid date range format %q. Use 'Mar 1-15', 'March 1 - April 15', 'March' or 'Mar 10'", text)
}

// parseEndDay reads the end bound, which may be a bare day of the start
// month as in "Mar 1-15".
func parseEndDay(text string, start calendarDay) (calendarDay, error) {
	if day, err := strconv.Atoi(text); err == nil {
		if day < 1 || day > 31 {
			return calendarDay{}, fmt.Errorf("invalid day: %s", text)
		}
		return calendarDay{year: start.year, month: start.month, day: day}, nil
	}
	return parseDay(text)
}

// parseMonth reads a bare month name, full or abbreviated, in any case.
func parseMonth(text string) (time.Month, bool) {
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Month(), true
		}
	}
	return 0, false
}

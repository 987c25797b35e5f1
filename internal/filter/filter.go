// Package filter narrows search results on the client side.
//
// Criteria are combined with AND; within a list criterion any entry may
// match:
//   - Deadline range (from/to dates, inclusive)
//   - Locations (substring matching on "where", case-insensitive)
//   - Names (substring matching on name or title, case-insensitive)
//   - Open only (submission deadline not yet passed)
//
// Example usage:
//
//	from, to, _ := filter.ParseDateRange("Mar 1-15", time.Now())
//	f := filter.NewFilter()
//	f.DeadlineFrom, f.DeadlineTo = from, to
//	f.Locations = []string{"Austria"}
//
//	filtered := f.Apply(records, time.Now())
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

// Filter represents record filtering criteria
type Filter struct {
	// Submission deadline range
	DeadlineFrom *time.Time `json:"deadline_from,omitempty"`
	DeadlineTo   *time.Time `json:"deadline_to,omitempty"`

	// Location filtering (case-insensitive substring match)
	Locations []string `json:"locations,omitempty"`

	// Name or title filtering (case-insensitive substring match)
	Names []string `json:"names,omitempty"`

	// Drop records whose deadline has passed
	OpenOnly bool `json:"open_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Locations: []string{},
		Names:     []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DeadlineFrom == nil &&
		f.DeadlineTo == nil &&
		len(f.Locations) == 0 &&
		len(f.Names) == 0 &&
		!f.OpenOnly
}

// Matches checks if a record matches all active filter criteria.
// An empty filter matches all records.
//
// Records whose deadline cannot be parsed never match a deadline range, but
// are kept by OpenOnly since they are not known to be closed.
func (f *Filter) Matches(rec *conference.Record, now time.Time) bool {
	if f.IsEmpty() {
		return true
	}

	deadline := rec.Deadline()

	if f.DeadlineFrom != nil || f.DeadlineTo != nil {
		if deadline.IsZero() {
			return false
		}
		if f.DeadlineFrom != nil && deadline.Before(*f.DeadlineFrom) {
			return false
		}
		if f.DeadlineTo != nil && deadline.After(*f.DeadlineTo) {
			return false
		}
	}

	if f.OpenOnly && rec.IsDeadlinePassed(now) {
		return false
	}

	if len(f.Locations) > 0 && !containsAny(rec.Where, f.Locations) {
		return false
	}

	if len(f.Names) > 0 && !containsAny(rec.Name, f.Names) && !containsAny(rec.Title, f.Names) {
		return false
	}

	return true
}

func containsAny(s string, subs []string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Apply returns the records matching the filter in their original order.
// If the filter is empty, returns the original slice unchanged.
func (f *Filter) Apply(records []conference.Record, now time.Time) []conference.Record {
	if f.IsEmpty() {
		return records
	}

	filtered := make([]conference.Record, 0, len(records))
	for i := range records {
		if f.Matches(&records[i], now) {
			filtered = append(filtered, records[i])
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Deadline from: Mar 1, 2024 | Deadline to: Mar 15, 2024 | Locations: Austria"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DeadlineFrom != nil {
		parts = append(parts, fmt.Sprintf("Deadline from: %s", f.DeadlineFrom.Format("Jan 2, 2006")))
	}

	if f.DeadlineTo != nil {
		parts = append(parts, fmt.Sprintf("Deadline to: %s", f.DeadlineTo.Format("Jan 2, 2006")))
	}

	if f.OpenOnly {
		parts = append(parts, "Open only")
	}

	if len(f.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("Locations: %s", strings.Join(f.Locations, ", ")))
	}

	if len(f.Names) > 0 {
		parts = append(parts, fmt.Sprintf("Names: %s", strings.Join(f.Names, ", ")))
	}

	return strings.Join(parts, " | ")
}

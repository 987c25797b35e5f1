package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone       SortOrder = "none"
	SortByDeadline SortOrder = "deadline"
	SortByWhen     SortOrder = "when"
	SortByName     SortOrder = "name"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", SortNone:
		return SortNone, nil
	case SortByDeadline, SortByWhen, SortByName:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'none', 'deadline', 'when' or 'name')", s)
	}
}

// sortRecords reorders records in place. SortNone keeps listing order.
// Sorting is stable so ties keep listing order too.
func sortRecords(records []conference.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDeadline:
		sort.SliceStable(records, func(i, j int) bool {
			return compareDates(records[i].Deadline(), records[j].Deadline())
		})
	case SortByWhen:
		sort.SliceStable(records, func(i, j int) bool {
			return compareDates(records[i].Start(), records[j].Start())
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
		})
	}
}

// compareDates reports whether dateI sorts before dateJ.
// Zero (unparseable) dates sort last.
func compareDates(dateI, dateJ time.Time) bool {
	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}

	return !dateI.IsZero() && dateJ.IsZero()
}

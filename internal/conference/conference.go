package conference

import (
	"fmt"
	"strings"
)

// RelatedResource is a cross-link listed in the "Related Resources" section
// of an event detail page.
type RelatedResource struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Record represents one conference call for papers.
type Record struct {
	Name               string            `json:"name"`
	Title              string            `json:"title"`
	When               string            `json:"when"`
	Where              string            `json:"where"`
	SubmissionDeadline string            `json:"submission_deadline"`
	NotificationDue    string            `json:"notification_due"`
	ExternalLink       string            `json:"external_link,omitempty"`
	WikiCFPLink        string            `json:"wikicfp_link"`
	RelatedResources   []RelatedResource `json:"related_resources,omitempty"`
}

// Details holds the enrichment fields scraped from a detail page.
// Zero values mean the field was not found.
type Details struct {
	ExternalLink     string
	NotificationDue  string
	RelatedResources []RelatedResource
}

// IsEmpty reports whether no enrichment field was found.
func (d Details) IsEmpty() bool {
	return d.ExternalLink == "" && d.NotificationDue == "" && len(d.RelatedResources) == 0
}

// Merge copies the non-empty detail fields onto the record.
// Detail fields never clear a listing-derived value.
func (r *Record) Merge(d Details) {
	if d.ExternalLink != "" {
		r.ExternalLink = d.ExternalLink
	}
	if d.NotificationDue != "" {
		r.NotificationDue = d.NotificationDue
	}
	if len(d.RelatedResources) > 0 {
		r.RelatedResources = d.RelatedResources
	}
}

// SynthesizeTitle builds a fallback title from the location and deadline,
// used when the listing row carries no title cell text.
func SynthesizeTitle(where, deadline string) string {
	parts := make([]string, 0, 2)
	if where != "" {
		parts = append(parts, "Location: "+where)
	}
	if deadline != "" {
		parts = append(parts, "Deadline: "+deadline)
	}
	if len(parts) == 0 {
		return "Conference"
	}
	return strings.Join(parts, " | ")
}

// YearFilter restricts a search to events of a given year range.
// The value is the code sent in the "year" query parameter.
type YearFilter string

const (
	ThisYear YearFilter = "t"
	NextYear YearFilter = "n"
	AllYears YearFilter = "a"
)

// ParseYearFilter accepts "this_year", "next_year", "all" or their
// single-letter codes.
func ParseYearFilter(s string) (YearFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "t", "this_year", "this-year":
		return ThisYear, nil
	case "n", "next_year", "next-year":
		return NextYear, nil
	case "a", "all":
		return AllYears, nil
	default:
		return "", fmt.Errorf("invalid year filter: %q (must be this_year, next_year or all)", s)
	}
}

// String returns the long name of the filter.
func (y YearFilter) String() string {
	switch y {
	case NextYear:
		return "next_year"
	case AllYears:
		return "all"
	default:
		return "this_year"
	}
}

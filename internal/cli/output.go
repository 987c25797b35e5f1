package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/pfrederiksen/cfp-search/internal/calendar"
	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/logger"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatICS:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'json', 'text' or 'ics')", s)
	}
}

// maxColumnWidth caps the width of free-text columns in text output.
const maxColumnWidth = 40

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result conference.Result, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatICS:
		return writeICS(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeICS outputs the submission deadlines as an iCalendar file. Records
// without a parseable deadline are skipped and counted in the log.
func writeICS(w io.Writer, result conference.Result) error {
	exported := calendar.CountEvents(result.Events)
	if skipped := len(result.Events) - exported; skipped > 0 {
		logger.Info("records without a parseable deadline left out of calendar", logger.Fields{
			"exported": exported,
			"skipped":  skipped,
		})
	}
	_, err := io.WriteString(w, calendar.GenerateICS(result.Events, "", time.Now()))
	return err
}

// writeJSON outputs the envelope as JSON
func writeJSON(w io.Writer, result conference.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as an aligned, human-readable table
func writeText(w io.Writer, result conference.Result, verbose bool) error {
	if !result.OK() {
		fmt.Fprintf(w, "Error: %s\n", result.Message)
		return nil
	}

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No conferences found.")
		return nil
	}

	rows := [][]string{{"NAME", "DEADLINE", "WHEN", "WHERE"}}
	for _, rec := range result.Events {
		rows = append(rows, []string{
			rec.Name,
			rec.SubmissionDeadline,
			rec.When,
			rec.Where,
		})
	}

	widths := columnWidths(rows)
	for i, row := range rows {
		fmt.Fprintln(w, formatRow(row, widths))

		if !verbose || i == 0 {
			continue
		}
		rec := result.Events[i-1]
		fmt.Fprintf(w, "    %s\n", rec.Title)
		if rec.NotificationDue != "" {
			fmt.Fprintf(w, "    Notification: %s\n", rec.NotificationDue)
		}
		if rec.ExternalLink != "" {
			fmt.Fprintf(w, "    Link: %s\n", rec.ExternalLink)
		}
		if rec.WikiCFPLink != "" {
			fmt.Fprintf(w, "    WikiCFP: %s\n", rec.WikiCFPLink)
		}
		for _, res := range rec.RelatedResources {
			fmt.Fprintf(w, "    Related: %s %s\n", res.Name, res.URL)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d conferences\n", len(result.Events))
	if n := calendar.CountEvents(result.Events); n < len(result.Events) {
		fmt.Fprintf(w, "Unknown deadlines: %d\n", len(result.Events)-n)
	}
	if result.Warnings > 0 {
		fmt.Fprintf(w, "Warnings: %d detail pages could not be read\n", result.Warnings)
	}

	return nil
}

// columnWidths returns the display width of each column, capped at
// maxColumnWidth.
func columnWidths(rows [][]string) []int {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			width := runewidth.StringWidth(cell)
			if width > maxColumnWidth {
				width = maxColumnWidth
			}
			if width > widths[i] {
				widths[i] = width
			}
		}
	}
	return widths
}

func formatRow(row []string, widths []int) string {
	var sb strings.Builder
	for i, cell := range row {
		if i > 0 {
			sb.WriteString("  ")
		}
		cell = runewidth.Truncate(cell, widths[i], "…")
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		sb.WriteString(runewidth.FillRight(cell, widths[i]))
	}
	return strings.TrimRight(sb.String(), " ")
}

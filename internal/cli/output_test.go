package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

func sampleResult() conference.Result {
	result := conference.Success([]conference.Record{
		{
			Name:               "ICML 2024",
			Title:              "International Conference on Machine Learning",
			When:               "Jul 21, 2024 - Jul 27, 2024",
			Where:              "Vienna, Austria",
			SubmissionDeadline: "Feb 1, 2024",
			NotificationDue:    "May 1, 2024",
			ExternalLink:       "https://icml.cc/Conferences/2024",
			WikiCFPLink:        "http://www.wikicfp.com/cfp/servlet/event.showcfp?eventid=1001",
			RelatedResources: []conference.RelatedResource{
				{Name: "NeurIPS 2024", Title: "Neural Information Processing Systems", URL: "http://www.wikicfp.com/cfp/servlet/event.showcfp?eventid=2001"},
			},
		},
		{
			Name:               "京都会議 2024",
			Title:              "Conference",
			When:               "N/A",
			Where:              "Kyoto, Japan",
			SubmissionDeadline: "TBD",
		},
	})
	result.Warnings = 1
	return result
}

func TestParseOutputFormat(t *testing.T) {
	for _, in := range []string{"json", "TEXT", " ics "} {
		_, err := ParseOutputFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, sampleResult(), FormatJSON, false))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.EqualValues(t, 2, decoded["count"])
	assert.EqualValues(t, 1, decoded["warnings"])

	events := decoded["events"].([]any)
	second := events[1].(map[string]any)
	assert.NotContains(t, second, "external_link")
	assert.NotContains(t, second, "related_resources")
	assert.Contains(t, second, "notification_due")
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, sampleResult(), FormatText, false))
	out := buf.String()

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "ICML 2024"))

	assert.Equal(t, strings.Index(lines[0], "DEADLINE"), strings.Index(lines[1], "Feb 1, 2024"))

	assert.Contains(t, out, "Total: 2 conferences")
	assert.Contains(t, out, "Unknown deadlines: 1")
	assert.Contains(t, out, "Warnings: 1 detail pages could not be read")
	assert.NotContains(t, out, "Notification:")
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, sampleResult(), FormatText, true))
	out := buf.String()

	assert.Contains(t, out, "International Conference on Machine Learning")
	assert.Contains(t, out, "Notification: May 1, 2024")
	assert.Contains(t, out, "Link: https://icml.cc/Conferences/2024")
	assert.Contains(t, out, "Related: NeurIPS 2024")
}

func TestWriteOutput_TextEmptyAndError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, conference.Success(nil), FormatText, false))
	assert.Equal(t, "No conferences found.\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, conference.Failure(errors.New("boom")), FormatText, false))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestWriteOutput_ICS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, sampleResult(), FormatICS, false))

	// Only the record with a parseable deadline is exported
	assert.Equal(t, 1, strings.Count(buf.String(), "BEGIN:VEVENT"))
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteOutput(&buf, sampleResult(), OutputFormat("csv"), false))
}

func TestFormatRow(t *testing.T) {
	rows := [][]string{
		{"NAME", "WHERE"},
		{"京都", "Kyoto"},
		{"ABCDEF", "Paris"},
	}
	widths := columnWidths(rows)
	assert.Equal(t, []int{6, 5}, widths)

	assert.Equal(t, "NAME    WHERE", formatRow(rows[0], widths))
	assert.Equal(t, "京都    Kyoto", formatRow(rows[1], widths))

	long := []string{strings.Repeat("x", 60), "end"}
	w := columnWidths([][]string{long})
	assert.Equal(t, maxColumnWidth, w[0])
	assert.True(t, strings.HasSuffix(formatRow(long, w), "…  end"))
}

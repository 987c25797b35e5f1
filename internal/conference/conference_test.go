package conference

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSynthesizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		where    string
		deadline string
		expected string
	}{
		{"location and deadline", "Paris", "2024-01-01", "Location: Paris | Deadline: 2024-01-01"},
		{"location only", "Paris", "", "Location: Paris"},
		{"deadline only", "", "2024-01-01", "Deadline: 2024-01-01"},
		{"neither", "", "", "Conference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SynthesizeTitle(tt.where, tt.deadline); got != tt.expected {
				t.Errorf("SynthesizeTitle(%q, %q) = %q, want %q", tt.where, tt.deadline, got, tt.expected)
			}
		})
	}
}

func TestRecordMerge(t *testing.T) {
	rec := Record{
		Name:            "ICML 2024",
		NotificationDue: "",
		WikiCFPLink:     "http://www.wikicfp.com/cfp/servlet/event.showcfp?eventid=1",
	}

	rec.Merge(Details{})
	if rec.NotificationDue != "" || rec.ExternalLink != "" || rec.RelatedResources != nil {
		t.Errorf("merging empty details changed the record: %+v", rec)
	}

	rec.Merge(Details{
		ExternalLink:    "https://icml.cc",
		NotificationDue: "May 1, 2024",
		RelatedResources: []RelatedResource{
			{Name: "NeurIPS 2024", URL: "http://www.wikicfp.com/cfp/servlet/event.showcfp?eventid=2"},
		},
	})

	if rec.ExternalLink != "https://icml.cc" {
		t.Errorf("ExternalLink = %q, want https://icml.cc", rec.ExternalLink)
	}
	if rec.NotificationDue != "May 1, 2024" {
		t.Errorf("NotificationDue = %q, want May 1, 2024", rec.NotificationDue)
	}
	if len(rec.RelatedResources) != 1 {
		t.Errorf("RelatedResources has %d entries, want 1", len(rec.RelatedResources))
	}

	// A later empty field must not clear an existing value
	rec.Merge(Details{NotificationDue: ""})
	if rec.NotificationDue != "May 1, 2024" {
		t.Errorf("NotificationDue cleared by empty detail: %q", rec.NotificationDue)
	}
}

func TestDetailsIsEmpty(t *testing.T) {
	if !(Details{}).IsEmpty() {
		t.Error("zero Details should be empty")
	}
	if (Details{NotificationDue: "x"}).IsEmpty() {
		t.Error("Details with notification due should not be empty")
	}
}

func TestRecordJSON_OptionalFields(t *testing.T) {
	rec := Record{Name: "AAAI 2025", Title: "AAAI Conference"}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := string(data)

	for _, key := range []string{`"name"`, `"title"`, `"when"`, `"where"`, `"submission_deadline"`, `"notification_due"`, `"wikicfp_link"`} {
		if !strings.Contains(out, key) {
			t.Errorf("JSON %s missing key %s", out, key)
		}
	}
	for _, key := range []string{`"external_link"`, `"related_resources"`} {
		if strings.Contains(out, key) {
			t.Errorf("JSON %s should omit %s when empty", out, key)
		}
	}
}

func TestParseYearFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    YearFilter
		wantErr bool
	}{
		{"", ThisYear, false},
		{"t", ThisYear, false},
		{"this_year", ThisYear, false},
		{"NEXT_YEAR", NextYear, false},
		{"n", NextYear, false},
		{"all", AllYears, false},
		{"a", AllYears, false},
		{"last_year", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseYearFilter(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseYearFilter(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseYearFilter(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseYearFilter(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResultEnvelope(t *testing.T) {
	t.Run("success with no records", func(t *testing.T) {
		data, err := json.Marshal(Success(nil))
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		want := `{"status":"success","count":0,"events":[]}`
		if string(data) != want {
			t.Errorf("Success(nil) = %s, want %s", data, want)
		}
	})

	t.Run("error", func(t *testing.T) {
		res := Failure(errors.New("boom"))
		if res.OK() {
			t.Error("Failure() should not be OK")
		}
		data, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		want := `{"status":"error","events":[],"message":"boom"}`
		if string(data) != want {
			t.Errorf("Failure() = %s, want %s", data, want)
		}
	})
}

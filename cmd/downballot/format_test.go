package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/sources"
)

func sampleResults() *ResultsResponseCLI {
	return &ResultsResponseCLI{
		Source:       sources.SourceNCSBE,
		Jurisdiction: "NC",
		StartDate:    "2022-01-01",
		EndDate:      "2022-12-31",
		Levels: map[string]dataset.Rows{
			"contest": {
				{
					State:        "NC",
					Year:         2022,
					ElectionDate: dataset.NewDate(2022, time.November, 8),
					Office:       "us_senate",
					Candidate:    "Alpha Person",
					Party:        "Democratic",
					Votes:        180,
					Won:          true,
				},
			},
		},
		Warnings: []sources.Warning{
			{Code: dberrors.FetchFailed, Message: "one election skipped"},
		},
		FetchCount: 1,
		RowCount:   1,
		Limit:      40,
	}
}

func TestFormatResultsJSON(t *testing.T) {
	out, err := FormatResponse(sampleResults(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["source"] != "ncsbe" {
		t.Errorf("source = %v", decoded["source"])
	}
	if _, ok := decoded["levels"].(map[string]interface{})["contest"]; !ok {
		t.Error("missing contest level in JSON output")
	}
}

func TestFormatResultsHuman(t *testing.T) {
	out, err := FormatResponse(sampleResults(), FormatHuman)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"ncsbe", "2022-11-08", "Alpha Person", "FETCH_FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
	// The winner marker.
	if !strings.Contains(out, "* 2022-11-08") {
		t.Errorf("winner not marked:\n%s", out)
	}
}

func TestFormatResultsCSV(t *testing.T) {
	out, err := FormatResponse(sampleResults(), FormatCSV)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "level,state,year,election_date") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "contest,NC,2022,2022-11-08") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestFormatCSVOnlyForResults(t *testing.T) {
	if _, err := FormatResponse(&StatusResponseCLI{}, FormatCSV); err == nil {
		t.Error("expected error for csv status output")
	}
}

func TestCSVFieldQuoting(t *testing.T) {
	cases := map[string]string{
		"plain":        "plain",
		"has,comma":    `"has,comma"`,
		`has"quote`:    `"has""quote"`,
		"two\nlines":   "\"two\nlines\"",
	}
	for in, want := range cases {
		if got := csvField(in); got != want {
			t.Errorf("csvField(%q) = %q, want %q", in, got, want)
		}
	}
}

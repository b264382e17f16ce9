package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/gchickering21/downballot/internal/dataset"
	"github.com/gchickering21/downballot/internal/sources"
)

const yearPageFixture = `
<html><body>
<table class="wikitable sortable">
<tr><th colspan="5">2024 Alabama School Board Elections</th></tr>
<tr><th>District</th><th>Primary</th><th>General election</th><th>Seats up</th><th>Term length</th></tr>
<tr>
  <td><a href="/Hoover_City_Schools_elections,_2024">Hoover City Schools</a></td>
  <td>-</td>
  <td>November 5, 2024</td>
  <td>3</td>
  <td>4</td>
</tr>
<tr>
  <td>Unlinked District</td>
  <td>-</td>
  <td>-</td>
  <td>2</td>
  <td>4</td>
</tr>
</table>
<table class="wikitable sortable">
<tr><th colspan="3">2024 Texas School Board Elections</th></tr>
<tr><th>District</th><th>General election</th><th>Seats up</th></tr>
<tr><td>Austin ISD</td><td>November 5, 2024</td><td>4</td></tr>
</table>
</body></html>`

const districtPageFixture = `
<html><body>
<table class="wikitable sortable collapsible">
<tr><th colspan="2"><h4>Hoover City Schools school board general election 2024</h4></th></tr>
<tr><th>Office</th><th>Candidates</th></tr>
<tr>
  <td>Place 1</td>
  <td>
    <img alt="Green check mark" src="/check.png"/><a href="/Amy_Winner">Amy Winner</a> (i)<br/>
    <a href="/Bob_Loser">Bob Loser</a><br/>
    <a href="https://survey.example.com" target="_blank">Candidate Connection</a>
  </td>
</tr>
</table>
</body></html>`

func parseHTML(t *testing.T, fixture string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseYearPageFiltersByState(t *testing.T) {
	doc := parseHTML(t, yearPageFixture)
	entries := parseYearPage(doc, 2024, "Alabama", "https://ballotpedia.org")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (the Texas table must be filtered out)", len(entries))
	}

	first := entries[0]
	if first.District != "Hoover City Schools" {
		t.Errorf("district = %q", first.District)
	}
	if first.DistrictURL != "https://ballotpedia.org/Hoover_City_Schools_elections,_2024" {
		t.Errorf("district url = %q", first.DistrictURL)
	}
	if !first.GeneralDate.Equal(dataset.NewDate(2024, time.November, 5)) {
		t.Errorf("general date = %s", first.GeneralDate)
	}
	if first.SeatsUp != "3" {
		t.Errorf("seats up = %q", first.SeatsUp)
	}

	// A dash cell means no announced date yet.
	if !entries[1].GeneralDate.IsZero() {
		t.Errorf("unannounced date should be zero, got %s", entries[1].GeneralDate)
	}
}

func TestCheckmarkRows(t *testing.T) {
	doc := parseHTML(t, districtPageFixture)
	entry := districtEntry{
		Year:        2024,
		State:       "Alabama",
		District:    "Hoover City Schools",
		DistrictURL: "https://ballotpedia.org/Hoover_City_Schools_elections,_2024",
		GeneralDate: dataset.NewDate(2024, time.November, 5),
	}
	spec := sources.FetchSpec{Jurisdiction: "AL", Level: sources.GranularityCandidate}

	rows := checkmarkRows(doc, spec, entry)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (survey link must be skipped)", len(rows))
	}
	if rows[0].Candidate != "Amy Winner" || !rows[0].Won || !rows[0].Incumbent {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Candidate != "Bob Loser" || rows[1].Won || rows[1].Incumbent {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[0].Office != "school_board" || rows[0].OfficeRaw != "Place 1" {
		t.Errorf("office = %q / %q", rows[0].Office, rows[0].OfficeRaw)
	}
}

func TestParseBallotpediaDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"November 5, 2024", "2024-11-05"},
		{"11/5/2024", "2024-11-05"},
		{"November 5", "2024-11-05"},
		{"-", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := parseBallotpediaDate(tc.in, 2024).String()
		if got != tc.want {
			t.Errorf("parseBallotpediaDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFetchSchoolBoardsDistrictLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/School_board_elections,_2024") {
			w.Write([]byte(yearPageFixture))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	profile := &sources.Profile{
		ID:                  sources.SourceBallotpedia,
		Granularities:       []sources.Granularity{sources.GranularityDistrict, sources.GranularityCandidate},
		DefaultGranularity:  sources.GranularityDistrict,
		SpecializedCategory: "school_board",
		Fallback: &sources.StateConfig{
			BaseURL:       srv.URL,
			RetrievalKind: sources.KindTabularHTTP,
		},
	}
	spec := sources.FetchSpec{
		Profile:      profile,
		Jurisdiction: "AL",
		Level:        sources.GranularityDistrict,
		Start:        dataset.NewDate(2024, time.January, 1),
		End:          dataset.NewDate(2024, time.December, 31),
	}

	result, err := testOrchestrator(t).Fetch(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != sources.FetchOK {
		t.Errorf("status = %s", result.Status)
	}
	// Both Alabama districts: the announced one keeps its date, the
	// unannounced one falls back to the statutory date.
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}
	for _, r := range result.Rows {
		if r.Office != "school_board" || r.JurisdictionType != "school_district" {
			t.Errorf("row = %+v", r)
		}
		if !r.ElectionDate.Equal(dataset.NewDate(2024, time.November, 5)) {
			t.Errorf("date = %s", r.ElectionDate)
		}
	}
}

func TestFetchSchoolBoardsMissingYearPageIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	profile := &sources.Profile{
		ID:                 sources.SourceBallotpedia,
		Granularities:      []sources.Granularity{sources.GranularityDistrict},
		DefaultGranularity: sources.GranularityDistrict,
		Fallback:           &sources.StateConfig{BaseURL: srv.URL, RetrievalKind: sources.KindTabularHTTP},
	}
	spec := sources.FetchSpec{
		Profile:      profile,
		Jurisdiction: "AL",
		Level:        sources.GranularityDistrict,
		Start:        dataset.NewDate(2024, time.January, 1),
		End:          dataset.NewDate(2024, time.December, 31),
	}

	result, err := testOrchestrator(t).Fetch(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != sources.FetchEmpty {
		t.Errorf("status = %s, want empty", result.Status)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("404 year pages must not warn, got %v", result.Warnings)
	}
}

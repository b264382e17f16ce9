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

const searchFixture = `
<html><body>
<table id="search_results_table">
<tr id="election-id-119001">
  <td>2021</td>
  <td>House of Delegates</td>
  <td>District 10</td>
  <td>General</td>
  <td>
    <table class="candidates">
      <tbody>
        <tr class="is_winner">
          <td class="candidate"><div class="name"><a>Dana Example</a></div><div class="party">Democratic</div></td>
          <td>12,345</td>
          <td>55.1%</td>
        </tr>
        <tr>
          <td class="candidate"><div class="name"><a>Pat Rival</a></div><div class="party">Republican</div></td>
          <td>10,000</td>
          <td>44.9%</td>
        </tr>
        <tr class="n_total_votes"><td>Total</td><td>22,345</td><td></td></tr>
      </tbody>
    </table>
  </td>
</tr>
<tr id="election-id-119002">
  <td>2021</td>
  <td>Governor</td>
  <td></td>
  <td>Democratic Primary</td>
  <td>
    <table class="candidates">
      <tbody>
        <tr class="is_winner">
          <td class="candidate"><div class="name"><a>Sam Nominee</a></div><div class="party">(Write-In)</div></td>
          <td>900</td>
          <td>100.0%</td>
        </tr>
      </tbody>
    </table>
  </td>
</tr>
<tr id="not-a-result-row"><td>junk</td></tr>
</table>
</body></html>`

func parseSearchFixture(t *testing.T, fixture string) []contestRecord {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatal(err)
	}
	return parseSearchResults(doc)
}

func TestParseSearchResults(t *testing.T) {
	contests := parseSearchFixture(t, searchFixture)
	if len(contests) != 2 {
		t.Fatalf("parsed %d contests, want 2", len(contests))
	}

	first := contests[0]
	if first.ElectionID != 119001 || first.Year != 2021 {
		t.Errorf("contest meta = %+v", first)
	}
	if first.Office != "House of Delegates" || first.District != "District 10" {
		t.Errorf("office/district = %q / %q", first.Office, first.District)
	}
	if len(first.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 (total row must be skipped)", len(first.Candidates))
	}
	if first.Candidates[0].Votes != 12345 || !first.Candidates[0].IsWinner {
		t.Errorf("candidate 0 = %+v", first.Candidates[0])
	}
	if first.Candidates[1].IsWinner {
		t.Error("loser marked winner")
	}
}

func TestContestRowsCanonicalization(t *testing.T) {
	contests := parseSearchFixture(t, searchFixture)
	spec := sources.FetchSpec{
		Jurisdiction: "VA",
		Level:        sources.GranularityContest,
		Start:        dataset.NewDate(2021, time.January, 1),
		End:          dataset.NewDate(2021, time.December, 31),
	}
	rows := contestRows(spec, contests)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	r := rows[0]
	if r.State != "VA" || r.Year != 2021 {
		t.Errorf("row = %+v", r)
	}
	if !r.ElectionDate.Equal(dataset.NewDate(2021, time.November, 2)) {
		t.Errorf("statutory date = %s, want 2021-11-02", r.ElectionDate)
	}
	if r.Office != "state_house" {
		t.Errorf("office = %q", r.Office)
	}
	if r.VoteShare != 0.551 {
		t.Errorf("vote share = %v", r.VoteShare)
	}

	// Write-in party marker in a partisan primary gets the stage's party.
	primary := rows[2]
	if primary.Party != "Democratic" {
		t.Errorf("primary party = %q, want inferred Democratic", primary.Party)
	}
	if primary.ElectionType != "primary" {
		t.Errorf("primary type = %q", primary.ElectionType)
	}
}

func TestContestRowsRangeFilter(t *testing.T) {
	contests := parseSearchFixture(t, searchFixture)
	spec := sources.FetchSpec{
		Jurisdiction: "VA",
		Start:        dataset.NewDate(2022, time.January, 1),
		End:          dataset.NewDate(2022, time.December, 31),
	}
	if rows := contestRows(spec, contests); len(rows) != 0 {
		t.Errorf("out-of-range contests must be dropped, got %d rows", len(rows))
	}
}

func TestBuildSearchURL(t *testing.T) {
	got := buildSearchURL("https://example.org/elections", "/search", 2020, 2024, 1)
	want := "https://example.org/elections/search?page=1&year_from=2020&year_to=2024"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	// Colorado: empty search path means the base URL is the surface.
	got = buildSearchURL("https://co.example.org/contests/", "", 2020, 2024, 2)
	want = "https://co.example.org/contests?page=2&year_from=2020&year_to=2024"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestStatutoryElectionDate(t *testing.T) {
	cases := map[int]string{
		2020: "2020-11-03",
		2021: "2021-11-02",
		2022: "2022-11-08",
		2024: "2024-11-05",
	}
	for year, want := range cases {
		if got := statutoryElectionDate(year).String(); got != want {
			t.Errorf("statutoryElectionDate(%d) = %s, want %s", year, got, want)
		}
	}
}

func TestNormalizeParty(t *testing.T) {
	cases := []struct {
		party, stage, want string
	}{
		{"Democratic", "General", "Democratic"},
		{"", "Republican Primary", "Republican"},
		{"(Write-In)", "Libertarian Primary", "Libertarian"},
		{"(Write-In)", "General", "(Write-In)"},
		{"", "General", ""},
	}
	for _, tc := range cases {
		if got := normalizeParty(tc.party, tc.stage); got != tc.want {
			t.Errorf("normalizeParty(%q, %q) = %q, want %q", tc.party, tc.stage, got, tc.want)
		}
	}
}

func TestFetchElectionStatsEndToEnd(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages = append(pages, r.URL.Query().Get("page"))
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(searchFixture))
			return
		}
		w.Write([]byte(`<html><body><table id="search_results_table"></table></body></html>`))
	}))
	defer srv.Close()

	profile := &sources.Profile{
		ID:                 sources.SourceElectionStats,
		Granularities:      []sources.Granularity{sources.GranularityContest, sources.GranularityCounty},
		DefaultGranularity: sources.GranularityContest,
		States: map[string]sources.StateConfig{
			"VA": {BaseURL: srv.URL, SearchPath: "/search", RetrievalKind: sources.KindTabularHTTP},
		},
	}
	spec := sources.FetchSpec{
		Profile:      profile,
		Jurisdiction: "VA",
		Level:        sources.GranularityContest,
		Start:        dataset.NewDate(2021, time.January, 1),
		End:          dataset.NewDate(2021, time.December, 31),
	}

	result, err := testOrchestrator(t).Fetch(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != sources.FetchOK {
		t.Errorf("status = %s", result.Status)
	}
	if len(result.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(result.Rows))
	}
	if len(pages) != 2 {
		t.Errorf("pagination stopped after %d requests, want 2 (content page + empty page)", len(pages))
	}
	for _, r := range result.Rows {
		if r.FetchID == "" {
			t.Fatal("rows missing fetch id")
		}
	}
}

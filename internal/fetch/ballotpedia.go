package fetch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/sources"
)

// captionPattern extracts the state from per-state table captions like
// "2024 Alabama School Board Elections"
var captionPattern = regexp.MustCompile(`(?i)^(?:\d{4}\s+)?(.+?)\s+School Board`)

// districtEntry is one parsed line of a year page
type districtEntry struct {
	Year        int
	State       string
	District    string
	DistrictURL string
	GeneralDate dataset.Date
	SeatsUp     string
	TermLength  string
}

// fetchSchoolBoards walks the per-year index pages for the requested
// jurisdiction. District granularity parses only the year pages; candidate
// granularity follows each district link for its results.
func (o *Orchestrator) fetchSchoolBoards(ctx context.Context, spec sources.FetchSpec, stateCfg sources.StateConfig) (*sources.FetchResult, error) {
	stateName := sources.JurisdictionName(spec.Jurisdiction)
	result := &sources.FetchResult{}

	var entries []districtEntry
	for year := spec.Start.Year(); year <= spec.End.Year(); year++ {
		pageURL := fmt.Sprintf("%s/School_board_elections,_%d", strings.TrimRight(stateCfg.BaseURL, "/"), year)
		body, err := o.client.Get(ctx, pageURL)
		if err != nil {
			if errors.Is(err, errNotFound) {
				// No page for this year; not an error.
				continue
			}
			result.Warnings = append(result.Warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("year page %d failed (%v); year skipped", year, err),
			})
			continue
		}
		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			result.Warnings = append(result.Warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("year page %d was not parseable; year skipped", year),
			})
			continue
		}
		entries = append(entries, parseYearPage(doc, year, stateName, stateCfg.BaseURL)...)
	}

	for i := range entries {
		if entries[i].GeneralDate.IsZero() {
			// A year page can list districts before dates are announced.
			entries[i].GeneralDate = statutoryElectionDate(entries[i].Year)
		}
	}

	if spec.Level == sources.GranularityCandidate {
		rows, warnings := o.candidateRows(ctx, spec, entries)
		result.Rows = rows
		result.Warnings = append(result.Warnings, warnings...)
		return result, nil
	}

	for _, e := range entries {
		if e.GeneralDate.Before(spec.Start) || e.GeneralDate.After(spec.End) {
			continue
		}
		result.Rows = append(result.Rows, dataset.Row{
			State:            spec.Jurisdiction,
			Year:             e.Year,
			ElectionDate:     e.GeneralDate,
			ElectionType:     "general",
			Office:           "school_board",
			OfficeRaw:        "School Board",
			Jurisdiction:     e.District,
			JurisdictionType: "school_district",
			District:         e.SeatsUp,
			SourceURL:        e.DistrictURL,
		})
	}
	return result, nil
}

// parseYearPage finds the per-state sortable tables on a year page and
// returns one entry per district row. Column positions shift between
// years, so indices are resolved from the header row by keyword.
func parseYearPage(doc *html.Node, year int, stateName, baseURL string) []districtEntry {
	var out []districtEntry

	for _, table := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "table" && classContains(n, "sortable")
	}) {
		trs := findAll(table, byTag("tr"))
		if len(trs) < 3 {
			continue
		}

		m := captionPattern.FindStringSubmatch(nodeText(trs[0]))
		if m == nil || !strings.EqualFold(dataset.CleanText(m[1]), stateName) {
			continue
		}

		headers := make([]string, 0, 8)
		for _, cell := range childCells(trs[1]) {
			headers = append(headers, strings.ToLower(nodeText(cell)))
		}
		generalIdx := headerIndex(headers, "general election")
		seatsIdx := headerIndex(headers, "seats up")
		termIdx := headerIndex(headers, "term length")

		for _, tr := range trs[2:] {
			cells := childCells(tr)
			if len(cells) == 0 || cells[0].Data != "td" {
				continue
			}

			entry := districtEntry{Year: year, State: stateName}
			if link := findFirst(cells[0], byTag("a")); link != nil {
				entry.District = nodeText(link)
				entry.DistrictURL = absoluteURL(attrVal(link, "href"), baseURL)
			} else {
				entry.District = nodeText(cells[0])
			}
			if entry.District == "" {
				continue
			}
			entry.GeneralDate = parseBallotpediaDate(cellAt(cells, generalIdx), year)
			entry.SeatsUp = cellAt(cells, seatsIdx)
			entry.TermLength = cellAt(cells, termIdx)
			out = append(out, entry)
		}
	}
	return out
}

func headerIndex(headers []string, keyword string) int {
	for i, h := range headers {
		if strings.Contains(h, keyword) {
			return i
		}
	}
	return -1
}

func cellAt(cells []*html.Node, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	v := nodeText(cells[idx])
	if v == "-" {
		return ""
	}
	return v
}

func absoluteURL(href, base string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimRight(base, "/") + href
}

// parseBallotpediaDate accepts the date shapes year pages use; a bare year
// cell yields the zero date
func parseBallotpediaDate(s string, year int) dataset.Date {
	s = dataset.CleanText(s)
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006", "01/02/2006", "1/2/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.NewDate(t.Year(), t.Month(), t.Day())
		}
	}
	// "November 5" without a year appears on some older pages.
	for _, layout := range []string{"January 2", "Jan 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.NewDate(year, t.Month(), t.Day())
		}
	}
	return dataset.Date{}
}

// candidateRows follows each district link and parses its results. One
// broken district page degrades to a warning.
func (o *Orchestrator) candidateRows(ctx context.Context, spec sources.FetchSpec, entries []districtEntry) (dataset.Rows, []sources.Warning) {
	var out dataset.Rows
	var warnings []sources.Warning

	for _, e := range entries {
		if e.GeneralDate.Before(spec.Start) || e.GeneralDate.After(spec.End) {
			continue
		}
		if e.DistrictURL == "" {
			continue
		}
		body, err := o.client.Get(ctx, e.DistrictURL)
		if err != nil {
			warnings = append(warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("district page for %q failed (%v); district skipped", e.District, err),
			})
			continue
		}
		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			warnings = append(warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("district page for %q was not parseable; district skipped", e.District),
			})
			continue
		}
		out = append(out, districtCandidateRows(doc, spec, e)...)
	}
	return out, warnings
}

// districtCandidateRows handles both district-page formats: votebox
// results tables with vote counts, and the plainer Office/Candidates
// tables where a checkmark image marks the winner.
func districtCandidateRows(doc *html.Node, spec sources.FetchSpec, e districtEntry) dataset.Rows {
	rows := voteboxRows(doc, spec, e)
	if len(rows) > 0 {
		return rows
	}
	return checkmarkRows(doc, spec, e)
}

func voteboxRows(doc *html.Node, spec sources.FetchSpec, e districtEntry) dataset.Rows {
	var out dataset.Rows
	for _, votebox := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "div" && classContains(n, "votebox")
	}) {
		heading := nodeText(findFirst(votebox, func(n *html.Node) bool {
			return classContains(n, "votebox-header-election-type") ||
				classContains(n, "votebox-heading") || n.Data == "h3" || n.Data == "h4"
		}))
		electionType := ballotpediaElectionType(heading)

		for _, tr := range findAll(votebox, func(n *html.Node) bool {
			return n.Data == "tr" && classContains(n, "results_row")
		}) {
			textCell := findFirst(tr, func(n *html.Node) bool {
				return n.Data == "td" && classContains(n, "votebox-results-cell--text")
			})
			if textCell == nil {
				continue
			}
			name := nodeText(findFirst(textCell, byTag("a")))
			if name == "" {
				name = nodeText(textCell)
			}
			if name == "" {
				continue
			}

			row := dataset.Row{
				State:            spec.Jurisdiction,
				Year:             e.Year,
				ElectionDate:     e.GeneralDate,
				ElectionType:     electionType,
				Office:           "school_board",
				OfficeRaw:        "School Board",
				Jurisdiction:     e.District,
				JurisdictionType: "school_district",
				Candidate:        strings.TrimSuffix(name, "*"),
				Won:              classContains(tr, "winner"),
				Incumbent:        strings.Contains(nodeText(textCell), "(i)"),
				SourceURL:        e.DistrictURL,
			}
			cells := childCells(tr)
			for _, td := range cells {
				if classContains(td, "votebox-results-cell--number") {
					if v, ok := parseCount(nodeText(td)); ok && row.Votes == 0 {
						row.Votes = v
					} else if strings.Contains(nodeText(td), "%") && row.VoteShare == 0 {
						row.VoteShare = parseVoteShare(nodeText(td))
					}
				}
			}
			out = append(out, row)
		}
	}
	return out
}

// checkmarkRows parses the Office/Candidates table format: interleaved
// checkmark images and candidate anchors inside one cell.
func checkmarkRows(doc *html.Node, spec sources.FetchSpec, e districtEntry) dataset.Rows {
	var out dataset.Rows
	for _, table := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "table" && classContains(n, "wikitable")
	}) {
		for _, tr := range findAll(table, byTag("tr")) {
			cells := childCells(tr)
			if len(cells) < 2 {
				continue
			}
			candidatesCell := cells[len(cells)-1]

			pendingWinner := false
			for c := candidatesCell.FirstChild; c != nil; c = c.NextSibling {
				switch {
				case c.Type == html.ElementNode && c.Data == "img":
					alt := strings.ToLower(attrVal(c, "alt"))
					if strings.Contains(alt, "check") {
						pendingWinner = true
					}
				case c.Type == html.ElementNode && c.Data == "a":
					if attrVal(c, "target") == "_blank" {
						continue
					}
					name := strings.TrimSuffix(nodeText(c), "*")
					if name == "" {
						continue
					}
					incumbent := false
					if c.NextSibling != nil && c.NextSibling.Type == html.TextNode {
						incumbent = strings.Contains(c.NextSibling.Data, "(i)")
					}
					out = append(out, dataset.Row{
						State:            spec.Jurisdiction,
						Year:             e.Year,
						ElectionDate:     e.GeneralDate,
						ElectionType:     "general",
						Office:           "school_board",
						OfficeRaw:        nodeText(cells[0]),
						Jurisdiction:     e.District,
						JurisdictionType: "school_district",
						Candidate:        name,
						Won:              pendingWinner,
						Incumbent:        incumbent,
						SourceURL:        e.DistrictURL,
					})
					pendingWinner = false
				}
			}
		}
	}
	return out
}

func ballotpediaElectionType(heading string) string {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "primary runoff"), strings.Contains(h, "primary run-off"):
		return "primary_runoff"
	case strings.Contains(h, "primary"):
		return "primary"
	case strings.Contains(h, "general"):
		return "general"
	default:
		return "other"
	}
}

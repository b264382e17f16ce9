package fetch

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/sources"
)

// maxSearchPages bounds search pagination; no state archive comes close.
const maxSearchPages = 50

// rowIDPattern accepts both row-id dialects: election-id-#### (VA/MA) and
// contest-id-#### (CO).
var rowIDPattern = regexp.MustCompile(`^(?:election|contest)-id-(\d+)$`)

// contestRecord is one parsed search-result row before canonicalization
type contestRecord struct {
	ElectionID int
	Year       int
	Stage      string
	Office     string
	District   string
	Candidates []candidateRecord
}

type candidateRecord struct {
	Name     string
	Party    string
	Votes    int64
	PctText  string
	IsWinner bool
}

func (o *Orchestrator) fetchElectionStats(ctx context.Context, spec sources.FetchSpec, stateCfg sources.StateConfig, load pageLoader) (*sources.FetchResult, error) {
	result := &sources.FetchResult{}
	var contests []contestRecord

	for page := 1; page <= maxSearchPages; page++ {
		searchURL := buildSearchURL(stateCfg.BaseURL, stateCfg.SearchPath, spec.Start.Year(), spec.End.Year(), page)
		body, err := load(ctx, searchURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("search page fetch failed: %w", err)
			}
			result.Warnings = append(result.Warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("search page %d failed (%v); results may be incomplete", page, err),
			})
			break
		}
		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("search page parse failed: %w", err)
		}
		pageContests := parseSearchResults(doc)
		if len(pageContests) == 0 {
			break
		}
		contests = append(contests, pageContests...)
	}

	switch spec.Level {
	case sources.GranularityCounty:
		rows, warnings := o.countyRows(ctx, spec, stateCfg, contests, load)
		result.Rows = rows
		result.Warnings = append(result.Warnings, warnings...)
	default:
		result.Rows = contestRows(spec, contests)
	}
	return result, nil
}

// buildSearchURL forms the year-bounded search URL. An empty search path
// means the base URL itself is the search surface.
func buildSearchURL(base, path string, yearFrom, yearTo, page int) string {
	u := strings.TrimRight(base, "/")
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u += path
	}
	query := url.Values{
		"year_from": {strconv.Itoa(yearFrom)},
		"year_to":   {strconv.Itoa(yearTo)},
		"page":      {strconv.Itoa(page)},
	}
	return u + "?" + query.Encode()
}

func buildDetailURL(base string, electionID int) string {
	return fmt.Sprintf("%s/view/%d/", strings.TrimRight(base, "/"), electionID)
}

// parseSearchResults walks the search results table and returns one record
// per contest row that carries a candidate table. Rows whose shape is not
// recognized are skipped, not fatal: archives mix eras on one page.
func parseSearchResults(doc *html.Node) []contestRecord {
	table := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "table" && attrVal(n, "id") == "search_results_table"
	})
	if table == nil {
		return nil
	}

	var out []contestRecord
	for _, tr := range findAll(table, byTag("tr")) {
		m := rowIDPattern.FindStringSubmatch(attrVal(tr, "id"))
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])

		rec, ok := parseContestRow(tr)
		if !ok || len(rec.Candidates) == 0 {
			continue
		}
		rec.ElectionID = id
		out = append(out, rec)
	}
	return out
}

// parseContestRow handles both layouts: the VA/MA five-column body and the
// CO variant with a year <th> and classed cells.
func parseContestRow(tr *html.Node) (contestRecord, bool) {
	var rec contestRecord

	if yearTH := findFirst(tr, func(n *html.Node) bool {
		return n.Data == "th" && classContains(n, "year")
	}); yearTH != nil {
		// CO layout
		rec.Year = yearFromNode(yearTH)
		rec.Stage = nodeText(findFirst(tr, func(n *html.Node) bool {
			return n.Data == "td" && classContains(n, "party_border_top")
		}))
		rec.Office = nodeText(findFirst(tr, func(n *html.Node) bool {
			return n.Data == "td" && classContains(n, "office")
		}))
		rec.District = nodeText(findFirst(tr, func(n *html.Node) bool {
			return n.Data == "td" && classContains(n, "division")
		}))
		cell := findFirst(tr, func(n *html.Node) bool {
			return n.Data == "td" && classContains(n, "candidates_container_cell")
		})
		rec.Candidates = parseCandidatesCell(cell)
	} else {
		// VA/MA layout: year, office, district, stage, candidates
		cells := childCells(tr)
		if len(cells) < 5 {
			return rec, false
		}
		rec.Year = yearFromNode(cells[0])
		rec.Office = nodeText(cells[1])
		rec.District = nodeText(cells[2])
		rec.Stage = nodeText(cells[3])
		rec.Candidates = parseCandidatesCell(cells[4])
	}

	if rec.Year == 0 || rec.Office == "" || rec.Stage == "" {
		return rec, false
	}
	return rec, true
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func yearFromNode(n *html.Node) int {
	if span := findFirst(n, func(node *html.Node) bool {
		return node.Data == "span" && classContains(node, "date-year")
	}); span != nil {
		if y, err := strconv.Atoi(nodeText(span)); err == nil {
			return y
		}
	}
	if m := yearPattern.FindString(nodeText(n)); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}

// parseCandidatesCell reads the nested candidates table, skipping the
// summary and utility rows both dialects append.
func parseCandidatesCell(cell *html.Node) []candidateRecord {
	if cell == nil {
		return nil
	}
	table := findFirst(cell, func(n *html.Node) bool {
		return n.Data == "table" && classContains(n, "candidates")
	})
	if table == nil {
		return nil
	}

	var out []candidateRecord
	for _, tr := range findAll(table, byTag("tr")) {
		if isUtilityRow(tr) {
			continue
		}
		nameDiv := findFirst(tr, func(n *html.Node) bool {
			return n.Data == "div" && classContains(n, "name")
		})
		name := nodeText(findFirst(nameDiv, byTag("a")))
		if name == "" {
			continue
		}

		cells := childCells(tr)
		if len(cells) < 2 {
			continue
		}
		votes, ok := parseCount(nodeText(cells[1]))
		if !ok {
			continue
		}

		rec := candidateRecord{
			Name:     name,
			Party: nodeText(findFirst(tr, func(n *html.Node) bool {
				return n.Data == "div" && classContains(n, "party")
			})),
			Votes:    votes,
			IsWinner: classContains(tr, "is_winner"),
		}
		if len(cells) >= 3 {
			rec.PctText = nodeText(cells[2])
		}
		out = append(out, rec)
	}
	return out
}

func isUtilityRow(tr *html.Node) bool {
	for _, marker := range []string{
		"more_info", "n_total_votes", "n_all_other_votes",
		"and-n-more", "total-votes-cast", "non_candidate",
	} {
		if classContains(tr, marker) {
			return true
		}
	}
	return false
}

func parseCount(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseVoteShare converts "53.2%" to 0.532
func parseVoteShare(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v / 100
}

// contestRows canonicalizes search records at contest granularity
func contestRows(spec sources.FetchSpec, contests []contestRecord) dataset.Rows {
	var out dataset.Rows
	for _, c := range contests {
		date := statutoryElectionDate(c.Year)
		if date.Before(spec.Start) || date.After(spec.End) {
			continue
		}
		office, officeRaw := classifyOffice(c.Office)
		electionType := electionTypeFromStage(c.Stage)
		for _, cand := range c.Candidates {
			out = append(out, dataset.Row{
				State:            spec.Jurisdiction,
				Year:             c.Year,
				ElectionDate:     date,
				ElectionType:     electionType,
				Office:           office,
				OfficeRaw:        officeRaw,
				Jurisdiction:     spec.Jurisdiction,
				JurisdictionType: "state",
				District:         c.District,
				Candidate:        cand.Name,
				Party:            normalizeParty(cand.Party, c.Stage),
				Votes:            cand.Votes,
				VoteShare:        parseVoteShare(cand.PctText),
				Won:              cand.IsWinner,
			})
		}
	}
	return out
}

// countyRows expands each contest through its detail page into per-county
// rows. Individual detail-page failures degrade to a warning so one broken
// contest cannot sink an entire year.
func (o *Orchestrator) countyRows(ctx context.Context, spec sources.FetchSpec, stateCfg sources.StateConfig, contests []contestRecord, load pageLoader) (dataset.Rows, []sources.Warning) {
	var out dataset.Rows
	var warnings []sources.Warning

	for _, c := range contests {
		date := statutoryElectionDate(c.Year)
		if date.Before(spec.Start) || date.After(spec.End) {
			continue
		}
		detailURL := buildDetailURL(stateCfg.BaseURL, c.ElectionID)
		body, err := load(ctx, detailURL)
		if err != nil {
			warnings = append(warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("detail page for contest %d failed (%v); county rows skipped", c.ElectionID, err),
			})
			continue
		}
		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			warnings = append(warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("detail page for contest %d was not parseable", c.ElectionID),
			})
			continue
		}
		out = append(out, countyRowsFromDetail(spec, c, date, doc)...)
	}
	return out, warnings
}

// countyRowsFromDetail parses the locality breakdown table: candidate
// columns come from the thead tooltips, one tbody row per locality.
func countyRowsFromDetail(spec sources.FetchSpec, c contestRecord, date dataset.Date, doc *html.Node) dataset.Rows {
	table := findFirst(doc, func(n *html.Node) bool {
		if n.Data != "table" {
			return false
		}
		return findFirst(n, func(tr *html.Node) bool {
			return tr.Data == "tr" && strings.HasPrefix(attrVal(tr, "id"), "locality-id-")
		}) != nil
	})
	if table == nil {
		return nil
	}

	candidates := candidateColumnNames(table)
	if len(candidates) == 0 {
		return nil
	}
	office, officeRaw := classifyOffice(c.Office)
	electionType := electionTypeFromStage(c.Stage)

	var out dataset.Rows
	for _, tr := range findAll(table, func(n *html.Node) bool {
		return n.Data == "tr" && strings.HasPrefix(attrVal(n, "id"), "locality-id-")
	}) {
		locality := nodeText(findFirst(tr, func(n *html.Node) bool {
			return n.Data == "a" && classContains(n, "label")
		}))
		if locality == "" {
			continue
		}

		var voteCells []*html.Node
		localityseen := false
		for _, td := range childCells(tr) {
			if !localityseen {
				if findFirst(td, func(n *html.Node) bool {
					return n.Data == "a" && classContains(n, "label")
				}) != nil {
					localityseen = true
				}
				continue
			}
			voteCells = append(voteCells, td)
		}

		for i, name := range candidates {
			if i >= len(voteCells) {
				break
			}
			votes, ok := parseCount(nodeText(voteCells[i]))
			if !ok {
				continue
			}
			out = append(out, dataset.Row{
				State:            spec.Jurisdiction,
				Year:             c.Year,
				ElectionDate:     date,
				ElectionType:     electionType,
				Office:           office,
				OfficeRaw:        officeRaw,
				Jurisdiction:     locality,
				JurisdictionType: "county",
				District:         c.District,
				Candidate:        name,
				Party:            normalizeParty("", c.Stage),
				Votes:            votes,
			})
		}
	}
	return out
}

// candidateColumnNames reads full candidate names from the header
// tooltips, skipping pseudo-candidate and total columns.
func candidateColumnNames(table *html.Node) []string {
	thead := findFirst(table, byTag("thead"))
	if thead == nil {
		return nil
	}
	headerRow := findFirst(thead, byTag("tr"))
	if headerRow == nil {
		return nil
	}

	var out []string
	for _, th := range childCells(headerRow) {
		if classContains(th, "is_pseudocandidate") || classContains(th, "is-total-votes") {
			continue
		}
		label := strings.ToLower(nodeText(th))
		if label == "" || label == "locality" || label == "county" || strings.Contains(label, "total") {
			continue
		}
		name := ""
		if tip := findFirst(th, func(n *html.Node) bool {
			return (n.Data == "a" || n.Data == "span") && classContains(n, "tooltip-above")
		}); tip != nil {
			name = dataset.CleanText(attrVal(tip, "oldtitle"))
			// CO embeds the party: "Full Name (Party)"
			if i := strings.LastIndex(name, " ("); i > 0 && strings.HasSuffix(name, ")") {
				name = name[:i]
			}
		}
		if name == "" {
			name = nodeText(th)
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// electionTypeFromStage collapses stage labels into the canonical
// election_type vocabulary
func electionTypeFromStage(stage string) string {
	s := strings.ToLower(stage)
	switch {
	case strings.Contains(s, "special"):
		return "special"
	case strings.Contains(s, "primary"):
		return "primary"
	case strings.Contains(s, "general"):
		return "general"
	default:
		return strings.ToLower(dataset.CleanText(stage))
	}
}

// normalizeParty fills a missing or write-in party marker from the stage
// label when the stage is a partisan primary
func normalizeParty(party, stage string) string {
	clean := dataset.CleanText(party)
	inferred := inferPartyFromStage(stage)
	if inferred != "" && (clean == "" || isWriteInMarker(clean)) {
		return inferred
	}
	return clean
}

func inferPartyFromStage(stage string) string {
	s := strings.ToLower(stage)
	if !strings.Contains(s, "primary") {
		return ""
	}
	switch {
	case strings.Contains(s, "democratic"):
		return "Democratic"
	case strings.Contains(s, "republican"):
		return "Republican"
	case strings.Contains(s, "libertarian"):
		return "Libertarian"
	}
	return ""
}

func isWriteInMarker(party string) bool {
	p := strings.ToLower(party)
	for _, r := range "()[]{} -" {
		p = strings.ReplaceAll(p, string(r), "")
	}
	return strings.Contains(p, "writein")
}

// statutoryElectionDate returns the first Tuesday after the first Monday
// of November. Year-indexed archives expose only the election year; the
// statutory date keeps every contest in a year on one record-date.
func statutoryElectionDate(year int) dataset.Date {
	d := time.Date(year, time.November, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	d = d.AddDate(0, 0, 1)
	return dataset.NewDate(d.Year(), d.Month(), d.Day())
}

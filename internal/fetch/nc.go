package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/sources"
)

// fetchArchives downloads and normalizes one precinct archive per
// discovered event. A single broken archive degrades to a warning; the
// remaining elections still land.
func (o *Orchestrator) fetchArchives(ctx context.Context, spec sources.FetchSpec) (*sources.FetchResult, error) {
	result := &sources.FetchResult{}
	if len(spec.Events) == 0 {
		result.Status = sources.FetchEmpty
		return result, nil
	}

	failures := 0
	for _, ev := range spec.Events {
		archive, err := o.client.Get(ctx, ev.URL)
		if err != nil {
			failures++
			result.Warnings = append(result.Warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("archive for %s failed (%v); election skipped", ev.Date, err),
			})
			continue
		}
		rows, err := archiveRows(archive, ev, spec.Level)
		if err != nil {
			failures++
			result.Warnings = append(result.Warnings, sources.Warning{
				Code:    dberrors.FetchFailed,
				Message: fmt.Sprintf("archive for %s was not parseable (%v); election skipped", ev.Date, err),
			})
			continue
		}
		result.Rows = append(result.Rows, rows...)
	}

	if failures == len(spec.Events) {
		result.Status = sources.FetchFailed
	}
	return result, nil
}

// precinctRecord is one normalized line of a results_pct file
type precinctRecord struct {
	ElectionDate dataset.Date
	ContestName  string
	Choice       string
	Party        string
	County       string
	Precinct     string
	District     string
	Votes        int64
	VoteFor      int
	Winner       string
}

func archiveRows(archive []byte, ev sources.DiscoveredEvent, level sources.Granularity) (dataset.Rows, error) {
	name, data, err := readResultsMember(archive)
	if err != nil {
		return nil, err
	}
	records, err := parseResultsFile(data, name, ev.Date)
	if err != nil {
		return nil, err
	}
	if level == sources.GranularityPrecinct {
		return precinctRows(records, ev), nil
	}
	return contestAggregate(records, ev), nil
}

// Member scoring mirrors the archive conventions: the results file is
// named results_pct_*, layout and readme members must never win.
var memberScoreRules = []struct {
	pattern *regexp.Regexp
	score   int
}{
	{regexp.MustCompile(`(?i)results[_-]?pct`), 200},
	{regexp.MustCompile(`(?i)\bresults\b`), 40},
	{regexp.MustCompile(`(?i)\bpct\b`), 20},
	{regexp.MustCompile(`(?i)layout`), -500},
	{regexp.MustCompile(`(?i)readme|info|note`), -500},
}

func scoreMember(name string) int {
	score := 0
	for _, rule := range memberScoreRules {
		if rule.pattern.MatchString(name) {
			score += rule.score
		}
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".tsv") {
		score += 20
	}
	return score
}

// readResultsMember picks the results data file out of the archive. When
// no member scores confidently, fall back to the largest plausible data
// file.
func readResultsMember(archive []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", nil, fmt.Errorf("not a zip archive: %w", err)
	}

	var best *zip.File
	bestScore := 0
	var largest *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if s := scoreMember(f.Name); best == nil || s > bestScore {
			best, bestScore = f, s
		}
		lower := strings.ToLower(f.Name)
		if strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".tsv") {
			if strings.Contains(lower, "readme") || strings.Contains(lower, "layout") || strings.Contains(lower, "info") || strings.Contains(lower, "note") {
				continue
			}
			if largest == nil || f.UncompressedSize64 > largest.UncompressedSize64 {
				largest = f
			}
		}
	}

	chosen := best
	if bestScore < 50 {
		chosen = largest
	}
	if chosen == nil {
		return "", nil, fmt.Errorf("archive has no plausible results member")
	}

	rc, err := chosen.Open()
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return "", nil, err
	}
	return chosen.Name, buf.Bytes(), nil
}

// colAliases maps normalized raw header labels to record fields
var colAliases = map[string]string{
	"election dt":    "election_date",
	"election_dt":    "election_date",
	"election date":  "election_date",
	"election_date":  "election_date",
	"contest name":   "contest_name",
	"contest_name":   "contest_name",
	"contest":        "contest_name",
	"choice":         "choice",
	"name on ballot": "choice",
	"choice party":   "choice_party",
	"choice_party":   "choice_party",
	"party":          "choice_party",
	"total votes":    "total_votes",
	"total_votes":    "total_votes",
	"vote for":       "vote_for",
	"vote_for":       "vote_for",
	"county":         "county",
	"precinct":       "precinct",
	"district":       "district",
	"winner status":  "winner_status",
	"winner_status":  "winner_status",
	"winner":         "winner_status",
}

func normalizeHeader(h string) string {
	return strings.ToLower(dataset.CleanText(h))
}

// parseResultsFile reads the delimited member into normalized records.
// Older archives pad with NUL bytes and a few eras ship comma-separated
// files under a .txt name, so both are handled here.
func parseResultsFile(data []byte, filename string, fallback dataset.Date) ([]precinctRecord, error) {
	data = bytes.ReplaceAll(data, []byte{0}, nil)

	table, err := readDelimited(data, '\t')
	if err != nil || len(table) == 0 || len(table[0]) < 2 {
		if table, err = readDelimited(data, ','); err != nil {
			return nil, fmt.Errorf("file %s is not tab or comma delimited: %w", filename, err)
		}
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("file %s has no data rows", filename)
	}

	fieldIdx := map[string]int{}
	for i, h := range table[0] {
		if field, ok := colAliases[normalizeHeader(h)]; ok {
			if _, taken := fieldIdx[field]; !taken {
				fieldIdx[field] = i
			}
		}
	}
	for _, required := range []string{"contest_name", "choice", "total_votes"} {
		if _, ok := fieldIdx[required]; !ok {
			return nil, fmt.Errorf("file %s is missing required column %q", filename, required)
		}
	}

	cell := func(row []string, field string) string {
		i, ok := fieldIdx[field]
		if !ok || i >= len(row) {
			return ""
		}
		return dataset.CleanText(row[i])
	}

	var out []precinctRecord
	for _, row := range table[1:] {
		rec := precinctRecord{
			ContestName: cell(row, "contest_name"),
			Choice:      cell(row, "choice"),
			Party:       cell(row, "choice_party"),
			County:      cell(row, "county"),
			Precinct:    cell(row, "precinct"),
			District:    cell(row, "district"),
			Winner:      cell(row, "winner_status"),
		}
		if rec.ContestName == "" || rec.Choice == "" {
			continue
		}
		rec.Votes, _ = parseCount(cell(row, "total_votes"))
		if vf, err := strconv.Atoi(cell(row, "vote_for")); err == nil {
			rec.VoteFor = vf
		}
		rec.ElectionDate = parseArchiveDate(cell(row, "election_date"), fallback)
		out = append(out, rec)
	}
	return out, nil
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// parseArchiveDate accepts the date formats seen across archive eras and
// falls back to the event date from the index when the cell is unusable
func parseArchiveDate(s string, fallback dataset.Date) dataset.Date {
	for _, layout := range []string{"01/02/2006", "1/2/2006", "01/02/06", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return dataset.NewDate(t.Year(), t.Month(), t.Day())
		}
	}
	return fallback
}

// precinctRows canonicalizes records at precinct granularity, one row per
// file line
func precinctRows(records []precinctRecord, ev sources.DiscoveredEvent) dataset.Rows {
	out := make(dataset.Rows, 0, len(records))
	for _, rec := range records {
		_, _, district := splitContestName(rec.ContestName)
		if district == "" {
			district = rec.District
		}
		canonical, officeRaw := classifyOffice(rec.ContestName)
		out = append(out, dataset.Row{
			State:            "NC",
			Year:             rec.ElectionDate.Year(),
			ElectionDate:     rec.ElectionDate,
			ElectionType:     electionTypeForDate(rec.ElectionDate),
			Office:           canonical,
			OfficeRaw:        officeRaw,
			Jurisdiction:     precinctLabel(rec.County, rec.Precinct),
			JurisdictionType: "precinct",
			District:         district,
			Candidate:        rec.Choice,
			Party:            partyForRecord(rec),
			Votes:            rec.Votes,
			Won:              winnerFlag(rec.Winner),
			SourceURL:        ev.URL,
		})
	}
	return out
}

func precinctLabel(county, precinct string) string {
	switch {
	case county == "" && precinct == "":
		return "NC"
	case county == "":
		return precinct
	case precinct == "":
		return county
	}
	return county + " / " + precinct
}

// contestKey identifies one contest-and-candidate aggregation bucket
type contestKey struct {
	Date        dataset.Date
	ContestName string
	District    string
	Candidate   string
	Party       string
}

type contestBucket struct {
	Votes   int64
	VoteFor int
	Winner  string
	order   int
}

// contestAggregate sums per-precinct lines up to contest level. Vote share
// is each candidate's fraction of the contest total; a winner is taken
// from the explicit winner column when the era provides one, otherwise
// inferred for single-winner contests as the plurality candidate.
func contestAggregate(records []precinctRecord, ev sources.DiscoveredEvent) dataset.Rows {
	buckets := map[contestKey]*contestBucket{}
	for _, rec := range records {
		key := contestKey{
			Date:        rec.ElectionDate,
			ContestName: rec.ContestName,
			District:    rec.District,
			Candidate:   rec.Choice,
			Party:       rec.Party,
		}
		b, ok := buckets[key]
		if !ok {
			b = &contestBucket{order: len(buckets)}
			buckets[key] = b
		}
		b.Votes += rec.Votes
		if rec.VoteFor > b.VoteFor {
			b.VoteFor = rec.VoteFor
		}
		if b.Winner == "" {
			b.Winner = rec.Winner
		}
	}

	keys := make([]contestKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return buckets[keys[i]].order < buckets[keys[j]].order
	})

	// Contest identity for totals and winner inference excludes the
	// candidate and party.
	type contestID struct {
		Date        dataset.Date
		ContestName string
		District    string
	}
	totals := map[contestID]int64{}
	maxVotes := map[contestID]int64{}
	singleWinner := map[contestID]bool{}
	hasExplicit := map[contestID]bool{}
	for _, key := range keys {
		id := contestID{key.Date, key.ContestName, key.District}
		b := buckets[key]
		totals[id] += b.Votes
		if b.Votes > maxVotes[id] {
			maxVotes[id] = b.Votes
		}
		if b.VoteFor == 1 {
			singleWinner[id] = true
		}
		if winnerFlag(b.Winner) {
			hasExplicit[id] = true
		}
	}

	out := make(dataset.Rows, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		id := contestID{key.Date, key.ContestName, key.District}
		jurisdiction, _, district := splitContestName(key.ContestName)
		if district == "" {
			district = key.District
		}
		if jurisdiction == "" {
			jurisdiction = "NC"
		}
		canonical, officeRaw := classifyOffice(key.ContestName)

		var share float64
		if totals[id] > 0 {
			share = float64(b.Votes) / float64(totals[id])
		}
		won := winnerFlag(b.Winner)
		if !hasExplicit[id] && singleWinner[id] {
			won = b.Votes == maxVotes[id] && b.Votes > 0
		}

		out = append(out, dataset.Row{
			State:            "NC",
			Year:             key.Date.Year(),
			ElectionDate:     key.Date,
			ElectionType:     electionTypeForDate(key.Date),
			Office:           canonical,
			OfficeRaw:        officeRaw,
			Jurisdiction:     jurisdiction,
			JurisdictionType: jurisdictionType(jurisdiction),
			District:         district,
			Candidate:        key.Candidate,
			Party:            key.Party,
			Votes:            b.Votes,
			VoteShare:        share,
			Won:              won,
			SourceURL:        ev.URL,
		})
	}
	return out
}

func jurisdictionType(jurisdiction string) string {
	upper := strings.ToUpper(jurisdiction)
	switch {
	case jurisdiction == "NC":
		return "state"
	case strings.Contains(upper, "COUNTY"):
		return "county"
	case strings.HasPrefix(upper, "CITY OF") || strings.HasPrefix(upper, "TOWN OF") || strings.HasPrefix(upper, "VILLAGE OF"):
		return "municipality"
	default:
		return "local"
	}
}

// districtPattern captures the trailing seat qualifier of a contest name
var districtPattern = regexp.MustCompile(
	`\b(AT[- ]LARGE(?:\s+WARD\s+\w+)?|DISTRICT\s+\w+|WARD\s+\w+|SEAT\s+\w+|` +
		`(?:NORTH|SOUTH|EAST|WEST)\s+WARD|\d+(?:ST|ND|RD|TH)\s+WARD)\s*(?:\([A-Z]+\))?\s*$`)

// trailingParty strips a "(DEM)" style suffix before any other parsing
var trailingParty = regexp.MustCompile(`\s*\([A-Z]+\)\s*$`)

// splitContestName breaks "DURHAM COUNTY BOARD OF COMMISSIONERS DISTRICT 2"
// into its jurisdiction, office phrase, and district qualifier. Contest
// names with no recognizable office phrase yield the whole name as the
// office and an empty jurisdiction.
func splitContestName(name string) (jurisdiction, office, district string) {
	work := trailingParty.ReplaceAllString(strings.ToUpper(dataset.CleanText(name)), "")
	work = strings.TrimPrefix(work, "NC ")

	if m := districtPattern.FindStringIndex(work); m != nil {
		district = dataset.CleanText(work[m[0]:m[1]])
		district = trailingParty.ReplaceAllString(district, "")
		work = dataset.CleanText(work[:m[0]])
	}

	officeAt := -1
	for _, rule := range officeRules {
		if i := strings.Index(work, rule.phrase); i >= 0 {
			officeAt = i
			office = work[i:]
			break
		}
	}
	if officeAt < 0 {
		return "", work, district
	}
	jurisdiction = dataset.CleanText(work[:officeAt])
	return jurisdiction, office, district
}

// electionTypeForDate is the archive-era rule: statewide archives publish
// November generals; everything else on the index is a primary or a
// special, with primary the safer default.
func electionTypeForDate(d dataset.Date) string {
	if d.Month() == time.November {
		return "general"
	}
	return "primary"
}

func partyForRecord(rec precinctRecord) string {
	if rec.Party != "" {
		return rec.Party
	}
	// Municipal contests encode the party as a name suffix.
	if m := trailingParty.FindString(strings.ToUpper(rec.ContestName)); m != "" {
		return strings.Trim(dataset.CleanText(m), "()")
	}
	return ""
}

// winnerFlag interprets the explicit winner column: any non-empty value
// other than a negative marker means the candidate won
func winnerFlag(v string) bool {
	switch strings.ToLower(dataset.CleanText(v)) {
	case "", "0", "n", "no", "false":
		return false
	}
	return true
}

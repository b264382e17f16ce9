package dataset

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Columns is the canonical column order for result rows. Every persisted
// snapshot must be able to produce all of these.
var Columns = []string{
	"state",
	"year",
	"election_date",
	"election_type",
	"office",
	"office_raw",
	"jurisdiction",
	"jurisdiction_type",
	"district",
	"candidate",
	"party",
	"votes",
	"vote_share",
	"won",
	"incumbent",
	"source_url",
	"retrieved_at",
}

// Row is one canonical election-result row. Identity for dedup purposes is
// every field except RetrievedAt and FetchID: re-retrieving identical data
// must collapse, while genuine upstream corrections must not.
type Row struct {
	State            string  `json:"state"`
	Year             int     `json:"year"`
	ElectionDate     Date    `json:"election_date"`
	ElectionType     string  `json:"election_type"`
	Office           string  `json:"office"`
	OfficeRaw        string  `json:"office_raw"`
	Jurisdiction     string  `json:"jurisdiction"`
	JurisdictionType string  `json:"jurisdiction_type"`
	District         string  `json:"district"`
	Candidate        string  `json:"candidate"`
	Party            string  `json:"party"`
	Votes            int64   `json:"votes"`
	VoteShare        float64 `json:"vote_share"`
	Won              bool    `json:"won"`
	Incumbent        bool    `json:"incumbent"`
	SourceURL        string  `json:"source_url"`
	RetrievedAt      string  `json:"retrieved_at"`
	FetchID          string  `json:"fetch_id,omitempty"`
}

// Hash returns a stable identity hash over the row's content fields.
// RetrievedAt and FetchID are deliberately excluded so that re-fetching the
// same remote data produces the same identity.
func (r *Row) Hash() string {
	h, _ := blake2b.New256(nil)
	fields := []string{
		r.State,
		strconv.Itoa(r.Year),
		r.ElectionDate.String(),
		r.ElectionType,
		r.Office,
		r.OfficeRaw,
		r.Jurisdiction,
		r.JurisdictionType,
		r.District,
		r.Candidate,
		r.Party,
		strconv.FormatInt(r.Votes, 10),
		strconv.FormatFloat(r.VoteShare, 'g', -1, 64),
		strconv.FormatBool(r.Won),
		strconv.FormatBool(r.Incumbent),
		r.SourceURL,
	}
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0x1f}) // unit separator, keeps "a"+"bc" distinct from "ab"+"c"
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Rows is an ordered collection of result rows
type Rows []Row

// Dates returns the set of distinct election dates present in the rows
func (rs Rows) Dates() *DateSet {
	out := NewDateSet()
	for i := range rs {
		out.Add(rs[i].ElectionDate)
	}
	return out
}

// Within returns the rows whose election date falls in [start, end]
func (rs Rows) Within(start, end Date) Rows {
	out := make(Rows, 0, len(rs))
	for i := range rs {
		d := rs[i].ElectionDate
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, rs[i])
	}
	return out
}

// String summarizes the collection for logs
func (rs Rows) String() string {
	dates := rs.Dates()
	var span string
	if min, ok := dates.Min(); ok {
		max, _ := dates.Max()
		span = fmt.Sprintf(" %s..%s", min, max)
	}
	return fmt.Sprintf("%d rows, %d dates%s", len(rs), dates.Len(), span)
}

// CleanText collapses internal whitespace and trims the result. Remote
// tables pad cells with newlines and runs of spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

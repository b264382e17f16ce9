// Package sources holds the fixed catalog of backend source profiles and
// the router that dispatches a generic results request to exactly one of
// them, driving the clamp → discovery → gap-resolution → fetch → merge
// sequence against the snapshot store.
package sources

import (
	"context"
	"sort"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
)

// SourceID uniquely identifies a backend source
type SourceID string

const (
	// SourceNCSBE is the North Carolina State Board of Elections
	// historical-results archive (per-election ZIP downloads)
	SourceNCSBE SourceID = "ncsbe"
	// SourceElectionStats is the multi-state ElectionStats family
	// (VA, MA, CO classic HTML; SC, NM browser-rendered)
	SourceElectionStats SourceID = "electionstats"
	// SourceBallotpedia is the Ballotpedia school-board election index
	SourceBallotpedia SourceID = "ballotpedia"
)

// RetrievalKind tags the transport a source speaks. The fetch orchestrator
// dispatches on this tag; new sources add a variant, not scattered
// conditionals.
type RetrievalKind string

const (
	// KindTabularHTTP fetches and parses server-rendered HTML tables
	KindTabularHTTP RetrievalKind = "tabular-http"
	// KindBrowser drives a real browser for client-rendered pages
	KindBrowser RetrievalKind = "browser-automation"
	// KindZipArchive downloads and extracts per-election result archives
	KindZipArchive RetrievalKind = "zip-archive"
)

// Granularity is a level of detail a source can produce
type Granularity string

const (
	// GranularityContest is one row per contest and candidate
	GranularityContest Granularity = "contest"
	// GranularityPrecinct is one row per precinct, contest, and candidate
	GranularityPrecinct Granularity = "precinct"
	// GranularityCounty is one row per county and candidate
	GranularityCounty Granularity = "county"
	// GranularityDistrict is one row per school district race
	GranularityDistrict Granularity = "district"
	// GranularityCandidate is one row per school-board candidate
	GranularityCandidate Granularity = "candidate"
)

// StateConfig is the per-jurisdiction slice of a source profile
type StateConfig struct {
	BaseURL          string
	SearchPath       string
	RetrievalKind    RetrievalKind
	MinSupportedDate dataset.Date
}

// Profile is an immutable capability descriptor for one source. Profiles
// are created once at process start and never mutated.
type Profile struct {
	ID                 SourceID
	Description        string
	Granularities      []Granularity
	DefaultGranularity Granularity

	// SpecializedCategory routes category-tagged requests here, bypassing
	// jurisdiction-based routing
	SpecializedCategory string

	// DiscoverableUniverse marks sources whose available record-dates can
	// be enumerated remotely. Sources without one declare a static window
	// of [min supported date, today].
	DiscoverableUniverse bool

	// States maps canonical jurisdiction keys to transport config.
	// Fallback, when set, serves any jurisdiction not listed.
	States   map[string]StateConfig
	Fallback *StateConfig

	Priority int
}

// Covers reports whether the profile serves the canonical jurisdiction key
func (p *Profile) Covers(key string) bool {
	if _, ok := p.States[key]; ok {
		return true
	}
	return p.Fallback != nil
}

// StateConfigFor returns the transport config for a jurisdiction
func (p *Profile) StateConfigFor(key string) (StateConfig, error) {
	if cfg, ok := p.States[key]; ok {
		return cfg, nil
	}
	if p.Fallback != nil {
		return *p.Fallback, nil
	}
	return StateConfig{}, dberrors.New(
		dberrors.UnknownJurisdiction,
		"jurisdiction '"+key+"' is not covered by source '"+string(p.ID)+"'; covered: "+joinKeys(p.States),
		nil,
	)
}

// Jurisdictions lists the canonical keys the profile explicitly serves
func (p *Profile) Jurisdictions() []string {
	keys := make([]string, 0, len(p.States))
	for k := range p.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SupportsGranularity reports whether the profile can produce the level
func (p *Profile) SupportsGranularity(g Granularity) bool {
	for _, have := range p.Granularities {
		if have == g {
			return true
		}
	}
	return false
}

func joinKeys(m map[string]StateConfig) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

// DiscoveredEvent is one record-date the remote universe claims to offer,
// normalized from whatever shape the source exposes
type DiscoveredEvent struct {
	Date  dataset.Date
	URL   string
	Label string
}

// Universe is the point-in-time set of record-dates a source claims to
// have. Valid only for the duration of one reconciliation pass.
type Universe struct {
	Dates  *dataset.DateSet
	Events []DiscoveredEvent
	// Static marks a universe synthesized from a declared coverage window
	// rather than a remote enumeration
	Static bool
}

// EventsWithin returns the discovered events whose dates fall in [start, end]
func (u *Universe) EventsWithin(start, end dataset.Date) []DiscoveredEvent {
	out := make([]DiscoveredEvent, 0, len(u.Events))
	for _, ev := range u.Events {
		if ev.Date.Before(start) || ev.Date.After(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Discoverer enumerates the remote universe for a source/jurisdiction
type Discoverer interface {
	Discover(ctx context.Context, profile *Profile, jurisdiction string) (*Universe, error)
}

// FetchStatus distinguishes "nothing new" from "fetch failed"
type FetchStatus string

const (
	// FetchOK means rows were retrieved
	FetchOK FetchStatus = "ok"
	// FetchEmpty means the fetch succeeded but produced no rows
	FetchEmpty FetchStatus = "empty"
	// FetchFailed means the retrieval pipeline failed
	FetchFailed FetchStatus = "failed"
)

// FetchSpec describes one fetch invocation: the whole clamped range for a
// single source, jurisdiction, and granularity level
type FetchSpec struct {
	Profile      *Profile
	Jurisdiction string
	Level        Granularity
	Start        dataset.Date
	End          dataset.Date
	// Events carries the in-range discovered events for sources whose
	// retrieval is per-event (archive downloads)
	Events []DiscoveredEvent
}

// FetchResult is the outcome of one fetch invocation
type FetchResult struct {
	Rows     dataset.Rows
	Status   FetchStatus
	Warnings []Warning
}

// Fetcher invokes the external retrieval pipeline for a fetch spec
type Fetcher interface {
	Fetch(ctx context.Context, spec FetchSpec) (*FetchResult, error)
}

// SnapshotKey identifies one cached dataset
type SnapshotKey struct {
	Source       SourceID
	Jurisdiction string
	Level        Granularity
}

// Store is the snapshot persistence boundary the router reconciles against
type Store interface {
	// CoveredDates answers from the manifest without loading row data
	CoveredDates(ctx context.Context, key SnapshotKey) (*dataset.DateSet, error)
	// Load returns the cached rows for a key
	Load(ctx context.Context, key SnapshotKey) (dataset.Rows, error)
	// Replace atomically swaps in a new merged row set. There is no
	// in-place mutation: refresh always writes a whole new snapshot.
	Replace(ctx context.Context, key SnapshotKey, rows dataset.Rows) error
}

// Warning is a non-fatal degradation surfaced alongside results
type Warning struct {
	Code    dberrors.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

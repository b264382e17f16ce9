package sources

import (
	"sort"
	"time"

	"github.com/gchickering21/downballot/internal/config"
	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
)

// CategorySchoolBoard is the specialized election-type class routed to the
// dedicated school-board source
const CategorySchoolBoard = "school_board"

// Registry is the fixed catalog of source profiles, built once at process
// start. Profiles are never mutated after construction.
type Registry struct {
	profiles map[SourceID]*Profile
}

// NewRegistry builds the static source catalog, applying endpoint
// overrides from configuration
func NewRegistry(overrides map[string]config.SourceOverride) *Registry {
	r := &Registry{profiles: map[SourceID]*Profile{}}

	ncsbe := &Profile{
		ID:                 SourceNCSBE,
		Description:        "North Carolina State Board of Elections historical results",
		Granularities:      []Granularity{GranularityContest, GranularityPrecinct},
		DefaultGranularity: GranularityContest,
		// The index page enumerates every published election archive.
		DiscoverableUniverse: true,
		States: map[string]StateConfig{
			"NC": {
				BaseURL:       "https://www.ncsbe.gov",
				SearchPath:    "/results-data/election-results/historical-election-results-data",
				RetrievalKind: KindZipArchive,
				// Archives before this date use legacy precinct layouts the
				// result parser does not support.
				MinSupportedDate: dataset.NewDate(2008, time.May, 6),
			},
		},
		Priority: 1,
	}

	electionStats := &Profile{
		ID:                 SourceElectionStats,
		Description:        "ElectionStats state election archives",
		Granularities:      []Granularity{GranularityContest, GranularityCounty},
		DefaultGranularity: GranularityContest,
		States: map[string]StateConfig{
			"VA": {
				BaseURL:          "https://historical.elections.virginia.gov/elections",
				SearchPath:       "/search",
				RetrievalKind:    KindTabularHTTP,
				MinSupportedDate: dataset.NewDate(1789, time.January, 1),
			},
			"MA": {
				BaseURL:          "https://electionstats.state.ma.us/elections",
				SearchPath:       "/search",
				RetrievalKind:    KindTabularHTTP,
				MinSupportedDate: dataset.NewDate(1970, time.January, 1),
			},
			"CO": {
				BaseURL:          "https://co.elstats2.civera.com/eng/contests",
				SearchPath:       "",
				RetrievalKind:    KindTabularHTTP,
				MinSupportedDate: dataset.NewDate(1902, time.January, 1),
			},
			"SC": {
				BaseURL:          "https://electionhistory.scvotes.gov",
				SearchPath:       "/search",
				RetrievalKind:    KindBrowser,
				MinSupportedDate: dataset.NewDate(1960, time.January, 1),
			},
			"NM": {
				BaseURL:          "https://electionstats.sos.nm.gov",
				SearchPath:       "/search",
				RetrievalKind:    KindBrowser,
				MinSupportedDate: dataset.NewDate(1912, time.January, 1),
			},
		},
		Priority: 3,
	}

	ballotpedia := &Profile{
		ID:                  SourceBallotpedia,
		Description:         "Ballotpedia school board election index",
		Granularities:       []Granularity{GranularityDistrict, GranularityCandidate},
		DefaultGranularity:  GranularityDistrict,
		SpecializedCategory: CategorySchoolBoard,
		Fallback: &StateConfig{
			BaseURL:       "https://ballotpedia.org",
			RetrievalKind: KindTabularHTTP,
			// Earliest year with a dedicated school-board page.
			MinSupportedDate: dataset.NewDate(2013, time.January, 1),
		},
		Priority: 2,
	}

	for _, p := range []*Profile{ncsbe, electionStats, ballotpedia} {
		applyOverride(p, overrides[string(p.ID)])
		r.profiles[p.ID] = p
	}
	return r
}

func applyOverride(p *Profile, o config.SourceOverride) {
	if o.BaseURL != "" {
		if p.Fallback != nil {
			fb := *p.Fallback
			fb.BaseURL = o.BaseURL
			p.Fallback = &fb
		}
		for key, cfg := range p.States {
			cfg.BaseURL = o.BaseURL
			p.States[key] = cfg
		}
	}
	for key, url := range o.StateBaseURLs {
		if cfg, ok := p.States[key]; ok {
			cfg.BaseURL = url
			p.States[key] = cfg
		}
	}
}

// List returns the registered source ids, sorted
func (r *Registry) List() []SourceID {
	out := make([]SourceID, 0, len(r.profiles))
	for id := range r.profiles {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the profile for a source id
func (r *Registry) Get(id SourceID) (*Profile, error) {
	if p, ok := r.profiles[id]; ok {
		return p, nil
	}
	return nil, dberrors.New(
		dberrors.UnknownSource,
		"source '"+string(id)+"' is not registered",
		nil,
	)
}

// Jurisdictions returns the canonical jurisdiction keys a source serves.
// Sources with a fallback config serve every jurisdiction.
func (r *Registry) Jurisdictions(id SourceID) ([]string, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Fallback != nil {
		return AllJurisdictions(), nil
	}
	return p.Jurisdictions(), nil
}

// YearRange is a coarse coverage window
type YearRange struct {
	StartYear int `json:"startYear"`
	EndYear   int `json:"endYear"`
}

// AvailableRange reports the coverage window for a source, optionally
// narrowed to one jurisdiction
func (r *Registry) AvailableRange(id SourceID, jurisdiction string) (YearRange, error) {
	p, err := r.Get(id)
	if err != nil {
		return YearRange{}, err
	}

	endYear := dataset.Today().Year()
	if jurisdiction != "" {
		key, err := Canonicalize(jurisdiction)
		if err != nil {
			return YearRange{}, err
		}
		cfg, err := p.StateConfigFor(key)
		if err != nil {
			return YearRange{}, err
		}
		return YearRange{StartYear: cfg.MinSupportedDate.Year(), EndYear: endYear}, nil
	}

	startYear := 0
	for _, cfg := range p.States {
		if startYear == 0 || cfg.MinSupportedDate.Year() < startYear {
			startYear = cfg.MinSupportedDate.Year()
		}
	}
	if p.Fallback != nil && (startYear == 0 || p.Fallback.MinSupportedDate.Year() < startYear) {
		startYear = p.Fallback.MinSupportedDate.Year()
	}
	return YearRange{StartYear: startYear, EndYear: endYear}, nil
}

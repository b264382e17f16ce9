package sources

import (
	"context"
	"fmt"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/reconcile"
)

// Request is the single external entry operation
type Request struct {
	Jurisdiction string
	// Category selects a specialized election-type class (school_board)
	Category string

	// Date is the legacy single-date argument. Mutually exclusive with
	// StartDate/EndDate.
	Date string

	StartDate string
	EndDate   string

	// Level requests one granularity; empty means the source default
	Level string
	// AllLevels requests a bundle with every granularity the source offers
	AllLevels bool

	// Refresh ignores covered dates and re-fetches the whole clamped range
	Refresh bool
}

// Result is the merged outcome of one reconciliation pass per requested
// granularity level
type Result struct {
	Source       SourceID                   `json:"source"`
	Jurisdiction string                     `json:"jurisdiction"`
	Levels       map[Granularity]dataset.Rows `json:"levels"`
	Warnings     []Warning                  `json:"warnings,omitempty"`
	// FetchCount is how many fetch invocations the pass needed
	FetchCount int `json:"fetchCount"`
}

// Rows returns the default-granularity view when exactly one level was
// requested
func (r *Result) Rows() dataset.Rows {
	if len(r.Levels) == 1 {
		for _, rows := range r.Levels {
			return rows
		}
	}
	return nil
}

// Router is the top-level request handler
type Router struct {
	registry   *Registry
	discoverer Discoverer
	fetcher    Fetcher
	store      Store
	logger     *logging.Logger
}

// NewRouter wires the router's collaborators
func NewRouter(registry *Registry, discoverer Discoverer, fetcher Fetcher, store Store, logger *logging.Logger) *Router {
	return &Router{
		registry:   registry,
		discoverer: discoverer,
		fetcher:    fetcher,
		store:      store,
		logger:     logger,
	}
}

// Route selects exactly one source for a request. Priority order:
// specialized category, then the dedicated single-jurisdiction source,
// then the general multi-jurisdiction source. The ordering is total: every
// valid request maps to one source.
func (r *Router) Route(req Request) (*Profile, string, error) {
	key, err := Canonicalize(req.Jurisdiction)
	if err != nil {
		return nil, "", err
	}

	if req.Category == CategorySchoolBoard {
		p, err := r.registry.Get(SourceBallotpedia)
		return p, key, err
	}
	if req.Category != "" {
		return nil, "", dberrors.New(
			dberrors.InvalidArguments,
			fmt.Sprintf("category '%s' is not recognized; supported: %s", req.Category, CategorySchoolBoard),
			nil,
		)
	}

	if key == "NC" {
		p, err := r.registry.Get(SourceNCSBE)
		return p, key, err
	}

	p, err := r.registry.Get(SourceElectionStats)
	if err != nil {
		return nil, "", err
	}
	if !p.Covers(key) {
		return nil, "", dberrors.New(
			dberrors.UnknownJurisdiction,
			fmt.Sprintf("jurisdiction '%s' (%s) is not covered by source '%s'; covered: %s",
				req.Jurisdiction, key, p.ID, joinKeys(p.States)),
			nil,
		)
	}
	return p, key, nil
}

// Results executes the reconciliation pass for a request and returns the
// deduplicated rows per granularity level
func (r *Router) Results(ctx context.Context, req Request) (*Result, error) {
	start, end, err := resolveBounds(req)
	if err != nil {
		return nil, err
	}

	profile, key, err := r.Route(req)
	if err != nil {
		return nil, err
	}

	levels, err := resolveLevels(profile, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Source:       profile.ID,
		Jurisdiction: key,
		Levels:       map[Granularity]dataset.Rows{},
	}

	for _, level := range levels {
		rows, warnings, fetched, err := r.reconcile(ctx, profile, key, level, start, end, req.Refresh)
		if err != nil {
			return nil, err
		}
		result.Levels[level] = rows
		result.Warnings = append(result.Warnings, warnings...)
		if fetched {
			result.FetchCount++
		}
	}

	return result, nil
}

// resolveBounds validates the mutually exclusive legacy/new argument
// shapes and parses the requested range
func resolveBounds(req Request) (*dataset.Date, *dataset.Date, error) {
	if req.Date != "" && (req.StartDate != "" || req.EndDate != "") {
		return nil, nil, dberrors.New(
			dberrors.InvalidArguments,
			"both the legacy 'date' argument and 'start'/'end' were supplied; 'date' is deprecated, pass --start and --end instead",
			nil,
		).WithFixes(dberrors.FixAction{
			Type:        dberrors.RunCommand,
			Command:     fmt.Sprintf("downballot results --start %s --end %s", req.Date, req.Date),
			Safe:        true,
			Description: "Equivalent request in the new argument shape",
		})
	}

	parse := func(s string) (*dataset.Date, error) {
		if s == "" {
			return nil, nil
		}
		d, err := dataset.ParseDate(s)
		if err != nil {
			return nil, dberrors.New(dberrors.InvalidArguments, err.Error(), nil)
		}
		return &d, nil
	}

	if req.Date != "" {
		d, err := parse(req.Date)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}

	start, err := parse(req.StartDate)
	if err != nil {
		return nil, nil, err
	}
	end, err := parse(req.EndDate)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func resolveLevels(profile *Profile, req Request) ([]Granularity, error) {
	if req.AllLevels {
		return profile.Granularities, nil
	}
	if req.Level == "" {
		return []Granularity{profile.DefaultGranularity}, nil
	}
	level := Granularity(req.Level)
	if !profile.SupportsGranularity(level) {
		return nil, dberrors.New(
			dberrors.InvalidArguments,
			fmt.Sprintf("source '%s' does not support granularity '%s'; supported: %v",
				profile.ID, level, profile.Granularities),
			nil,
		)
	}
	return []Granularity{level}, nil
}

// reconcile runs one clamp → discover → gap → fetch → merge pass for a
// single (source, jurisdiction, level). Discovery and fetch failures
// degrade to snapshot-only with a warning; bridge and data-contract errors
// propagate.
func (r *Router) reconcile(
	ctx context.Context,
	profile *Profile,
	jurisdiction string,
	level Granularity,
	start, end *dataset.Date,
	refresh bool,
) (dataset.Rows, []Warning, bool, error) {
	key := SnapshotKey{Source: profile.ID, Jurisdiction: jurisdiction, Level: level}

	covered, err := r.store.CoveredDates(ctx, key)
	if err != nil {
		return nil, nil, false, err
	}

	// Requests fully inside the snapshot's covered span are answered from
	// the snapshot alone: no discovery call, no fetch.
	if !refresh && start != nil && end != nil && covered.Len() > 0 {
		min, _ := covered.Min()
		max, _ := covered.Max()
		if !start.Before(min) && !end.After(max) {
			rows, err := r.store.Load(ctx, key)
			if err != nil {
				return nil, nil, false, err
			}
			return rows.Within(*start, *end), nil, false, nil
		}
	}

	stateCfg, err := profile.StateConfigFor(jurisdiction)
	if err != nil {
		return nil, nil, false, err
	}

	universe, err := r.discoverer.Discover(ctx, profile, jurisdiction)
	if err != nil {
		// No universe available: the snapshot is authoritative, never
		// "everything is missing".
		warning := Warning{
			Code:    dberrors.DiscoveryUnavailable,
			Message: fmt.Sprintf("discovery for %s/%s failed (%v); returning cached snapshot only", profile.ID, jurisdiction, err),
		}
		r.logger.Warn("Discovery unavailable", map[string]interface{}{
			"source":       profile.ID,
			"jurisdiction": jurisdiction,
			"error":        err.Error(),
		})
		rows, loadErr := r.store.Load(ctx, key)
		if loadErr != nil {
			return nil, nil, false, loadErr
		}
		return boundedRows(rows, start, end), []Warning{warning}, false, nil
	}

	clamped := reconcile.Clamp(start, end, stateCfg.MinSupportedDate, universe.Dates)
	if clamped.Empty {
		r.logger.Debug("Clamped range is empty", map[string]interface{}{
			"source": profile.ID,
			"floor":  stateCfg.MinSupportedDate.String(),
		})
		rows, err := r.store.Load(ctx, key)
		if err != nil {
			return nil, nil, false, err
		}
		return boundedRows(rows, start, end), nil, false, nil
	}

	effectiveCovered := covered
	if refresh {
		effectiveCovered = dataset.NewDateSet()
	}
	plan := reconcile.ResolveGaps(effectiveCovered, universe.Dates, clamped.Start, clamped.End)
	if !plan.FetchRequired() {
		rows, err := r.store.Load(ctx, key)
		if err != nil {
			return nil, nil, false, err
		}
		return rows.Within(clamped.Start, clamped.End), nil, false, nil
	}

	r.logger.Info("Fetching missing record dates", map[string]interface{}{
		"source":       profile.ID,
		"jurisdiction": jurisdiction,
		"level":        level,
		"missing":      plan.Missing.Len(),
		"range":        clamped.Start.String() + ".." + clamped.End.String(),
	})

	// Current policy fetches the entire clamped range rather than
	// per-missing-date; merge dedup makes the overlap harmless.
	spec := FetchSpec{
		Profile:      profile,
		Jurisdiction: jurisdiction,
		Level:        level,
		Start:        clamped.Start,
		End:          clamped.End,
		Events:       universe.EventsWithin(clamped.Start, clamped.End),
	}
	fetched, err := r.fetcher.Fetch(ctx, spec)
	if err != nil || (fetched != nil && fetched.Status == FetchFailed) {
		if err != nil && isFatalFetchError(err) {
			return nil, nil, true, err
		}
		msg := "fetch failed"
		if err != nil {
			msg = err.Error()
		}
		warning := Warning{
			Code:    dberrors.FetchFailed,
			Message: fmt.Sprintf("fetch for %s/%s failed (%s); returning cached snapshot only", profile.ID, jurisdiction, msg),
		}
		r.logger.Warn("Fetch failed", map[string]interface{}{
			"source":       profile.ID,
			"jurisdiction": jurisdiction,
			"error":        msg,
		})
		rows, loadErr := r.store.Load(ctx, key)
		if loadErr != nil {
			return nil, nil, true, loadErr
		}
		return rows.Within(clamped.Start, clamped.End), []Warning{warning}, true, nil
	}

	warnings := fetched.Warnings
	if fetched.Status == FetchEmpty || len(fetched.Rows) == 0 {
		rows, err := r.store.Load(ctx, key)
		if err != nil {
			return nil, nil, true, err
		}
		return rows.Within(clamped.Start, clamped.End), warnings, true, nil
	}

	snapshotRows, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, nil, true, err
	}
	merged := reconcile.Merge(snapshotRows, fetched.Rows)
	if err := r.store.Replace(ctx, key, merged); err != nil {
		return nil, nil, true, err
	}

	return merged.Within(clamped.Start, clamped.End), warnings, true, nil
}

// isFatalFetchError distinguishes errors that must stop the call from
// transport failures that degrade to snapshot-only
func isFatalFetchError(err error) bool {
	return dberrors.IsCode(err, dberrors.BridgeConflict) ||
		dberrors.IsCode(err, dberrors.BridgeUnbound) ||
		dberrors.IsCode(err, dberrors.SnapshotMissingColumn)
}

func boundedRows(rows dataset.Rows, start, end *dataset.Date) dataset.Rows {
	if start == nil && end == nil {
		return rows
	}
	s := dataset.NewDate(1, 1, 1)
	e := dataset.NewDate(9999, 12, 31)
	if start != nil {
		s = *start
	}
	if end != nil {
		e = *end
	}
	return rows.Within(s, e)
}

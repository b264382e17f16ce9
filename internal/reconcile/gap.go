package reconcile

import (
	"github.com/gchickering21/downballot/internal/dataset"
)

// GapPlan is the result of comparing what a snapshot already covers against
// what the remote universe offers inside a requested range.
//
// Invariant: Missing = (Universe ∩ [start, end]) − Covered. Missing is empty
// exactly when no fetch is required.
type GapPlan struct {
	Covered  *dataset.DateSet
	Universe *dataset.DateSet
	Missing  *dataset.DateSet
}

// FetchRequired reports whether the plan demands a fetch
func (p GapPlan) FetchRequired() bool {
	return p.Missing.Len() > 0
}

// ResolveGaps computes the dates that are in-range and offered by the
// universe but absent from the covered set. Dates compare by equality only;
// there is no secondary key.
func ResolveGaps(covered, universe *dataset.DateSet, start, end dataset.Date) GapPlan {
	inRange := universe.Within(start, end)
	return GapPlan{
		Covered:  covered,
		Universe: universe,
		Missing:  inRange.Diff(covered),
	}
}

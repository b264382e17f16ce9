// Package reconcile implements the range-clamp, gap-resolution, and
// merge/dedup arithmetic that turns "give me data for [start, end]" into a
// minimal fetch plan against an existing snapshot.
package reconcile

import (
	"github.com/gchickering21/downballot/internal/dataset"
)

// ClampedRange is a requested date range adjusted to a source's minimum
// supported date. Empty means the entire range falls before the floor:
// no fetch should happen and no error is raised.
type ClampedRange struct {
	Start dataset.Date
	End   dataset.Date
	Empty bool
}

// Clamp normalizes a requested [start, end] against a source's floor.
// Nil bounds default to the discovered universe's min/max. Rules:
//   - start < floor raises start to floor
//   - end < floor declares the whole range empty, regardless of start
//   - an unresolvable bound (nil bound with an empty universe) also
//     declares the range empty
func Clamp(start, end *dataset.Date, floor dataset.Date, universe *dataset.DateSet) ClampedRange {
	var s, e dataset.Date

	if start != nil {
		s = *start
	} else if min, ok := universe.Min(); ok {
		s = min
	}
	if end != nil {
		e = *end
	} else if max, ok := universe.Max(); ok {
		e = max
	}

	if s.IsZero() || e.IsZero() {
		return ClampedRange{Empty: true}
	}

	if e.Before(floor) {
		return ClampedRange{Start: s, End: e, Empty: true}
	}
	if s.Before(floor) {
		s = floor
	}
	if e.Before(s) {
		return ClampedRange{Start: s, End: e, Empty: true}
	}

	return ClampedRange{Start: s, End: e}
}

package dataset

import "sort"

// DateSet is a sorted, deduplicated set of record dates
type DateSet struct {
	dates []Date
}

// NewDateSet builds a DateSet from the given dates, sorting and
// deduplicating them
func NewDateSet(dates ...Date) *DateSet {
	s := &DateSet{}
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts a date, keeping the set sorted. Duplicates and zero dates are
// ignored.
func (s *DateSet) Add(d Date) {
	if d.IsZero() {
		return
	}
	i := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(d)
	})
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return
	}
	s.dates = append(s.dates, Date{})
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = d
}

// Contains reports whether d is in the set
func (s *DateSet) Contains(d Date) bool {
	i := sort.Search(len(s.dates), func(i int) bool {
		return !s.dates[i].Before(d)
	})
	return i < len(s.dates) && s.dates[i].Equal(d)
}

// Len returns the number of dates in the set
func (s *DateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// Dates returns the dates in ascending order. The caller must not mutate
// the returned slice.
func (s *DateSet) Dates() []Date {
	if s == nil {
		return nil
	}
	return s.dates
}

// Min returns the earliest date, if any
func (s *DateSet) Min() (Date, bool) {
	if s.Len() == 0 {
		return Date{}, false
	}
	return s.dates[0], true
}

// Max returns the latest date, if any
func (s *DateSet) Max() (Date, bool) {
	if s.Len() == 0 {
		return Date{}, false
	}
	return s.dates[len(s.dates)-1], true
}

// Union returns a new set containing every date from s and other
func (s *DateSet) Union(other *DateSet) *DateSet {
	out := NewDateSet(s.Dates()...)
	for _, d := range other.Dates() {
		out.Add(d)
	}
	return out
}

// Diff returns a new set of dates present in s but not in other
func (s *DateSet) Diff(other *DateSet) *DateSet {
	out := NewDateSet()
	for _, d := range s.Dates() {
		if other == nil || !other.Contains(d) {
			out.Add(d)
		}
	}
	return out
}

// Within returns a new set of dates d with start <= d <= end
func (s *DateSet) Within(start, end Date) *DateSet {
	out := NewDateSet()
	for _, d := range s.Dates() {
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Add(d)
	}
	return out
}

// Equal reports whether two sets contain exactly the same dates
func (s *DateSet) Equal(other *DateSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, d := range s.Dates() {
		if !d.Equal(other.Dates()[i]) {
			return false
		}
	}
	return true
}

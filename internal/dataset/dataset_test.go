package dataset

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2022-11-08")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2022-11-08" {
		t.Errorf("round-trip mismatch: %s", d)
	}
	if d.Year() != 2022 {
		t.Errorf("year = %d, want 2022", d.Year())
	}

	if _, err := ParseDate("11/08/2022"); err == nil {
		t.Error("non-ISO date should fail to parse")
	}
	if _, err := ParseDate(""); err == nil {
		t.Error("empty date should fail to parse")
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2022, time.November, 8)
	b := NewDate(2023, time.November, 7)

	if !a.Before(b) || b.Before(a) {
		t.Error("ordering is wrong")
	}
	if !a.Equal(mustDate(t, "2022-11-08")) {
		t.Error("equal dates should compare equal")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("Compare results are wrong")
	}
}

func TestDateSetSortedAndDeduplicated(t *testing.T) {
	s := NewDateSet(
		mustDate(t, "2023-11-07"),
		mustDate(t, "2022-11-08"),
		mustDate(t, "2023-11-07"),
		mustDate(t, "2024-11-05"),
	)

	if s.Len() != 3 {
		t.Fatalf("expected 3 distinct dates, got %d", s.Len())
	}
	dates := s.Dates()
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			t.Errorf("dates not strictly ascending: %v", dates)
		}
	}
}

func TestDateSetIgnoresZero(t *testing.T) {
	s := NewDateSet(Date{}, mustDate(t, "2022-11-08"))
	if s.Len() != 1 {
		t.Errorf("zero dates should be ignored, got len %d", s.Len())
	}
}

func TestDateSetDiffAndWithin(t *testing.T) {
	universe := NewDateSet(
		mustDate(t, "2022-11-08"),
		mustDate(t, "2023-11-07"),
		mustDate(t, "2024-11-05"),
	)
	covered := NewDateSet(
		mustDate(t, "2022-11-08"),
		mustDate(t, "2023-11-07"),
	)

	inRange := universe.Within(mustDate(t, "2022-01-01"), mustDate(t, "2024-12-31"))
	missing := inRange.Diff(covered)

	if missing.Len() != 1 || !missing.Contains(mustDate(t, "2024-11-05")) {
		t.Errorf("missing = %v, want exactly 2024-11-05", missing.Dates())
	}
}

func TestDateSetUnion(t *testing.T) {
	a := NewDateSet(mustDate(t, "2022-11-08"))
	b := NewDateSet(mustDate(t, "2022-11-08"), mustDate(t, "2024-11-05"))

	u := a.Union(b)
	if u.Len() != 2 {
		t.Errorf("union length = %d, want 2", u.Len())
	}
	if !u.Equal(b) {
		t.Errorf("union = %v, want %v", u.Dates(), b.Dates())
	}
}

func TestRowHashStableAcrossRetrievals(t *testing.T) {
	row := Row{
		State:        "NC",
		Year:         2022,
		ElectionDate: mustDate(t, "2022-11-08"),
		Office:       "us_senate",
		Candidate:    "A. Candidate",
		Party:        "DEM",
		Votes:        1000,
		RetrievedAt:  "2024-01-01T00:00:00Z",
		FetchID:      "abc",
	}
	again := row
	again.RetrievedAt = "2025-06-01T00:00:00Z"
	again.FetchID = "def"

	if row.Hash() != again.Hash() {
		t.Error("retrieval metadata must not change row identity")
	}

	corrected := row
	corrected.Votes = 1001
	if row.Hash() == corrected.Hash() {
		t.Error("a changed field must change row identity")
	}
}

func TestRowHashFieldBoundaries(t *testing.T) {
	a := Row{Office: "ab", OfficeRaw: "c"}
	b := Row{Office: "a", OfficeRaw: "bc"}
	if a.Hash() == b.Hash() {
		t.Error("adjacent fields must not be confusable")
	}
}

func TestRowsDatesAndWithin(t *testing.T) {
	rows := Rows{
		{ElectionDate: mustDate(t, "2022-11-08")},
		{ElectionDate: mustDate(t, "2022-11-08")},
		{ElectionDate: mustDate(t, "2024-11-05")},
	}

	if rows.Dates().Len() != 2 {
		t.Errorf("expected 2 distinct dates, got %d", rows.Dates().Len())
	}

	filtered := rows.Within(mustDate(t, "2024-01-01"), mustDate(t, "2024-12-31"))
	if len(filtered) != 1 {
		t.Errorf("expected 1 row in 2024, got %d", len(filtered))
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  North \n  Carolina\t"); got != "North Carolina" {
		t.Errorf("CleanText = %q", got)
	}
}

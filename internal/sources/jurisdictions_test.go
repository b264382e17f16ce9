package sources

import (
	"testing"

	dberrors "github.com/gchickering21/downballot/internal/errors"
)

func TestCanonicalizeVariants(t *testing.T) {
	// Every casing/punctuation variant of the same jurisdiction must land
	// on the same canonical key.
	variants := []string{"nc", "NC", "Nc", "North Carolina", "north carolina", "north_carolina", "north-carolina", "  NORTH  CAROLINA  "}
	for _, input := range variants {
		got, err := Canonicalize(input)
		if err != nil {
			t.Errorf("Canonicalize(%q) errored: %v", input, err)
			continue
		}
		if got != "NC" {
			t.Errorf("Canonicalize(%q) = %q, want NC", input, got)
		}
	}
}

func TestCanonicalizeOtherStates(t *testing.T) {
	cases := map[string]string{
		"virginia":             "VA",
		"South_Carolina":       "SC",
		"new mexico":           "NM",
		"MA":                   "MA",
		"District of Columbia": "DC",
	}
	for input, want := range cases {
		got, err := Canonicalize(input)
		if err != nil {
			t.Errorf("Canonicalize(%q) errored: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanonicalizeUnknown(t *testing.T) {
	for _, input := range []string{"", "Atlantis", "XX", "north dakotas"} {
		_, err := Canonicalize(input)
		if err == nil {
			t.Errorf("Canonicalize(%q) should fail", input)
			continue
		}
		if !dberrors.IsCode(err, dberrors.UnknownJurisdiction) {
			t.Errorf("Canonicalize(%q) error code = %s, want UNKNOWN_JURISDICTION", input, dberrors.CodeOf(err))
		}
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	first, err := Canonicalize("Virginia")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Canonicalize("Virginia")
		if err != nil || again != first {
			t.Fatalf("canonicalization not deterministic: %q vs %q (err %v)", first, again, err)
		}
	}
}

func TestJurisdictionName(t *testing.T) {
	if got := JurisdictionName("NC"); got != "North Carolina" {
		t.Errorf("JurisdictionName(NC) = %q", got)
	}
	if got := JurisdictionName("DC"); got != "District of Columbia" {
		t.Errorf("JurisdictionName(DC) = %q", got)
	}
}

func TestAllJurisdictionsSorted(t *testing.T) {
	all := AllJurisdictions()
	if len(all) != 51 {
		t.Errorf("expected 51 jurisdictions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Errorf("jurisdictions not sorted at %d: %s >= %s", i, all[i-1], all[i])
		}
	}
}
